// Package pool hands out one health-checked database connection per unit of work.
package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/kcmvp/geoadmin/sqlx"
)

const (
	DefaultMaxSize        = 20
	DefaultAcquireTimeout = 5 * time.Second
	DefaultHealthAttempts = 3
)

// Options is the `pool` section of application.yml.
type Options struct {
	MaxSize        int32         `mapstructure:"max_size"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	HealthAttempts int           `mapstructure:"health_attempts"`
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = DefaultAcquireTimeout
	}
	if o.HealthAttempts <= 0 {
		o.HealthAttempts = DefaultHealthAttempts
	}
	return o
}

// Pool is a bounded set of dedicated connections taken from a *sql.DB.
type Pool struct {
	res     *puddle.Pool[*sql.Conn]
	dialect sqlx.Dialect
	opts    Options
	logger  *slog.Logger
	sqlLog  *slog.Logger
}

// Option customises a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for pool events.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSQLLogger logs every statement run through a lease.
func WithSQLLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.sqlLog = l }
}

// New builds a pool over db. The *sql.DB limits are aligned with MaxSize so the two
// layers never disagree on how many connections exist.
func New(db *sql.DB, dialect sqlx.Dialect, opts Options, options ...Option) (*Pool, error) {
	opts = opts.withDefaults()
	db.SetMaxOpenConns(int(opts.MaxSize))
	db.SetMaxIdleConns(int(opts.MaxSize))

	p := &Pool{dialect: dialect, opts: opts, logger: slog.Default()}
	for _, o := range options {
		o(p)
	}
	res, err := puddle.NewPool(&puddle.Config[*sql.Conn]{
		Constructor: func(ctx context.Context) (*sql.Conn, error) {
			return db.Conn(ctx)
		},
		Destructor: func(c *sql.Conn) {
			_ = c.Close()
		},
		MaxSize: opts.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	p.res = res
	return p, nil
}

// Acquire checks a connection out. It waits at most AcquireTimeout for a free slot and
// returns sqlx.ErrPoolExhausted when none frees up. Handles failing their ping are
// destroyed and replaced.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	var lastErr error
	for attempt := 0; attempt < p.opts.HealthAttempts; attempt++ {
		res, err := p.acquire(ctx)
		if err != nil {
			return nil, err
		}
		if err := res.Value().PingContext(ctx); err != nil {
			lastErr = err
			p.logger.WarnContext(ctx, "discarding unhealthy connection", "attempt", attempt+1, "error", err)
			res.Destroy()
			continue
		}
		var db sqlx.DB = res.Value()
		if p.sqlLog != nil {
			db = sqlx.WithSQLLogger(db, p.sqlLog)
		}
		return &Lease{res: res, db: db, dialect: p.dialect}, nil
	}
	return nil, fmt.Errorf("acquire: %w: %w", sqlx.ErrConnection, lastErr)
}

func (p *Pool) acquire(ctx context.Context) (*puddle.Resource[*sql.Conn], error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.opts.AcquireTimeout)
	defer cancel()
	res, err := p.res.Acquire(waitCtx)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, puddle.ErrClosedPool):
		return nil, fmt.Errorf("acquire: %w: %w", sqlx.ErrConnection, err)
	case ctx.Err() != nil:
		// the caller went away; not the pool's fault
		return nil, fmt.Errorf("acquire: %w: %w", sqlx.ErrConnection, ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("acquire after %s: %w", p.opts.AcquireTimeout, sqlx.ErrPoolExhausted)
	default:
		return nil, fmt.Errorf("acquire: %w: %w", sqlx.ErrConnection, err)
	}
}

// Stat is a snapshot of pool usage.
type Stat struct {
	Max      int32 `json:"max"`
	Total    int32 `json:"total"`
	Acquired int32 `json:"acquired"`
	Idle     int32 `json:"idle"`
}

func (p *Pool) Stat() Stat {
	s := p.res.Stat()
	return Stat{
		Max:      s.MaxResources(),
		Total:    s.TotalResources(),
		Acquired: s.AcquiredResources(),
		Idle:     s.IdleResources(),
	}
}

// Close waits for leased connections to come back and closes them.
func (p *Pool) Close() {
	p.res.Close()
}

// Lease is a checked-out connection. It satisfies sqlx.Conn and must be released
// exactly once; Release is safe to call more than once.
type Lease struct {
	res      *puddle.Resource[*sql.Conn]
	db       sqlx.DB
	dialect  sqlx.Dialect
	broken   atomic.Bool
	released atomic.Bool
}

var _ sqlx.Conn = (*Lease)(nil)

func (l *Lease) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := l.db.ExecContext(ctx, query, args...)
	l.observe(err)
	return res, err
}

func (l *Lease) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	l.observe(err)
	return rows, err
}

func (l *Lease) Dialect() sqlx.Dialect { return l.dialect }

func (l *Lease) observe(err error) {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		l.broken.Store(true)
	}
}

// Release returns the connection, or destroys it if it went bad during the lease.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	if l.broken.Load() {
		l.res.Destroy()
		return
	}
	l.res.Release()
}
