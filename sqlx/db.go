package sqlx

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Executor is the statement surface the engine needs. *sql.DB, *sql.Conn and *sql.Tx
// all satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DB is the minimal handle contract used by this module: an Executor that can be
// health-checked and closed. A pooled *sql.Conn is a DB.
//
// This indirection lets us add cross-cutting features (SQL logging) without
// changing the engine API.
type DB interface {
	Executor
	PingContext(ctx context.Context) error
	Close() error
}

// Conn is what every engine operation runs against: one executor plus the dialect
// used to render its statements.
type Conn interface {
	Executor
	Dialect() Dialect
}

type boundConn struct {
	Executor
	dialect Dialect
}

func (c boundConn) Dialect() Dialect { return c.dialect }

// Bind pairs an executor with a dialect.
func Bind(exec Executor, d Dialect) Conn {
	return boundConn{Executor: exec, dialect: d}
}

// loggingDB is a thin wrapper around DB that logs SQL statements at debug level.
// Argument values are not logged; the users table carries password hashes.
type loggingDB struct {
	inner  DB
	logger *slog.Logger
}

func (d loggingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := d.inner.ExecContext(ctx, query, args...)
	d.log(ctx, "sql exec", start, query, len(args), err)
	return res, err
}

func (d loggingDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.inner.QueryContext(ctx, query, args...)
	d.log(ctx, "sql query", start, query, len(args), err)
	return rows, err
}

func (d loggingDB) PingContext(ctx context.Context) error {
	start := time.Now()
	err := d.inner.PingContext(ctx)
	d.log(ctx, "sql ping", start, "", 0, err)
	return err
}

func (d loggingDB) Close() error {
	return d.inner.Close()
}

func (d loggingDB) log(ctx context.Context, msg string, start time.Time, query string, args int, err error) {
	attrs := []slog.Attr{slog.Duration("dur", time.Since(start))}
	if query != "" {
		attrs = append(attrs, slog.String("sql", query), slog.Int("args", args))
	}
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.Any("error", err))
	}
	d.logger.LogAttrs(ctx, level, msg, attrs...)
}

// WithSQLLogger wraps db with a SQL logger if logger is not nil.
func WithSQLLogger(db DB, logger *slog.Logger) DB {
	if logger == nil {
		return db
	}
	return loggingDB{inner: db, logger: logger}
}
