// Package auth authenticates panel users with a sliding cookie session.
//
// A session is alive while the gap between two requests of the same user stays under the
// window. Every accepted request moves the window forward.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kcmvp/geoadmin/schema"
	"github.com/kcmvp/geoadmin/sqlx"
)

const DefaultWindow = 5 * time.Minute

var (
	ErrLoginFailed    = errors.New("invalid username or password")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrUnauthorized)
	ErrForbidden      = fmt.Errorf("%w: admin privileges required", ErrUnauthorized)
)

// Principal is the authenticated caller.
type Principal struct {
	Username string
	IsAdmin  bool
}

type Authenticator struct {
	sessions SessionStore
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger

	dummyOnce sync.Once
	dummy     string
}

type Option func(*Authenticator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

func WithWindow(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.window = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

func New(sessions SessionStore, opts ...Option) *Authenticator {
	a := &Authenticator{
		sessions: sessions,
		window:   DefaultWindow,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authenticator) Window() time.Duration { return a.window }

// Login checks the credentials, bumps last_appearance and issues the session.
// An unknown user and a wrong password are indistinguishable to the caller.
func (a *Authenticator) Login(ctx context.Context, conn sqlx.Conn, w http.ResponseWriter, r *http.Request, username, password string) (Principal, error) {
	if username == "" || password == "" {
		return Principal{}, ErrLoginFailed
	}
	found, err := sqlx.Find(ctx, conn, schema.UserRecord{Username: username})
	if err != nil {
		return Principal{}, fmt.Errorf("login %s: %w", username, err)
	}
	user, ok := found.Get()
	hash := user.PasswordHash
	if !ok {
		hash = a.dummyHash()
	}
	match, err := VerifyPassword(password, hash)
	if err != nil {
		a.logger.Warn("unusable password hash", "user", username, "err", err)
	}
	if !ok || !match {
		return Principal{}, ErrLoginFailed
	}
	if err = a.touch(ctx, conn, user); err != nil {
		return Principal{}, fmt.Errorf("login %s: %w", username, err)
	}
	if err = a.sessions.Issue(w, r, user.Username); err != nil {
		return Principal{}, fmt.Errorf("login %s: issue session: %w", username, err)
	}
	return Principal{Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

// Validate resolves the caller of r and slides its window.
func (a *Authenticator) Validate(ctx context.Context, conn sqlx.Conn, w http.ResponseWriter, r *http.Request) (Principal, error) {
	username, ok := a.sessions.Username(r)
	if !ok {
		return Principal{}, ErrUnauthorized
	}
	found, err := sqlx.Find(ctx, conn, schema.UserRecord{Username: username})
	if err != nil {
		return Principal{}, fmt.Errorf("validate %s: %w", username, err)
	}
	user, ok := found.Get()
	if !ok {
		return Principal{}, ErrUnauthorized
	}
	if a.now().Sub(user.LastAppearance) >= a.window {
		if err = a.sessions.Clear(w, r); err != nil {
			a.logger.Warn("clear session", "user", username, "err", err)
		}
		return Principal{}, ErrSessionExpired
	}
	if err = a.touch(ctx, conn, user); err != nil {
		if errors.Is(err, sqlx.ErrKeyNotFound) {
			// removed between the lookup and the bump
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, fmt.Errorf("validate %s: %w", username, err)
	}
	if err = a.sessions.Issue(w, r, user.Username); err != nil {
		return Principal{}, fmt.Errorf("validate %s: issue session: %w", username, err)
	}
	return Principal{Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

// RequireAdmin is Validate restricted to administrators.
func (a *Authenticator) RequireAdmin(ctx context.Context, conn sqlx.Conn, w http.ResponseWriter, r *http.Request) (Principal, error) {
	p, err := a.Validate(ctx, conn, w, r)
	if err != nil {
		return p, err
	}
	if !p.IsAdmin {
		return Principal{}, ErrForbidden
	}
	return p, nil
}

func (a *Authenticator) SignOut(w http.ResponseWriter, r *http.Request) error {
	return a.sessions.Clear(w, r)
}

func (a *Authenticator) touch(ctx context.Context, conn sqlx.Conn, user schema.UserRecord) error {
	return sqlx.Update(ctx, conn, user, user.Touch(a.now()))
}

// dummyHash is verified against for unknown users so both failure paths cost the same.
func (a *Authenticator) dummyHash() string {
	a.dummyOnce.Do(func() {
		hash, err := HashPassword("geoadmin-unknown-user", DefaultArgon2Params())
		if err != nil {
			panic(fmt.Sprintf("auth: dummy hash: %v", err))
		}
		a.dummy = hash
	})
	return a.dummy
}
