package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kcmvp/geoadmin/constraint"
	"github.com/kcmvp/geoadmin/schema"
	"github.com/kcmvp/geoadmin/sqlx"
)

var ErrUserExists = errors.New("user already exists")

var usernameRules = []constraint.Validator[string]{
	constraint.NotBlank(),
	constraint.MaxLength(64),
	constraint.CharSet("._-@"),
}

// Users manages accounts outside of the HTTP flow.
type Users struct {
	Params Argon2Params
}

// Add creates an account. The new user starts signed out: its last appearance is the
// Unix epoch.
func (u Users) Add(ctx context.Context, conn sqlx.Conn, username, password string, admin bool) error {
	if err := constraint.Field("username", username, usernameRules...); err != nil {
		return fmt.Errorf("add user: %w: %w", sqlx.ErrInvalidArgument, err)
	}
	hash, err := HashPassword(password, u.Params)
	if err != nil {
		return fmt.Errorf("add user %s: %w", username, err)
	}
	err = sqlx.Insert(ctx, conn, schema.UserRecord{
		Username:       username,
		PasswordHash:   hash,
		IsAdmin:        admin,
		LastAppearance: time.Unix(0, 0).UTC(),
	})
	if errors.Is(err, sqlx.ErrConstraintViolation) {
		return fmt.Errorf("add user %s: %w", username, ErrUserExists)
	}
	return err
}

// SetPassword replaces the password of an existing account. Live sessions are kept.
func (u Users) SetPassword(ctx context.Context, conn sqlx.Conn, username, password string) error {
	found, err := sqlx.Find(ctx, conn, schema.UserRecord{Username: username})
	if err != nil {
		return err
	}
	user, ok := found.Get()
	if !ok {
		return fmt.Errorf("set password %s: %w", username, sqlx.ErrKeyNotFound)
	}
	hash, err := HashPassword(password, u.Params)
	if err != nil {
		return fmt.Errorf("set password %s: %w", username, err)
	}
	changed := user
	changed.PasswordHash = hash
	return sqlx.Update(ctx, conn, user, changed)
}
