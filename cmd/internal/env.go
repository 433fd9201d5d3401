// Package internal holds the process bootstrap shared by the geoadmin commands.
package internal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/kcmvp/geoadmin/app"
	"github.com/kcmvp/geoadmin/pool"
	"github.com/kcmvp/geoadmin/schema"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/kcmvp/geoadmin/web"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// ConfigFlag is the persistent flag naming an explicit settings file.
const ConfigFlag = "config"

// Env is what a command runs with: settings, logger and the connection pool.
type Env struct {
	Settings app.Settings
	Logger   *slog.Logger
	DB       *sql.DB
	Pool     *pool.Pool
}

// Settings loads the settings named by --config, or discovers application.yml.
func Settings(cmd *cobra.Command) mo.Result[app.Settings] {
	if file, _ := cmd.Flags().GetString(ConfigFlag); file != "" {
		return app.LoadFile(file)
	}
	return app.Load()
}

// Setup opens the datasource, runs its scripts and builds the pool.
// validate decides how much of the settings must be sound.
func Setup(ctx context.Context, s app.Settings, validate func(app.Settings) error) (*Env, error) {
	if err := validate(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	logger, err := app.NewLogger(s.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	db, dialect, err := sqlx.Open(ctx, s.DataSource)
	if err != nil {
		return nil, err
	}
	p, err := pool.New(db, dialect, s.Pool,
		pool.WithLogger(logger),
		pool.WithSQLLogger(app.SQLLogger(s.Log, logger)))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("datasource ready", "driver", s.DataSource.Driver, "pool", s.Pool.MaxSize)
	return &Env{Settings: s, Logger: logger, DB: db, Pool: p}, nil
}

// Close drains the pool and closes the database.
func (e *Env) Close() {
	e.Pool.Close()
	_ = e.DB.Close()
}

// WithLease runs fn on one pooled connection.
func (e *Env) WithLease(ctx context.Context, fn func(conn sqlx.Conn) error) error {
	lease, err := e.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(lease)
}

// Registry exposes the geography tables to the grid.
func Registry() (*web.Registry, error) {
	reg := web.NewRegistry()
	for _, register := range []func(*web.Registry) error{
		web.Register[schema.Continent, *schema.Continent],
		web.Register[schema.Country, *schema.Country],
		web.Register[schema.Region, *schema.Region],
		web.Register[schema.City, *schema.City],
		web.Register[schema.District, *schema.District],
	} {
		if err := register(reg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
