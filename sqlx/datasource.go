package sqlx

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	UserKey     = "${user}"
	PasswordKey = "${password}"
	HostKey     = "${host}"
)

// DataSource is the `datasource` section of application.yml.
type DataSource struct {
	Driver   string   `mapstructure:"driver" yaml:"driver"`
	User     string   `mapstructure:"user" yaml:"user"`
	Password string   `mapstructure:"password" yaml:"password"`
	Host     string   `mapstructure:"host" yaml:"host"`
	URL      string   `mapstructure:"url" yaml:"url"`
	Scripts  []string `mapstructure:"scripts" yaml:"scripts"`
}

// DSNChecked returns the final connection string for sql.Open and validates placeholder usage.
//
// Go database drivers don't share a single DSN format, so `url` is required and is a
// driver-specific DSN/URI, optionally containing ${user}, ${password} and ${host}.
// A placeholder whose field is empty is an error: connecting with blank credentials
// because of a typo in the config is worse than not starting.
func (ds DataSource) DSNChecked() (string, error) {
	if strings.TrimSpace(ds.URL) == "" {
		return "", fmt.Errorf("dsn requires url")
	}
	if strings.Contains(ds.URL, UserKey) && ds.User == "" {
		return "", fmt.Errorf("dsn requires user")
	}
	if strings.Contains(ds.URL, PasswordKey) && ds.Password == "" {
		return "", fmt.Errorf("dsn requires password")
	}
	if strings.Contains(ds.URL, HostKey) && ds.Host == "" {
		return "", fmt.Errorf("dsn requires host")
	}
	return ds.DSN(), nil
}

// DSN performs only placeholder substitution on ds.URL.
func (ds DataSource) DSN() string {
	dsn := strings.ReplaceAll(ds.URL, UserKey, ds.User)
	dsn = strings.ReplaceAll(dsn, PasswordKey, ds.Password)
	return strings.ReplaceAll(dsn, HostKey, ds.Host)
}

// normalizeDSN applies driver options the engine depends on.
//
// MySQL reports changed rows, not matched rows, unless clientFoundRows is set; the
// conditional UPDATE reads the affected-row count as "the key still exists", so an
// update that writes identical values must still count.
func normalizeDSN(d Dialect, dsn string, multiStatements bool) (string, error) {
	if d != MySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = true
	cfg.MultiStatements = cfg.MultiStatements || multiStatements
	return cfg.FormatDSN(), nil
}

// Open opens and pings the datasource, then runs its bootstrap scripts.
func Open(ctx context.Context, ds DataSource) (*sql.DB, Dialect, error) {
	d, err := DialectOf(ds.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	dsn, err := ds.DSNChecked()
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("invalid dsn: %w", err)
	}
	if dsn, err = normalizeDSN(d, dsn, len(ds.Scripts) > 0); err != nil {
		return nil, Dialect{}, err
	}
	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open datasource: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("ping datasource: %w: %w", ErrConnection, err)
	}
	if err := RunScripts(ctx, db, ds.Scripts...); err != nil {
		_ = db.Close()
		return nil, Dialect{}, err
	}
	return db, d, nil
}

// RunScripts executes each SQL file as one statement batch, in order.
func RunScripts(ctx context.Context, exec Executor, paths ...string) error {
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read script %s: %w", p, err)
		}
		if _, err := exec.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("exec script %s: %w", p, Classify("script", err))
		}
	}
	return nil
}
