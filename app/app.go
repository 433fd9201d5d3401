// Package app loads the runtime settings of geoadmin.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kcmvp/geoadmin/internal/project"
	"github.com/kcmvp/geoadmin/pool"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

const (
	cfgName     = "application"
	testCfgName = "application_test"
	envPrefix   = "GEOADMIN"
	// MinSecretLen is the shortest accepted session.secret, in bytes.
	MinSecretLen = 32
)

type Settings struct {
	Server     ServerSettings  `mapstructure:"server"`
	DataSource sqlx.DataSource `mapstructure:"datasource"`
	Pool       pool.Options    `mapstructure:"pool"`
	Session    SessionSettings `mapstructure:"session"`
	Log        LogSettings     `mapstructure:"log"`
}

type ServerSettings struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

type SessionSettings struct {
	Secret string `mapstructure:"secret"`
	// EncryptionKey, when set, also encrypts the cookie. 16, 24 or 32 bytes.
	EncryptionKey string        `mapstructure:"encryption_key"`
	Window        time.Duration `mapstructure:"window"`
	Secure        bool          `mapstructure:"secure"`
	Cookie        string        `mapstructure:"cookie"`
	MaxAge        int           `mapstructure:"max_age"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	// SQL logs every statement at debug level.
	SQL bool `mapstructure:"sql"`
}

var defaults = map[string]any{
	"server.addr":                ":8000",
	"server.read_header_timeout": 10 * time.Second,
	"server.shutdown_timeout":    5 * time.Second,
	"server.mode":                "release",
	"datasource.driver":          "sqlite3",
	"datasource.url":             "file:geo.db?_foreign_keys=on",
	"datasource.user":            "",
	"datasource.password":        "",
	"datasource.host":            "",
	"datasource.scripts":         []string{},
	"pool.max_size":              pool.DefaultMaxSize,
	"pool.acquire_timeout":       pool.DefaultAcquireTimeout,
	"pool.health_attempts":       pool.DefaultHealthAttempts,
	"session.secret":             "",
	"session.encryption_key":     "",
	"session.window":             5 * time.Minute,
	"session.secure":             false,
	"session.cookie":             "user_name",
	"session.max_age":            86400,
	"log.level":                  "info",
	"log.json":                   false,
	"log.sql":                    false,
}

// Load reads application.yml (application_test.yml under `go test`) from the project
// root, the working directory or their ./config. A missing file is not an error:
// defaults and GEOADMIN_* environment variables still apply.
func Load() mo.Result[Settings] {
	v, err := loadViper()
	if err != nil {
		return mo.Err[Settings](err)
	}
	return decode(v)
}

// LoadFile reads the settings from an explicit file.
func LoadFile(path string) mo.Result[Settings] {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return mo.Err[Settings](fmt.Errorf("read %s: %w", path, err))
	}
	return decode(v)
}

func decode(v *viper.Viper) mo.Result[Settings] {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return mo.Err[Settings](fmt.Errorf("decode settings: %w", err))
	}
	// scripts are relative to the file that names them
	if used := v.ConfigFileUsed(); used != "" {
		dir := filepath.Dir(used)
		s.DataSource.Scripts = lo.Map(s.DataSource.Scripts, func(p string, _ int) string {
			return lo.Ternary(filepath.IsAbs(p), p, filepath.Join(dir, p))
		})
	}
	return mo.Ok(s)
}

// Validate reports every problem at once.
func (s Settings) Validate() error {
	return errors.Join(s.ValidateStore(), s.validateServer())
}

// ValidateStore checks only what is needed to reach the database, which is all the
// user management commands need.
func (s Settings) ValidateStore() error {
	var errs []error
	if _, err := sqlx.DialectOf(s.DataSource.Driver); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.DataSource.DSNChecked(); err != nil {
		errs = append(errs, fmt.Errorf("datasource: %w", err))
	}
	if s.Pool.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("pool.max_size must be positive, got %d", s.Pool.MaxSize))
	}
	if _, err := ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

func (s Settings) validateServer() error {
	var errs []error
	if strings.TrimSpace(s.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !lo.Contains([]string{"debug", "release", "test"}, s.Server.Mode) {
		errs = append(errs, fmt.Errorf("server.mode %q is not one of debug, release, test", s.Server.Mode))
	}
	if len(s.Session.Secret) < MinSecretLen {
		errs = append(errs, fmt.Errorf("session.secret must be at least %d bytes", MinSecretLen))
	}
	if n := len(s.Session.EncryptionKey); n != 0 && n != 16 && n != 24 && n != 32 {
		errs = append(errs, fmt.Errorf("session.encryption_key must be 16, 24 or 32 bytes, got %d", n))
	}
	if s.Session.Window <= 0 {
		errs = append(errs, errors.New("session.window must be positive"))
	}
	return errors.Join(errs...)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// GEOADMIN_SESSION_SECRET overrides session.secret
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func loadViper() (*viper.Viper, error) {
	v := newViper()
	addDefaultConfigPaths(v)

	name := cfgName
	if isTestProcess() {
		name = testCfgName
	}
	v.SetConfigName(name)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return v, nil
}

// addDefaultConfigPaths registers the search paths, in order: the project root (nearest
// parent holding go.mod) and its config dir, then the working directory and its config
// dir. The first keeps `go test` from package dirs working; the second serves a binary
// started next to its application.yml.
func addDefaultConfigPaths(v *viper.Viper) {
	cwd, err := os.Getwd()
	if err != nil {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		return
	}
	if root, ok := project.Root(cwd); ok {
		v.AddConfigPath(root)
		v.AddConfigPath(filepath.Join(root, "config"))
	}
	v.AddConfigPath(cwd)
	v.AddConfigPath(filepath.Join(cwd, "config"))
}

// isTestProcess detects whether we are running under `go test`.
func isTestProcess() bool {
	for _, a := range os.Args {
		if strings.HasPrefix(a, "-test.") {
			return true
		}
	}
	// test binaries run without flags still have a _test.go frame on the stack
	const maxFrames = 256
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if strings.HasSuffix(f.File, "_test.go") {
			return true
		}
		if !more {
			return false
		}
	}
}
