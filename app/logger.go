package app

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

var ErrLogLevel = errors.New("invalid log level")

// ParseLevel accepts debug, info, warn(ing) and error in any case; empty means info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch s {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, ErrLogLevel
	}
}

// NewLogger builds the process logger. w defaults to stderr.
func NewLogger(ls LogSettings, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(ls.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}
	if ls.JSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// SQLLogger returns the statement logger, or nil when SQL logging is off.
func SQLLogger(ls LogSettings, logger *slog.Logger) *slog.Logger {
	if !ls.SQL {
		return nil
	}
	return logger.With("component", "sql")
}
