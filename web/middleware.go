package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kcmvp/geoadmin/auth"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/samber/mo"
	"github.com/tidwall/gjson"
)

const (
	connKey      = "geoadmin.conn"
	principalKey = "geoadmin.principal"
	bodyKey      = "geoadmin.body"
)

// Connection leases one pooled connection for the whole request and hands it back
// on every exit path, including panics further down the chain.
func Connection(p Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		lease, err := p.Acquire(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		defer lease.Release()
		c.Set(connKey, lease)
		c.Next()
	}
}

// Conn returns the connection leased by Connection.
func Conn(c *gin.Context) sqlx.Conn {
	return c.MustGet(connKey).(sqlx.Conn)
}

// RequireUser admits any signed-in user and slides the session.
func RequireUser(a *auth.Authenticator) gin.HandlerFunc {
	return guard(a.Validate)
}

// RequireAdmin admits administrators only.
func RequireAdmin(a *auth.Authenticator) gin.HandlerFunc {
	return guard(a.RequireAdmin)
}

type check func(ctx context.Context, conn sqlx.Conn, w http.ResponseWriter, r *http.Request) (auth.Principal, error)

func guard(fn check) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := fn(c.Request.Context(), Conn(c), c.Writer, c.Request)
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// CurrentUser returns the principal admitted by RequireUser or RequireAdmin.
func CurrentUser(c *gin.Context) mo.Option[auth.Principal] {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return mo.Some(p)
		}
	}
	return mo.None[auth.Principal]()
}

// JSONBody reads the request body and rejects anything but a JSON object.
func JSONBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		bts := mo.TupleToResult[[]byte](io.ReadAll(c.Request.Body))
		if bts.IsError() {
			fail(c, fmt.Errorf("%w: %w", ErrMalformedBody, bts.Error()))
			return
		}
		body := bts.MustGet()
		if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
			fail(c, fmt.Errorf("%w: not a JSON object", ErrMalformedBody))
			return
		}
		c.Set(bodyKey, body)
		c.Next()
	}
}

func body(c *gin.Context) []byte {
	return c.MustGet(bodyKey).([]byte)
}

// RequestLog logs one line per request, at a level chosen by the status code.
func RequestLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"remote_ip", c.ClientIP(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			attrs = append(attrs, "query", q)
		}
		if p, ok := CurrentUser(c).Get(); ok {
			attrs = append(attrs, "user", p.Username)
		}
		if err := c.Errors.Last(); err != nil {
			attrs = append(attrs, "error", err.Err.Error())
		}
		logger.Log(c.Request.Context(), levelForStatus(status), "http request", attrs...)
	}
}

func levelForStatus(code int) slog.Level {
	switch {
	case code >= http.StatusInternalServerError:
		return slog.LevelError
	case code >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Recovery turns a panic into a 500 and logs it.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", fmt.Sprint(recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
