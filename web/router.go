// Package web is the HTTP boundary of the panel: a gin router over the table registry.
package web

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/kcmvp/geoadmin/auth"
	"github.com/kcmvp/geoadmin/pool"
)

// Pool is the part of *pool.Pool the router uses.
type Pool interface {
	Acquire(ctx context.Context) (*pool.Lease, error)
	Stat() pool.Stat
}

var _ Pool = (*pool.Pool)(nil)

// NewRouter wires the routes:
//
//	GET    /healthz                 pool statistics, public
//	GET    /login                   login form
//	POST   /login                   form login, 303 to / or /login?failed=1
//	GET    /signout                 clears the session, 303 to /login
//	GET    /                        current user and tables
//	GET    /:table/items            page of rows, any user
//	POST   /:table/items            insert, any user
//	PUT    /:table/items            {"old","new"} update, admin
//	DELETE /:table/items            delete by key, admin
func NewRouter(reg *Registry, p Pool, a *auth.Authenticator, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLog(logger), Recovery(logger))

	r.GET("/healthz", health(p))
	r.GET(loginPath, loginForm)
	r.GET("/signout", signOut(a))

	db := r.Group("/", Connection(p))
	db.POST(loginPath, login(a))
	db.GET("/", RequireUser(a), home(reg))

	items := db.Group("/:table/items")
	items.GET("", RequireUser(a), list(reg))
	items.POST("", RequireUser(a), JSONBody(), create(reg))
	items.PUT("", RequireAdmin(a), JSONBody(), update(reg))
	items.DELETE("", RequireAdmin(a), JSONBody(), remove(reg))
	return r
}
