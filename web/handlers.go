package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kcmvp/geoadmin/auth"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const (
	loginPath       = "/login"
	loginFailedPath = "/login?failed=1"
)

func home(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentUser(c).OrEmpty()
		c.JSON(http.StatusOK, gin.H{"user": p.Username, "admin": p.IsAdmin, "tables": reg.Names()})
	}
}

// list answers the grid: one page of rows plus the table size.
func list(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := reg.Lookup(c.Param("table"))
		if err != nil {
			fail(c, err)
			return
		}
		lower, upper, err := pageRange(c)
		if err != nil {
			fail(c, err)
			return
		}
		ctx, conn := c.Request.Context(), Conn(c)
		count, err := t.Count(ctx, conn)
		if err != nil {
			fail(c, err)
			return
		}
		rows, err := t.Load(ctx, conn, lower, upper)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"itemsCount": count, "data": rows})
	}
}

func pageRange(c *gin.Context) (int64, int64, error) {
	index, err := strconv.ParseInt(c.Query("page_index"), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: page_index %q", sqlx.ErrInvalidArgument, c.Query("page_index"))
	}
	size, err := strconv.ParseInt(c.Query("page_size"), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: page_size %q", sqlx.ErrInvalidArgument, c.Query("page_size"))
	}
	return sqlx.Page(index, size)
}

func create(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := reg.Lookup(c.Param("table"))
		if err != nil {
			fail(c, err)
			return
		}
		raw := body(c)
		if err = requireFields(t, gjson.ParseBytes(raw), t.Required()); err != nil {
			fail(c, err)
			return
		}
		v, err := t.Insert(c.Request.Context(), Conn(c), raw)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// update expects {"old": row, "new": row} and answers the new row.
func update(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := reg.Lookup(c.Param("table"))
		if err != nil {
			fail(c, err)
			return
		}
		doc := gjson.ParseBytes(body(c))
		older, newer := doc.Get("old"), doc.Get("new")
		if !older.IsObject() || !newer.IsObject() {
			fail(c, fmt.Errorf("%w: old and new rows are required", ErrMalformedBody))
			return
		}
		if err = requireFields(t, older, t.Keys()); err != nil {
			fail(c, err)
			return
		}
		if err = requireFields(t, newer, t.Required()); err != nil {
			fail(c, err)
			return
		}
		v, err := t.Update(c.Request.Context(), Conn(c), []byte(older.Raw), []byte(newer.Raw))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func remove(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := reg.Lookup(c.Param("table"))
		if err != nil {
			fail(c, err)
			return
		}
		raw := body(c)
		if err = requireFields(t, gjson.ParseBytes(raw), t.Keys()); err != nil {
			fail(c, err)
			return
		}
		v, err := t.Delete(c.Request.Context(), Conn(c), raw)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// requireFields rejects rows that leave one of fields out or null. Decoding would
// turn it into a zero value and write, or address, the wrong row.
func requireFields(t Table, row gjson.Result, fields []string) error {
	missing := lo.Filter(fields, func(f string, _ int) bool {
		v := row.Get(f)
		return !v.Exists() || v.Type == gjson.Null
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s row lacks fields %v", ErrMalformedBody, t.Name(), missing)
	}
	return nil
}

const loginPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>geoadmin</title></head>
<body>
%s<form method="post" action="/login">
<label>Username <input name="username" autocomplete="username"></label>
<label>Password <input name="password" type="password" autocomplete="current-password"></label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`

func loginForm(c *gin.Context) {
	notice := ""
	if c.Query("failed") != "" {
		notice = "<p>Invalid username or password.</p>\n"
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(loginPage, notice)))
}

func login(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := a.Login(c.Request.Context(), Conn(c), c.Writer, c.Request,
			c.PostForm("username"), c.PostForm("password"))
		switch {
		case errors.Is(err, auth.ErrLoginFailed):
			_ = c.Error(err)
			c.Redirect(http.StatusSeeOther, loginFailedPath)
		case err != nil:
			fail(c, err)
		default:
			c.Redirect(http.StatusSeeOther, "/")
		}
	}
}

func signOut(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.SignOut(c.Writer, c.Request); err != nil {
			_ = c.Error(err)
		}
		c.Redirect(http.StatusSeeOther, loginPath)
	}
}

func health(p Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "pool": p.Stat()})
	}
}
