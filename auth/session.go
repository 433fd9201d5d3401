package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	DefaultCookieName = "user_name"
	usernameKey       = "username"
)

// SessionStore carries the client half of a session. The server half is the
// user's last_appearance column.
type SessionStore interface {
	// Username returns the user the request claims to be.
	Username(r *http.Request) (string, bool)
	// Issue (re)writes the session for username on w.
	Issue(w http.ResponseWriter, r *http.Request, username string) error
	// Clear expires the session on the client.
	Clear(w http.ResponseWriter, r *http.Request) error
}

type CookieOptions struct {
	Name   string
	Secure bool
	// MaxAge is the browser lifetime of the cookie in seconds. The sliding window is
	// enforced on the server regardless.
	MaxAge int
}

// CookieSessions keeps the username in a signed cookie, optionally encrypted when a
// block key is given.
type CookieSessions struct {
	store *sessions.CookieStore
	name  string
}

var _ SessionStore = (*CookieSessions)(nil)

func NewCookieSessions(hashKey, blockKey []byte, opts CookieOptions) *CookieSessions {
	keys := [][]byte{hashKey}
	if len(blockKey) > 0 {
		keys = append(keys, blockKey)
	}
	store := sessions.NewCookieStore(keys...)
	if opts.MaxAge <= 0 {
		opts.MaxAge = 86400
	}
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(opts.MaxAge)
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	return &CookieSessions{store: store, name: opts.Name}
}

func (c *CookieSessions) Username(r *http.Request) (string, bool) {
	s, err := c.store.Get(r, c.name)
	if err != nil || s.IsNew {
		return "", false
	}
	name, ok := s.Values[usernameKey].(string)
	return name, ok && name != ""
}

func (c *CookieSessions) Issue(w http.ResponseWriter, r *http.Request, username string) error {
	// a cookie that fails to decode yields a fresh session, which is overwritten here
	s, _ := c.store.Get(r, c.name)
	s.Values[usernameKey] = username
	return s.Save(r, w)
}

func (c *CookieSessions) Clear(w http.ResponseWriter, r *http.Request) error {
	s, _ := c.store.Get(r, c.name)
	s.Values = map[any]any{}
	s.Options.MaxAge = -1
	return s.Save(r, w)
}
