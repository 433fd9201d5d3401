package schema

import (
	"time"

	"github.com/kcmvp/geoadmin/entity"
)

// UserRecord is a panel account. LastAppearance is the server half of the sliding
// session: it is bumped on every validated request.
type UserRecord struct {
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	IsAdmin        bool      `json:"is_admin"`
	LastAppearance time.Time `json:"last_appearance"`
}

func (u UserRecord) Table() string { return "users_info" }
func (u UserRecord) Columns() []string {
	return []string{"username", "password_hash", "is_admin", "last_appearance"}
}
func (u UserRecord) Keys() []string { return []string{"username"} }
func (u UserRecord) Values() []any {
	return []any{u.Username, u.PasswordHash, u.IsAdmin, u.LastAppearance.UTC()}
}
func (u UserRecord) KeyValues() []any { return []any{u.Username} }
func (u *UserRecord) Pointers() []any {
	return []any{&u.Username, &u.PasswordHash, &u.IsAdmin, &u.LastAppearance}
}

// Touch returns a copy of u seen at now.
func (u UserRecord) Touch(now time.Time) UserRecord {
	u.LastAppearance = now.UTC()
	return u
}

var _ entity.Scanner = (*UserRecord)(nil)
