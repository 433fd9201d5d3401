package sqlx

import (
	"fmt"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
)

// Dialect carries the per-driver differences the builders care about.
// Only the bind placeholder differs between the supported drivers; LIMIT/OFFSET
// pagination is understood by all of them.
type Dialect struct {
	driver   string
	numbered bool
}

var (
	SQLite   = Dialect{driver: "sqlite3"}
	MySQL    = Dialect{driver: "mysql"}
	Postgres = Dialect{driver: "postgres", numbered: true}
	PGX      = Dialect{driver: "pgx", numbered: true}
)

var dialects = map[string]Dialect{
	SQLite.driver:   SQLite,
	MySQL.driver:    MySQL,
	Postgres.driver: Postgres,
	PGX.driver:      PGX,
}

// DialectOf returns the dialect registered for a database/sql driver name.
func DialectOf(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
	return d, nil
}

// Driver returns the database/sql driver name.
func (d Dialect) Driver() string { return d.driver }

// Placeholder renders the i-th (1-based) bind parameter.
func (d Dialect) Placeholder(i int) string {
	if d.numbered {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}
