// Package testdb opens throwaway sqlite databases carrying the geo schema.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kcmvp/geoadmin/internal/project"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/stretchr/testify/require"
)

// SchemaPath returns testdata/schemas/sqlite/geo.sql of the module, found by walking up
// from the working directory to go.mod.
func SchemaPath(t testing.TB) string {
	t.Helper()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	root, ok := project.Root(cwd)
	require.True(t, ok, "go.mod not found above %s", cwd)
	return filepath.Join(root, "testdata", "schemas", "sqlite", "geo.sql")
}

// DSN returns a shared-cache in-memory DSN unique to the test.
func DSN(t testing.TB) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
}

// Open returns a schema-initialised database that lives until the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open(sqlx.SQLite.Driver(), DSN(t))
	require.NoError(t, err)
	// the in-memory database disappears with its last connection
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)
	require.NoError(t, db.PingContext(context.Background()))
	require.NoError(t, sqlx.RunScripts(context.Background(), db, SchemaPath(t)))
	t.Cleanup(func() { _ = db.Close() })
	return db
}
