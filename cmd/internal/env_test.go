package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kcmvp/geoadmin/app"
	"github.com/kcmvp/geoadmin/internal/testdb"
	"github.com/kcmvp/geoadmin/schema"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, secret string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "application.yml")
	content := fmt.Sprintf(`
datasource:
  driver: sqlite3
  url: "file:%s?_busy_timeout=5000"
  scripts: [%q]
pool:
  max_size: 2
session:
  secret: %q
log:
  level: error
`, filepath.Join(dir, "geo.db"), testdb.SchemaPath(t), secret)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSettingsFlag(t *testing.T) {
	path := writeConfig(t, "")
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String(ConfigFlag, "", "")
	require.NoError(t, cmd.Flags().Set(ConfigFlag, path))
	s := Settings(cmd).MustGet()
	require.EqualValues(t, 2, s.Pool.MaxSize)

	// without the flag, application_test.yml is discovered
	bare := &cobra.Command{Use: "x"}
	require.EqualValues(t, 4, Settings(bare).MustGet().Pool.MaxSize)
}

func TestSetup(t *testing.T) {
	ctx := context.Background()
	s := app.LoadFile(writeConfig(t, "")).MustGet()

	_, err := Setup(ctx, s, app.Settings.Validate)
	require.ErrorContains(t, err, "session.secret")

	env, err := Setup(ctx, s, app.Settings.ValidateStore)
	require.NoError(t, err)
	defer env.Close()

	require.NoError(t, env.WithLease(ctx, func(conn sqlx.Conn) error {
		return sqlx.Insert(ctx, conn, schema.Continent{Name: "Europe", AreaM2: 10180000})
	}))
	require.NoError(t, env.WithLease(ctx, func(conn sqlx.Conn) error {
		n, err := sqlx.Count[schema.Continent](ctx, conn)
		require.EqualValues(t, 1, n)
		return err
	}))
	require.Zero(t, env.Pool.Stat().Acquired)
}

func TestRegistry(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)
	require.Equal(t, []string{"cities", "continents", "countries", "districts", "regions"}, reg.Names())
}
