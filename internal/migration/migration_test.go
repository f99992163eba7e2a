package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestAutoMigrateSQLite(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	state, err := DetectState(ctx, db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, StateFreshInstall, state)

	require.NoError(t, AutoMigrate(ctx, db, DialectSQLite, nil))

	state, err = DetectState(ctx, db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, StateUpToDate, state)

	version, err := Version(ctx, db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running again is a no-op.
	require.NoError(t, AutoMigrate(ctx, db, DialectSQLite, nil))

	for _, table := range []string{"businesses", "locations", "keywords", "keyword_ranks", "visibility_metrics"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestUnsupportedDialect(t *testing.T) {
	db := openSQLite(t)

	err := AutoMigrate(context.Background(), db, "oracle", nil)
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "FreshInstall", StateFreshInstall.String())
	assert.Equal(t, "Pending", StatePending.String())
	assert.Equal(t, "UpToDate", StateUpToDate.String())
	assert.Equal(t, "Unknown", State(42).String())
}
