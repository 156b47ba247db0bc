package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDirAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracker.db")
	sqldb, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })

	require.NoError(t, Migrate(sqldb))

	for _, table := range []string{"tasks", "req_links", "backlog_items", "domains", "milestones", "members", "goals", "objectives", "objective_task_links"} {
		var name string
		err := sqldb.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })

	require.NoError(t, Migrate(sqldb))
	require.NoError(t, Migrate(sqldb))
}

func TestLabelsBackfill(t *testing.T) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	require.NoError(t, Migrate(sqldb))

	_, err = sqldb.Exec(`INSERT INTO tasks(task_id, title) VALUES('T-001', 'x')`)
	require.NoError(t, err)

	var labels string
	require.NoError(t, sqldb.QueryRow(`SELECT labels FROM tasks WHERE task_id='T-001'`).Scan(&labels))
	assert.Equal(t, "[]", labels)
}
