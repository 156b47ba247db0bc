package catalog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/metalagman/clawpm/internal/db"
	"github.com/metalagman/clawpm/internal/model"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	require.NoError(t, db.Migrate(sqldb))
	return NewStore(sqldb), sqldb
}

func TestDomains(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	d, err := store.CreateDomain(ctx, "frontend", "FE", []string{"ui", "react"}, "")
	require.NoError(t, err)
	assert.Equal(t, "FE", d.TaskPrefix)
	assert.Equal(t, defaultColor, d.Color)
	assert.Equal(t, []string{"ui", "react"}, d.Keywords)

	_, err = store.CreateDomain(ctx, "", "X", nil, "")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = store.CreateDomain(ctx, "backend", "", nil, "")
	assert.ErrorIs(t, err, model.ErrValidation)

	got, err := store.GetDomain(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	_, err = store.GetDomain(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	domains, err := store.ListDomains(ctx)
	require.NoError(t, err)
	assert.Len(t, domains, 1)
}

func TestMilestoneRollup(t *testing.T) {
	store, sqldb := newTestStore(t)
	ctx := context.Background()

	m, err := store.CreateMilestone(ctx, "v1.0", "2026-12-31", "first release")
	require.NoError(t, err)

	// Direct inserts keep the rollup independent of the task service.
	now := time.Now().UTC().Format(time.RFC3339)
	for i, status := range []string{"done", "done", "active", "planned"} {
		_, err := sqldb.ExecContext(ctx, `INSERT INTO tasks(task_id, title, status,
			milestone_id, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)`,
			tmID(i), "t", status, m.ID, now, now)
		require.NoError(t, err)
	}

	reports, err := store.ListMilestones(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 4, reports[0].TaskCount)
	assert.Equal(t, 2, reports[0].DoneCount)
	assert.Equal(t, 50, reports[0].Progress)
}

func tmID(i int) string {
	return string(rune('A'+i)) + "-001"
}

func TestUpdateMilestone(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	m, err := store.CreateMilestone(ctx, "v1.0", "", "")
	require.NoError(t, err)

	got, err := store.UpdateMilestone(ctx, m.ID, "v1.1", "2027-01-31", "active", "")
	require.NoError(t, err)
	assert.Equal(t, "v1.1", got.Name)
	assert.Equal(t, "2027-01-31", got.TargetDate)

	_, err = store.UpdateMilestone(ctx, 999, "x", "", "", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMembers(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	m, err := store.CreateMember(ctx, "Alice", "alice", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "human", m.Type)

	_, err = store.CreateMember(ctx, "Bot", "bot", "agent", "#000000", "ci agent")
	require.NoError(t, err)

	members, err := store.ListMembers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	members, err = store.ListMembers(ctx, "agent")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "bot", members[0].Identifier)

	got, err := store.UpdateMember(ctx, "alice", "Alice B", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)

	require.NoError(t, store.DeleteMember(ctx, "alice"))
	_, err = store.GetMember(ctx, "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, store.DeleteMember(ctx, "alice"), model.ErrNotFound)
}

func TestGoals(t *testing.T) {
	store, sqldb := newTestStore(t)
	ctx := context.Background()

	g, err := store.CreateGoal(ctx, "ship v1", "first public release", "2026-12-31", "cto",
		[]ObjectiveInput{{Title: "stable API"}, {Title: "docs", Weight: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, "active", g.Status)
	assert.Equal(t, "green", g.Health)
	require.Len(t, g.Objectives, 2)
	assert.Equal(t, 1.0, g.Objectives[0].Weight)
	assert.Equal(t, 0.5, g.Objectives[1].Weight)
	assert.Equal(t, "not-started", g.Objectives[0].Status)

	_, err = store.CreateGoal(ctx, "", "", "", "", nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	goals, err := store.ListGoals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Len(t, goals[0].Objectives, 2)
	assert.Equal(t, "stable API", goals[0].Objectives[0].Title)

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = sqldb.ExecContext(ctx, `INSERT INTO tasks(task_id, title, status, created_at, updated_at)
		VALUES('T-001', 'api freeze', 'active', ?, ?)`, now, now)
	require.NoError(t, err)

	require.NoError(t, store.LinkObjectiveTask(ctx, g.Objectives[0].ID, "T-001"))

	err = store.LinkObjectiveTask(ctx, g.Objectives[0].ID, "T-999")
	assert.ErrorIs(t, err, model.ErrNotFound)
	err = store.LinkObjectiveTask(ctx, 999, "T-001")
	assert.ErrorIs(t, err, model.ErrNotFound)

	var links int
	require.NoError(t, sqldb.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM objective_task_links`).Scan(&links))
	assert.Equal(t, 1, links)
}
