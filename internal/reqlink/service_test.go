package reqlink

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/metalagman/clawpm/internal/db"
	"github.com/metalagman/clawpm/internal/model"
	"github.com/metalagman/clawpm/internal/task"
)

func newTestService(t *testing.T) (*Service, *task.Service) {
	t.Helper()
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	require.NoError(t, db.Migrate(sqldb))

	tasks := task.NewService(task.NewStore(sqldb))
	return NewService(NewStore(sqldb), tasks.Store()), tasks
}

func seedTasks(t *testing.T, tasks *task.Service, titles ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		created, err := tasks.Create(context.Background(), task.CreateParams{Title: title})
		require.NoError(t, err)
		ids = append(ids, created.TaskID)
	}
	return ids
}

func TestCreateLink(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()
	ids := seedTasks(t, tasks, "a", "b")

	l, err := svc.Create(ctx, ids[0], ids[1], model.LinkBlocks)
	require.NoError(t, err)
	assert.NotZero(t, l.ID)
	assert.Equal(t, model.LinkBlocks, l.LinkType)

	_, err = svc.Create(ctx, ids[0], ids[1], "duplicates")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.Create(ctx, ids[0], "T-404", model.LinkBlocks)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = svc.Create(ctx, ids[0], ids[0], model.LinkBlocks)
	assert.ErrorIs(t, err, model.ErrInvalidLink)
}

func TestCreateLinkIdempotent(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()
	ids := seedTasks(t, tasks, "a", "b")

	first, err := svc.Create(ctx, ids[0], ids[1], model.LinkPrecedes)
	require.NoError(t, err)
	second, err := svc.Create(ctx, ids[0], ids[1], model.LinkPrecedes)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCycleRejected(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()
	ids := seedTasks(t, tasks, "a", "b", "c")

	_, err := svc.Create(ctx, ids[0], ids[1], model.LinkBlocks)
	require.NoError(t, err)
	_, err = svc.Create(ctx, ids[1], ids[2], model.LinkBlocks)
	require.NoError(t, err)

	_, err = svc.Create(ctx, ids[2], ids[0], model.LinkBlocks)
	assert.ErrorIs(t, err, model.ErrCycle)

	// Direct two-node cycle.
	_, err = svc.Create(ctx, ids[1], ids[0], model.LinkBlocks)
	assert.ErrorIs(t, err, model.ErrCycle)

	// The rejected links left nothing behind.
	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCycleCheckIsPerLinkType(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()
	ids := seedTasks(t, tasks, "a", "b")

	_, err := svc.Create(ctx, ids[0], ids[1], model.LinkBlocks)
	require.NoError(t, err)

	// The reverse edge is fine on a different ordering-sensitive type.
	_, err = svc.Create(ctx, ids[1], ids[0], model.LinkPrecedes)
	assert.NoError(t, err)
}

func TestRelatesAllowsCycles(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()
	ids := seedTasks(t, tasks, "a", "b")

	_, err := svc.Create(ctx, ids[0], ids[1], model.LinkRelates)
	require.NoError(t, err)
	_, err = svc.Create(ctx, ids[1], ids[0], model.LinkRelates)
	assert.NoError(t, err)
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()
	ids := seedTasks(t, tasks, "a", "b")

	l, err := svc.Create(ctx, ids[0], ids[1], model.LinkBlocks)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, l.ID))
	require.NoError(t, svc.Delete(ctx, l.ID))
	require.NoError(t, svc.Delete(ctx, 9999))
}

func TestDeleteReopensPath(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()
	ids := seedTasks(t, tasks, "a", "b")

	l, err := svc.Create(ctx, ids[0], ids[1], model.LinkBlocks)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, l.ID))

	// With the forward edge gone the reverse is no longer a cycle.
	_, err = svc.Create(ctx, ids[1], ids[0], model.LinkBlocks)
	assert.NoError(t, err)
}

func TestListForTaskAndEnrich(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()
	ids := seedTasks(t, tasks, "a", "b", "c")

	_, err := svc.Create(ctx, ids[0], ids[1], model.LinkBlocks)
	require.NoError(t, err)
	_, err = svc.Create(ctx, ids[2], ids[0], model.LinkRelates)
	require.NoError(t, err)
	_, err = svc.Create(ctx, ids[1], ids[2], model.LinkPrecedes)
	require.NoError(t, err)

	links, err := svc.ListForTask(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, links, 2)

	enriched, err := svc.Enrich(ctx, links)
	require.NoError(t, err)
	require.Len(t, enriched, 2)
	assert.Equal(t, ids[0], enriched[0].SourceTaskStrID)
	assert.Equal(t, ids[1], enriched[0].TargetTaskStrID)

	_, err = svc.ListForTask(ctx, "T-404")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestHierarchyAndLinkEndToEnd(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()

	root, err := tasks.Create(ctx, task.CreateParams{Title: "root"})
	require.NoError(t, err)
	child, err := tasks.Create(ctx, task.CreateParams{Title: "child", ParentTaskID: root.TaskID})
	require.NoError(t, err)

	// Moving the root under its own child is a cycle; the root stays a root.
	_, err = tasks.Reparent(ctx, root.TaskID, child.TaskID)
	require.ErrorIs(t, err, model.ErrCycle)
	got, err := tasks.Get(ctx, root.TaskID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)

	_, err = svc.Create(ctx, root.TaskID, child.TaskID, model.LinkBlocks)
	require.NoError(t, err)
	_, err = svc.Create(ctx, child.TaskID, root.TaskID, model.LinkBlocks)
	require.ErrorIs(t, err, model.ErrCycle)
}
