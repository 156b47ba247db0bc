package backlog

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
	return NewService(NewStore(sqldb), tasks), tasks
}

func TestCreateAndList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateParams{Title: "idea", Tags: []string{"ux"}})
	require.NoError(t, err)
	assert.Equal(t, "BL-001", first.BacklogID)
	assert.Equal(t, "pool", first.Status)
	assert.Equal(t, model.PriorityP2, first.Priority)

	second, err := svc.Create(ctx, CreateParams{Title: "urgent idea", Priority: "P0"})
	require.NoError(t, err)
	assert.Equal(t, "BL-002", second.BacklogID)

	_, err = svc.Create(ctx, CreateParams{Title: "  "})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.Create(ctx, CreateParams{Title: "x", Priority: "high"})
	assert.ErrorIs(t, err, model.ErrValidation)

	items, err := svc.List(ctx, Filters{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	items, err = svc.List(ctx, Filters{Priority: "P0"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "urgent idea", items[0].Title)
}

func TestUpdateItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateParams{Title: "idea"})
	require.NoError(t, err)

	title := "sharper idea"
	priority := "P1"
	got, err := svc.Update(ctx, item.BacklogID, UpdateParams{Title: &title, Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, "sharper idea", got.Title)
	assert.Equal(t, "P1", got.Priority)

	bad := "urgent"
	_, err = svc.Update(ctx, item.BacklogID, UpdateParams{Priority: &bad})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Update(ctx, "BL-404", UpdateParams{Title: &title})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSchedule(t *testing.T) {
	svc, tasks := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateParams{Title: "Support SSO", Priority: "P1", Tags: []string{"auth"}})
	require.NoError(t, err)

	created, err := svc.Schedule(ctx, item.BacklogID, ScheduleParams{Owner: "alice", DueDate: "2026-12-01"})
	require.NoError(t, err)
	assert.Equal(t, "T-001", created.TaskID)
	assert.Equal(t, "Support SSO", created.Title)
	assert.Equal(t, "P1", created.Priority)
	assert.Equal(t, "backlog", created.Source)
	assert.Equal(t, []string{"auth"}, created.Tags)

	got, err := svc.Get(ctx, item.BacklogID)
	require.NoError(t, err)
	assert.Equal(t, "scheduled", got.Status)
	require.NotNil(t, got.ScheduledTaskID)
	assert.Equal(t, created.ID, *got.ScheduledTaskID)

	fetched, err := tasks.Get(ctx, created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "alice", fetched.Owner)

	_, err = svc.Schedule(ctx, "BL-404", ScheduleParams{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSchedulePriorityOverride(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateParams{Title: "idea", Priority: "P3"})
	require.NoError(t, err)

	created, err := svc.Schedule(ctx, item.BacklogID, ScheduleParams{Priority: "P0"})
	require.NoError(t, err)
	assert.Equal(t, "P0", created.Priority)
}
