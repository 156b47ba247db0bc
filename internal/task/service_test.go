package task

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

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	require.NoError(t, db.Migrate(sqldb))
	return NewService(NewStore(sqldb)), sqldb
}

func mustCreate(t *testing.T, svc *Service, p CreateParams) *Task {
	t.Helper()
	created, err := svc.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, CreateParams{Title: "first"})
	assert.Equal(t, "T-001", created.TaskID)
	assert.Equal(t, model.StatusPlanned, created.Status)
	assert.Equal(t, model.PriorityP2, created.Priority)
	assert.Equal(t, 0, created.Progress)
	assert.Equal(t, 100, created.HealthScore)
	assert.Equal(t, []string{"task"}, created.Labels)
	assert.Equal(t, "planned", created.Source)
	assert.Equal(t, time.Now().UTC().Format(dateLayout), created.StartDate)

	second := mustCreate(t, svc, CreateParams{Title: "second"})
	assert.Equal(t, "T-002", second.TaskID)

	_, err := svc.Create(ctx, CreateParams{Title: "   "})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.Create(ctx, CreateParams{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.Create(ctx, CreateParams{Title: "x", Status: "someday"})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.Create(ctx, CreateParams{Title: "x", ParentTaskID: "T-404"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateUnknownDomainIgnored(t *testing.T) {
	svc, _ := newTestService(t)

	created := mustCreate(t, svc, CreateParams{Title: "x", Domain: "nonexistent"})
	assert.Nil(t, created.Domain)
	assert.Equal(t, "T-001", created.TaskID)
}

func TestReparent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, CreateParams{Title: "a"})
	b := mustCreate(t, svc, CreateParams{Title: "b", ParentTaskID: a.TaskID})
	c := mustCreate(t, svc, CreateParams{Title: "c", ParentTaskID: b.TaskID})

	// Into own subtree, transitively.
	_, err := svc.Reparent(ctx, a.TaskID, c.TaskID)
	assert.ErrorIs(t, err, model.ErrCycle)

	// Into itself.
	_, err = svc.Reparent(ctx, b.TaskID, b.TaskID)
	assert.ErrorIs(t, err, model.ErrCycle)

	// Hierarchy untouched after rejections.
	got, err := svc.Get(ctx, a.TaskID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)

	// Detach.
	got, err = svc.Reparent(ctx, c.TaskID, "")
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)

	// Legal move.
	got, err = svc.Reparent(ctx, c.TaskID, a.TaskID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, a.ID, *got.ParentID)

	_, err = svc.Reparent(ctx, c.TaskID, "T-404")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateProgress(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, CreateParams{Title: "work"})

	_, err := svc.UpdateProgress(ctx, created.TaskID, 101, "")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.UpdateProgress(ctx, created.TaskID, -1, "")
	assert.ErrorIs(t, err, model.ErrValidation)

	got, err := svc.UpdateProgress(ctx, created.TaskID, 30, "started")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Equal(t, 30, got.Progress)

	got, err = svc.UpdateProgress(ctx, created.TaskID, 100, "shipped")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)

	history, err := svc.History(ctx, created.TaskID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 30, history[0].Progress)
	assert.Equal(t, "shipped", history[1].Summary)
}

func TestProgressIncreaseClearsBlocker(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, CreateParams{Title: "work"})
	_, err := svc.UpdateProgress(ctx, created.TaskID, 50, "")
	require.NoError(t, err)

	blocked, err := svc.ReportBlocker(ctx, created.TaskID, "waiting on review")
	require.NoError(t, err)
	assert.Equal(t, model.StatusBlocked, blocked.Status)
	assert.Equal(t, "waiting on review", blocked.Blocker)
	assert.Equal(t, 70, blocked.HealthScore)

	// A decrease keeps the blocker.
	got, err := svc.UpdateProgress(ctx, created.TaskID, 40, "rework")
	require.NoError(t, err)
	assert.Equal(t, "waiting on review", got.Blocker)

	// An increase clears it.
	got, err = svc.UpdateProgress(ctx, created.TaskID, 60, "unblocked")
	require.NoError(t, err)
	assert.Empty(t, got.Blocker)
	assert.Equal(t, 100, got.HealthScore)
}

func TestComplete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, CreateParams{Title: "work", DueDate: "2020-01-01"})
	_, err := svc.ReportBlocker(ctx, created.TaskID, "stuck")
	require.NoError(t, err)

	got, err := svc.Complete(ctx, created.TaskID, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Empty(t, got.Blocker)
	assert.Equal(t, 100, got.HealthScore)

	history, err := svc.History(ctx, created.TaskID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "completed", history[0].Summary)
}

func TestUpdatePartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, CreateParams{Title: "before"})

	title := "after"
	owner := "alice"
	labels := []string{"bug", "task"}
	got, err := svc.Update(ctx, created.TaskID, UpdateParams{
		Title:  &title,
		Owner:  &owner,
		Labels: &labels,
	})
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, labels, got.Labels)
	assert.Equal(t, model.StatusPlanned, got.Status)

	badStatus := "someday"
	_, err = svc.Update(ctx, created.TaskID, UpdateParams{Status: &badStatus})
	assert.ErrorIs(t, err, model.ErrValidation)

	// Overdue due date drops the health score.
	due := "2020-01-01"
	got, err = svc.Update(ctx, created.TaskID, UpdateParams{DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, 60, got.HealthScore)
}

func TestNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, CreateParams{Title: "work"})
	_, err := svc.AddNote(ctx, created.TaskID, "first", "alice")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, created.TaskID, "second", "bob")
	require.NoError(t, err)

	notes, err := svc.Notes(ctx, created.TaskID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Content)
	assert.Equal(t, "alice", notes[1].Author)

	_, err = svc.AddNote(ctx, "T-404", "x", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRecommendNext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	low := mustCreate(t, svc, CreateParams{Title: "low", Priority: "P3"})
	_ = low
	urgent := mustCreate(t, svc, CreateParams{Title: "urgent", Priority: "P0"})

	got, err := svc.RecommendNext(ctx, "", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, urgent.TaskID, got.TaskID)

	_, err = svc.Complete(ctx, urgent.TaskID, "")
	require.NoError(t, err)

	got, err = svc.RecommendNext(ctx, "", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "low", got.Title)

	_, err = svc.Complete(ctx, got.TaskID, "")
	require.NoError(t, err)
	got, err = svc.RecommendNext(ctx, "", "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, CreateParams{Title: "gone"})
	require.NoError(t, svc.Delete(ctx, created.TaskID))
	_, err := svc.Get(ctx, created.TaskID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.TaskID), model.ErrNotFound)
}
