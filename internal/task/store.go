package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/metalagman/clawpm/internal/model"
)

// Store manages task persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a task store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const taskCols = `t.id, t.task_id, t.title, t.description, t.parent_task_id,
	t.labels, t.status, t.progress, t.priority, t.owner, t.due_date,
	t.start_date, t.source, t.blocker, t.health_score, t.tags,
	t.created_at, t.updated_at, d.id, d.name, d.color, m.id, m.name`

const taskFrom = ` FROM tasks t
	LEFT JOIN domains d ON d.id = t.domain_id
	LEFT JOIN milestones m ON m.id = t.milestone_id`

// priorityOrder sorts P0 first, then most recently updated.
const priorityOrder = ` ORDER BY CASE t.priority
	WHEN 'P0' THEN 0 WHEN 'P1' THEN 1 WHEN 'P2' THEN 2 ELSE 3 END ASC,
	t.updated_at DESC`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var t Task
	var description, owner, dueDate, startDate, blocker sql.NullString
	var parentID, domainID, milestoneID sql.NullInt64
	var domainName, domainColor, milestoneName sql.NullString
	var labelsJSON, tagsJSON string

	err := row.Scan(&t.ID, &t.TaskID, &t.Title, &description, &parentID,
		&labelsJSON, &t.Status, &t.Progress, &t.Priority, &owner, &dueDate,
		&startDate, &t.Source, &blocker, &t.HealthScore, &tagsJSON,
		&t.CreatedAt, &t.UpdatedAt, &domainID, &domainName, &domainColor,
		&milestoneID, &milestoneName)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Owner = owner.String
	t.DueDate = dueDate.String
	t.StartDate = startDate.String
	t.Blocker = blocker.String
	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	if domainID.Valid {
		t.Domain = &Ref{ID: domainID.Int64, Name: domainName.String, Color: domainColor.String}
	}
	if milestoneID.Valid {
		t.Milestone = &Ref{ID: milestoneID.Int64, Name: milestoneName.String}
	}
	if err := json.Unmarshal([]byte(labelsJSON), &t.Labels); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	return &t, nil
}

// Insert writes a new task row and fills in its numeric id.
func (s *Store) Insert(ctx context.Context, t *Task) error {
	labelsJSON, err := marshalList(t.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	tagsJSON, err := marshalList(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(task_id, title, description,
		domain_id, milestone_id, parent_task_id, labels, status, progress,
		priority, owner, due_date, start_date, source, blocker, health_score,
		tags, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TaskID, t.Title, nullString(t.Description), refID(t.Domain),
		refID(t.Milestone), t.ParentID, labelsJSON, t.Status, t.Progress,
		t.Priority, nullString(t.Owner), nullString(t.DueDate),
		nullString(t.StartDate), t.Source, nullString(t.Blocker),
		t.HealthScore, tagsJSON, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read task id: %w", err)
	}
	t.ID = id
	return nil
}

// GetByTaskID fetches a task by its human-facing id.
func (s *Store) GetByTaskID(ctx context.Context, taskID string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+taskFrom+` WHERE t.task_id=?`, taskID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read task: %w", err)
	}
	return t, nil
}

// GetByID fetches a task by its numeric key.
func (s *Store) GetByID(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+taskFrom+` WHERE t.id=?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task #%d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read task: %w", err)
	}
	return t, nil
}

// List returns tasks matching the filters, priority-ranked then most
// recently updated first.
func (s *Store) List(ctx context.Context, f Filters) ([]*Task, error) {
	query := `SELECT ` + taskCols + taskFrom
	var conds []string
	var args []any

	if f.Status != "" {
		conds = append(conds, "t.status=?")
		args = append(args, f.Status)
	}
	if f.Owner != "" {
		conds = append(conds, "t.owner=?")
		args = append(args, f.Owner)
	}
	if f.Priority != "" {
		conds = append(conds, "t.priority=?")
		args = append(args, f.Priority)
	}
	if f.Domain != "" {
		conds = append(conds, "d.name=?")
		args = append(args, f.Domain)
	}
	if f.Milestone != "" {
		conds = append(conds, "m.name=?")
		args = append(args, f.Milestone)
	}
	if f.Label != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(t.labels) WHERE json_each.value = ?)")
		args = append(args, f.Label)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += priorityOrder

	return s.queryTasks(ctx, query, args...)
}

// ListAll returns the full task set in default order.
func (s *Store) ListAll(ctx context.Context) ([]*Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskCols+taskFrom+priorityOrder)
}

// Children returns the direct children of a task.
func (s *Store) Children(ctx context.Context, parentID int64) ([]*Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskCols+taskFrom+` WHERE t.parent_task_id=?`+priorityOrder, parentID)
}

// ChildIDs returns the numeric ids of a task's direct children. This is the
// adjacency used by the reparent cycle check.
func (s *Store) ChildIDs(ctx context.Context, parentID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tasks WHERE parent_task_id=?`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return out, nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// NextTaskID generates the next sequential id for a prefix, e.g. "U-004".
func (s *Store) NextTaskID(ctx context.Context, prefix string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT task_id FROM tasks WHERE task_id LIKE ? ORDER BY id DESC LIMIT 1`,
		prefix+"-%")
	var last string
	err := row.Scan(&last)
	next := 1
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", fmt.Errorf("read last task id: %w", err)
	default:
		parts := strings.SplitN(last, "-", 2)
		if len(parts) == 2 {
			if n, perr := strconv.Atoi(parts[1]); perr == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, next), nil
}

// SetParent updates a single task's parent reference and its updated
// timestamp, nothing else.
func (s *Store) SetParent(ctx context.Context, id int64, parentID *int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET parent_task_id=?, updated_at=? WHERE id=?`,
		parentID, now, id)
	if err != nil {
		return fmt.Errorf("update parent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task #%d: %w", id, model.ErrNotFound)
	}
	return nil
}

// Update writes all mutable columns of a task.
func (s *Store) Update(ctx context.Context, t *Task) error {
	labelsJSON, err := marshalList(t.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	tagsJSON, err := marshalList(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET title=?, description=?,
		domain_id=?, milestone_id=?, parent_task_id=?, labels=?, status=?,
		progress=?, priority=?, owner=?, due_date=?, start_date=?, blocker=?,
		health_score=?, tags=?, updated_at=? WHERE id=?`,
		t.Title, nullString(t.Description), refID(t.Domain), refID(t.Milestone),
		t.ParentID, labelsJSON, t.Status, t.Progress, t.Priority,
		nullString(t.Owner), nullString(t.DueDate), nullString(t.StartDate),
		nullString(t.Blocker), t.HealthScore, tagsJSON, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task #%d: %w", t.ID, model.ErrNotFound)
	}
	return nil
}

// UpdateWithHistory commits a state transition and its history entry as one
// transaction, so no partial update survives a failure.
func (s *Store) UpdateWithHistory(ctx context.Context, t *Task, progress int, summary string) error {
	labelsJSON, err := marshalList(t.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	tagsJSON, err := marshalList(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET status=?, progress=?,
		blocker=?, health_score=?, labels=?, tags=?, updated_at=? WHERE id=?`,
		t.Status, t.Progress, nullString(t.Blocker), t.HealthScore,
		labelsJSON, tagsJSON, t.UpdatedAt, t.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update task: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO progress_history(task_id, progress, summary, recorded_at)
		VALUES(?, ?, ?, ?)`,
		t.ID, progress, nullString(summary), t.UpdatedAt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("append history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// Delete hard-deletes a task row. The core never calls this; it backs the
// external delete endpoint only.
func (s *Store) Delete(ctx context.Context, taskID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE task_id=?`, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}
	return nil
}

// AddNote appends a note to a task.
func (s *Store) AddNote(ctx context.Context, taskID int64, content, author string) (*Note, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `INSERT INTO task_notes(task_id, content, author, created_at)
		VALUES(?, ?, ?, ?)`, taskID, content, nullString(author), now)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read note id: %w", err)
	}
	return &Note{ID: id, TaskID: taskID, Content: content, Author: author, CreatedAt: now}, nil
}

// Notes returns a task's notes, newest first.
func (s *Store) Notes(ctx context.Context, taskID int64) ([]*Note, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, content, author, created_at
		FROM task_notes WHERE task_id=? ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()
	var out []*Note
	for rows.Next() {
		var n Note
		var author sql.NullString
		if err := rows.Scan(&n.ID, &n.TaskID, &n.Content, &author, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.Author = author.String
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

// History returns a task's progress history, oldest first.
func (s *Store) History(ctx context.Context, taskID int64) ([]*HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, progress, summary, recorded_at
		FROM progress_history WHERE task_id=? ORDER BY recorded_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var out []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var summary sql.NullString
		if err := rows.Scan(&h.ID, &h.TaskID, &h.Progress, &summary, &h.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Summary = summary.String
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// Recommend returns planned/active candidates scoped to an owner (or
// unassigned) and optional domain, best first.
func (s *Store) Recommend(ctx context.Context, owner, domain string, limit int) ([]*Task, error) {
	query := `SELECT ` + taskCols + taskFrom + ` WHERE t.status IN (?, ?)`
	args := []any{model.StatusPlanned, model.StatusActive}
	if owner != "" {
		query += ` AND (t.owner=? OR t.owner IS NULL)`
		args = append(args, owner)
	}
	if domain != "" {
		query += ` AND d.name=?`
		args = append(args, domain)
	}
	query += ` ORDER BY CASE t.priority
		WHEN 'P0' THEN 0 WHEN 'P1' THEN 1 WHEN 'P2' THEN 2 ELSE 3 END ASC,
		t.due_date ASC LIMIT ?`
	args = append(args, limit)
	return s.queryTasks(ctx, query, args...)
}

// DomainByName resolves a domain name to its reference and task prefix.
// A miss is reported as (nil, "", nil); callers treat unresolved names as
// absent rather than failing.
func (s *Store) DomainByName(ctx context.Context, name string) (*Ref, string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, color, task_prefix FROM domains WHERE name=?`, name)
	var ref Ref
	var prefix string
	if err := row.Scan(&ref.ID, &ref.Name, &ref.Color, &prefix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read domain: %w", err)
	}
	return &ref, prefix, nil
}

// MilestoneByName resolves a milestone name; a miss yields nil.
func (s *Store) MilestoneByName(ctx context.Context, name string) (*Ref, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name FROM milestones WHERE name=?`, name)
	var ref Ref
	if err := row.Scan(&ref.ID, &ref.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read milestone: %w", err)
	}
	return &ref, nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func refID(r *Ref) any {
	if r == nil {
		return nil
	}
	return r.ID
}
