package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/clawpm/internal/model"
)

// Goal is a strategic target broken down into weighted objectives.
type Goal struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	TargetDate      string       `json:"target_date,omitempty"`
	Status          string       `json:"status"`
	SetBy           string       `json:"set_by,omitempty"`
	OverallProgress int          `json:"overall_progress"`
	Health          string       `json:"health"`
	Objectives      []*Objective `json:"objectives,omitempty"`
	CreatedAt       string       `json:"created_at"`
}

// Objective is one measurable line item under a goal.
type Objective struct {
	ID       int64   `json:"id"`
	GoalID   int64   `json:"goal_id"`
	Title    string  `json:"title"`
	Weight   float64 `json:"weight"`
	Progress int     `json:"progress"`
	Status   string  `json:"status"`
}

// ObjectiveInput describes an objective supplied at goal creation.
type ObjectiveInput struct {
	Title  string  `json:"title"`
	Weight float64 `json:"weight,omitempty"`
}

// CreateGoal inserts a goal and any supplied objectives in one transaction.
func (s *Store) CreateGoal(ctx context.Context, title, description, targetDate, setBy string, objectives []ObjectiveInput) (*Goal, error) {
	if title == "" {
		return nil, fmt.Errorf("goal title is required: %w", model.ErrValidation)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin goal tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO goals(title, description, target_date, set_by, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)`, title, nullable(description), nullable(targetDate), nullable(setBy), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read goal id: %w", err)
	}
	g := &Goal{ID: id, Title: title, Description: description, TargetDate: targetDate,
		Status: "active", SetBy: setBy, Health: "green", CreatedAt: now}
	for _, in := range objectives {
		weight := in.Weight
		if weight == 0 {
			weight = 1.0
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO objectives(goal_id, title, weight, created_at)
			VALUES(?, ?, ?, ?)`, id, in.Title, weight, now)
		if err != nil {
			return nil, fmt.Errorf("insert objective: %w", err)
		}
		objID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("read objective id: %w", err)
		}
		g.Objectives = append(g.Objectives, &Objective{ID: objID, GoalID: id, Title: in.Title,
			Weight: weight, Status: "not-started"})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit goal: %w", err)
	}
	return g, nil
}

// ListGoals returns all goals with their objectives attached.
func (s *Store) ListGoals(ctx context.Context) ([]*Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, target_date, status, set_by,
		overall_progress, health, created_at FROM goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()
	var out []*Goal
	byID := map[int64]*Goal{}
	for rows.Next() {
		var g Goal
		var description, targetDate, setBy sql.NullString
		if err := rows.Scan(&g.ID, &g.Title, &description, &targetDate, &g.Status, &setBy,
			&g.OverallProgress, &g.Health, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Description = description.String
		g.TargetDate = targetDate.String
		g.SetBy = setBy.String
		out = append(out, &g)
		byID[g.ID] = &g
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	objRows, err := s.db.QueryContext(ctx, `SELECT id, goal_id, title, weight, progress, status
		FROM objectives ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query objectives: %w", err)
	}
	defer objRows.Close()
	for objRows.Next() {
		var o Objective
		if err := objRows.Scan(&o.ID, &o.GoalID, &o.Title, &o.Weight, &o.Progress, &o.Status); err != nil {
			return nil, fmt.Errorf("scan objective: %w", err)
		}
		if g, ok := byID[o.GoalID]; ok {
			g.Objectives = append(g.Objectives, &o)
		}
	}
	if err := objRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objectives: %w", err)
	}
	return out, nil
}

// LinkObjectiveTask attaches a task to an objective. The task is addressed by
// its human id (T-001 style).
func (s *Store) LinkObjectiveTask(ctx context.Context, objectiveID int64, taskID string) error {
	var objID int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM objectives WHERE id=?`, objectiveID).Scan(&objID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("objective #%d: %w", objectiveID, model.ErrNotFound)
		}
		return fmt.Errorf("read objective: %w", err)
	}
	var taskRowID int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM tasks WHERE task_id=?`, taskID).Scan(&taskRowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
		}
		return fmt.Errorf("read task: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO objective_task_links(objective_id, task_id)
		VALUES(?, ?)`, objID, taskRowID); err != nil {
		return fmt.Errorf("insert objective task link: %w", err)
	}
	return nil
}
