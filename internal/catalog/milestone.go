package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/metalagman/clawpm/internal/model"
)

// Milestone is a delivery checkpoint tasks can reference.
type Milestone struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TargetDate  string `json:"target_date,omitempty"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// MilestoneReport is a milestone with its task completion rollup.
type MilestoneReport struct {
	Milestone
	TaskCount int `json:"task_count"`
	DoneCount int `json:"done_count"`
	Progress  int `json:"progress"`
}

// CreateMilestone inserts a milestone.
func (s *Store) CreateMilestone(ctx context.Context, name, targetDate, description string) (*Milestone, error) {
	if name == "" {
		return nil, fmt.Errorf("milestone name is required: %w", model.ErrValidation)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `INSERT INTO milestones(name, target_date, status, description, created_at)
		VALUES(?, ?, 'active', ?, ?)`, name, nullable(targetDate), nullable(description), now)
	if err != nil {
		return nil, fmt.Errorf("insert milestone: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read milestone id: %w", err)
	}
	return &Milestone{ID: id, Name: name, TargetDate: targetDate, Status: "active", Description: description, CreatedAt: now}, nil
}

// ListMilestones returns all milestones with their task rollups.
func (s *Store) ListMilestones(ctx context.Context) ([]*MilestoneReport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT m.id, m.name, m.target_date, m.status, m.description, m.created_at,
		COUNT(t.id), COALESCE(SUM(CASE WHEN t.status='done' THEN 1 ELSE 0 END), 0)
		FROM milestones m
		LEFT JOIN tasks t ON t.milestone_id = m.id
		GROUP BY m.id ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer rows.Close()
	var out []*MilestoneReport
	for rows.Next() {
		var r MilestoneReport
		var targetDate, description sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &targetDate, &r.Status, &description, &r.CreatedAt,
			&r.TaskCount, &r.DoneCount); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		r.TargetDate = targetDate.String
		r.Description = description.String
		if r.TaskCount > 0 {
			r.Progress = int(math.Round(float64(r.DoneCount) / float64(r.TaskCount) * 100))
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return out, nil
}

// UpdateMilestone applies a partial update by id.
func (s *Store) UpdateMilestone(ctx context.Context, id int64, name, targetDate, status, description string) (*Milestone, error) {
	cur, err := s.getMilestone(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		cur.Name = name
	}
	if targetDate != "" {
		cur.TargetDate = targetDate
	}
	if status != "" {
		cur.Status = status
	}
	if description != "" {
		cur.Description = description
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE milestones SET name=?, target_date=?, status=?, description=? WHERE id=?`,
		cur.Name, nullable(cur.TargetDate), cur.Status, nullable(cur.Description), id); err != nil {
		return nil, fmt.Errorf("update milestone: %w", err)
	}
	return cur, nil
}

func (s *Store) getMilestone(ctx context.Context, id int64) (*Milestone, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, target_date, status, description, created_at
		FROM milestones WHERE id=?`, id)
	var m Milestone
	var targetDate, description sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &targetDate, &m.Status, &description, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("milestone #%d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("read milestone: %w", err)
	}
	m.TargetDate = targetDate.String
	m.Description = description.String
	return &m, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
