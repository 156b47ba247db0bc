// Package backlog manages the pre-scheduling requirement pool and its
// promotion into tracked tasks.
package backlog

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

// Item is an unscheduled requirement in the pool.
type Item struct {
	ID              int64    `json:"id"`
	BacklogID       string   `json:"backlog_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Domain          string   `json:"domain,omitempty"`
	Priority        string   `json:"priority"`
	Source          string   `json:"source,omitempty"`
	SourceContext   string   `json:"source_context,omitempty"`
	EstimatedScope  string   `json:"estimated_scope,omitempty"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	ScheduledTaskID *int64   `json:"scheduled_task_id,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// CreateParams are the inputs for pooling a new requirement.
type CreateParams struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Domain         string   `json:"domain,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	Source         string   `json:"source,omitempty"`
	SourceContext  string   `json:"source_context,omitempty"`
	EstimatedScope string   `json:"estimated_scope,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// UpdateParams are partial edits to a pooled item. Nil fields are
// left untouched.
type UpdateParams struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Priority       *string  `json:"priority,omitempty"`
	Status         *string  `json:"status,omitempty"`
	EstimatedScope *string  `json:"estimated_scope,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// Filters narrow backlog listings.
type Filters struct {
	Domain   string
	Priority string
	Status   string
}

// Store manages backlog persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a backlog store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const itemCols = `b.id, b.backlog_id, b.title, b.description, d.name, b.priority,
	b.source, b.source_context, b.estimated_scope, b.tags, b.status,
	b.scheduled_task_id, b.created_at, b.updated_at`

const itemFrom = ` FROM backlog_items b LEFT JOIN domains d ON d.id = b.domain_id`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	var description, domain, source, sourceContext, estimatedScope sql.NullString
	var scheduledTaskID sql.NullInt64
	var tagsJSON string
	err := row.Scan(&it.ID, &it.BacklogID, &it.Title, &description, &domain,
		&it.Priority, &source, &sourceContext, &estimatedScope, &tagsJSON,
		&it.Status, &scheduledTaskID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Description = description.String
	it.Domain = domain.String
	it.Source = source.String
	it.SourceContext = sourceContext.String
	it.EstimatedScope = estimatedScope.String
	if scheduledTaskID.Valid {
		it.ScheduledTaskID = &scheduledTaskID.Int64
	}
	if err := json.Unmarshal([]byte(tagsJSON), &it.Tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	return &it, nil
}

// Create pools a new requirement with a fresh BL- id.
func (s *Store) Create(ctx context.Context, p CreateParams) (*Item, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", model.ErrValidation)
	}
	priority := p.Priority
	if priority == "" {
		priority = model.PriorityP2
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("unknown priority %q: %w", p.Priority, model.ErrValidation)
	}

	var domainID *int64
	if p.Domain != "" {
		row := s.db.QueryRowContext(ctx, `SELECT id FROM domains WHERE name=?`, p.Domain)
		var id int64
		switch err := row.Scan(&id); {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("read domain: %w", err)
		default:
			domainID = &id
		}
	}

	backlogID, err := s.nextBacklogID(ctx)
	if err != nil {
		return nil, err
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO backlog_items(backlog_id, title,
		description, domain_id, priority, source, source_context, estimated_scope,
		tags, status, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, 'pool', ?, ?)`,
		backlogID, p.Title, nullable(p.Description), domainID, priority,
		nullable(p.Source), nullable(p.SourceContext), nullable(p.EstimatedScope),
		string(tagsJSON), now, now); err != nil {
		return nil, fmt.Errorf("insert backlog item: %w", err)
	}
	return s.Get(ctx, backlogID)
}

// Get fetches an item by backlog id.
func (s *Store) Get(ctx context.Context, backlogID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+itemFrom+` WHERE b.backlog_id=?`, backlogID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("backlog item %s: %w", backlogID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read backlog item: %w", err)
	}
	return it, nil
}

// List returns items matching the filters, newest first.
func (s *Store) List(ctx context.Context, f Filters) ([]*Item, error) {
	query := `SELECT ` + itemCols + itemFrom
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "b.status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		conds = append(conds, "b.priority=?")
		args = append(args, f.Priority)
	}
	if f.Domain != "" {
		conds = append(conds, "d.name=?")
		args = append(args, f.Domain)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY b.created_at DESC, b.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query backlog: %w", err)
	}
	defer rows.Close()
	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backlog item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backlog: %w", err)
	}
	return out, nil
}

// Update applies partial edits to a pooled item.
func (s *Store) Update(ctx context.Context, backlogID string, p UpdateParams) (*Item, error) {
	it, err := s.Get(ctx, backlogID)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, fmt.Errorf("title is required: %w", model.ErrValidation)
		}
		it.Title = *p.Title
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Priority != nil {
		if !model.ValidPriority(*p.Priority) {
			return nil, fmt.Errorf("unknown priority %q: %w", *p.Priority, model.ErrValidation)
		}
		it.Priority = *p.Priority
	}
	if p.Status != nil {
		switch *p.Status {
		case "pool", "scheduled", "rejected":
		default:
			return nil, fmt.Errorf("unknown backlog status %q: %w", *p.Status, model.ErrValidation)
		}
		it.Status = *p.Status
	}
	if p.EstimatedScope != nil {
		it.EstimatedScope = *p.EstimatedScope
	}
	if p.Tags != nil {
		it.Tags = p.Tags
	}
	tagsJSON, err := json.Marshal(it.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `UPDATE backlog_items SET title=?, description=?,
		priority=?, status=?, estimated_scope=?, tags=?, updated_at=? WHERE backlog_id=?`,
		it.Title, nullable(it.Description), it.Priority, it.Status,
		nullable(it.EstimatedScope), string(tagsJSON), now, backlogID); err != nil {
		return nil, fmt.Errorf("update backlog item: %w", err)
	}
	return s.Get(ctx, backlogID)
}

// MarkScheduled flips an item to scheduled and records the created task.
func (s *Store) MarkScheduled(ctx context.Context, backlogID string, taskID int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `UPDATE backlog_items SET status='scheduled',
		scheduled_task_id=?, updated_at=? WHERE backlog_id=?`, taskID, now, backlogID)
	if err != nil {
		return fmt.Errorf("update backlog item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("backlog item %s: %w", backlogID, model.ErrNotFound)
	}
	return nil
}

func (s *Store) nextBacklogID(ctx context.Context) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT backlog_id FROM backlog_items ORDER BY id DESC LIMIT 1`)
	var last string
	err := row.Scan(&last)
	next := 1
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", fmt.Errorf("read last backlog id: %w", err)
	default:
		parts := strings.SplitN(last, "-", 2)
		if len(parts) == 2 {
			if n, perr := strconv.Atoi(parts[1]); perr == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("BL-%03d", next), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
