package reqlink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store manages link persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a link store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const linkCols = `id, source_task_id, target_task_id, link_type, created_at`

func scanLink(row interface{ Scan(...any) error }) (*Link, error) {
	var l Link
	if err := row.Scan(&l.ID, &l.SourceTaskID, &l.TargetTaskID, &l.LinkType, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// Insert writes a new link row and fills in its id.
func (s *Store) Insert(ctx context.Context, l *Link) error {
	l.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `INSERT INTO req_links(source_task_id, target_task_id, link_type, created_at)
		VALUES(?, ?, ?, ?)`, l.SourceTaskID, l.TargetTaskID, l.LinkType, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read link id: %w", err)
	}
	l.ID = id
	return nil
}

// Find returns the link with the exact (source, target, type) triple, or nil.
func (s *Store) Find(ctx context.Context, sourceID, targetID int64, linkType string) (*Link, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+linkCols+` FROM req_links
		WHERE source_task_id=? AND target_task_id=? AND link_type=?`,
		sourceID, targetID, linkType)
	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read link: %w", err)
	}
	return l, nil
}

// Delete removes a link by id. Missing ids are a no-op.
func (s *Store) Delete(ctx context.Context, linkID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM req_links WHERE id=?`, linkID); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// ListForTask returns links touching a task in either direction.
func (s *Store) ListForTask(ctx context.Context, taskID int64) ([]*Link, error) {
	return s.queryLinks(ctx, `SELECT `+linkCols+` FROM req_links
		WHERE source_task_id=? OR target_task_id=? ORDER BY id`, taskID, taskID)
}

// ListAll returns the full edge set. O(edge count); fine for the expected
// scale of hundreds to low thousands of links.
func (s *Store) ListAll(ctx context.Context) ([]*Link, error) {
	return s.queryLinks(ctx, `SELECT `+linkCols+` FROM req_links ORDER BY id`)
}

// TargetsFrom returns the targets of same-typed edges out of a task. This is
// the adjacency used by the cycle check.
func (s *Store) TargetsFrom(ctx context.Context, sourceID int64, linkType string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT target_task_id FROM req_links
		WHERE source_task_id=? AND link_type=?`, sourceID, linkType)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return out, nil
}

func (s *Store) queryLinks(ctx context.Context, query string, args ...any) ([]*Link, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()
	var out []*Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return out, nil
}

// TaskIDNames returns the numeric-to-human id mapping for all tasks,
// used to enrich links for rendering.
func (s *Store) TaskIDNames(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("query task ids: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]string)
	for rows.Next() {
		var id int64
		var taskID string
		if err := rows.Scan(&id, &taskID); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		out[id] = taskID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task ids: %w", err)
	}
	return out, nil
}
