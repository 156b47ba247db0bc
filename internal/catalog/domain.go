// Package catalog manages the lookup tables consumed by the task core:
// domains, milestones, members, and goals with their objectives.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/clawpm/internal/model"
)

// Domain is a business area; its task prefix seeds task id generation.
type Domain struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	TaskPrefix string   `json:"task_prefix"`
	Keywords   []string `json:"keywords"`
	Color      string   `json:"color"`
	CreatedAt  string   `json:"created_at"`
}

// Store manages the lookup tables.
type Store struct {
	db *sql.DB
}

// NewStore creates a catalog store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const defaultColor = "#6366f1"

// CreateDomain inserts a domain.
func (s *Store) CreateDomain(ctx context.Context, name, taskPrefix string, keywords []string, color string) (*Domain, error) {
	if name == "" || taskPrefix == "" {
		return nil, fmt.Errorf("domain name and task prefix are required: %w", model.ErrValidation)
	}
	if color == "" {
		color = defaultColor
	}
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `INSERT INTO domains(name, task_prefix, keywords, color, created_at)
		VALUES(?, ?, ?, ?, ?)`, name, taskPrefix, string(keywordsJSON), color, now)
	if err != nil {
		return nil, fmt.Errorf("insert domain: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read domain id: %w", err)
	}
	return &Domain{ID: id, Name: name, TaskPrefix: taskPrefix, Keywords: keywords, Color: color, CreatedAt: now}, nil
}

// ListDomains returns all domains.
func (s *Store) ListDomains(ctx context.Context) ([]*Domain, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, task_prefix, keywords, color, created_at
		FROM domains ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()
	var out []*Domain
	for rows.Next() {
		var d Domain
		var keywordsJSON string
		if err := rows.Scan(&d.ID, &d.Name, &d.TaskPrefix, &keywordsJSON, &d.Color, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &d.Keywords); err != nil {
			return nil, fmt.Errorf("parse keywords: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return out, nil
}

// GetDomain fetches a domain by name.
func (s *Store) GetDomain(ctx context.Context, name string) (*Domain, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, task_prefix, keywords, color, created_at
		FROM domains WHERE name=?`, name)
	var d Domain
	var keywordsJSON string
	if err := row.Scan(&d.ID, &d.Name, &d.TaskPrefix, &keywordsJSON, &d.Color, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("domain %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("read domain: %w", err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &d.Keywords); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	return &d, nil
}
