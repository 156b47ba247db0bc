package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/clawpm/internal/model"
)

// Member is a human or agent whose identifier appears in task owner fields.
type Member struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Identifier  string `json:"identifier"`
	Type        string `json:"type"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// CreateMember inserts a member.
func (s *Store) CreateMember(ctx context.Context, name, identifier, memberType, color, description string) (*Member, error) {
	if name == "" || identifier == "" {
		return nil, fmt.Errorf("member name and identifier are required: %w", model.ErrValidation)
	}
	if memberType == "" {
		memberType = "human"
	}
	if color == "" {
		color = defaultColor
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `INSERT INTO members(name, identifier, type, color, description, created_at)
		VALUES(?, ?, ?, ?, ?, ?)`, name, identifier, memberType, color, nullable(description), now)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read member id: %w", err)
	}
	return &Member{ID: id, Name: name, Identifier: identifier, Type: memberType, Color: color, Description: description, CreatedAt: now}, nil
}

// ListMembers returns members, optionally filtered by type.
func (s *Store) ListMembers(ctx context.Context, memberType string) ([]*Member, error) {
	query := `SELECT id, name, identifier, type, color, description, created_at FROM members`
	var args []any
	if memberType != "" {
		query += ` WHERE type=?`
		args = append(args, memberType)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()
	var out []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

// GetMember fetches a member by identifier.
func (s *Store) GetMember(ctx context.Context, identifier string) (*Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, identifier, type, color, description, created_at
		FROM members WHERE identifier=?`, identifier)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("member %s: %w", identifier, model.ErrNotFound)
		}
		return nil, fmt.Errorf("read member: %w", err)
	}
	return m, nil
}

// UpdateMember applies a partial update by identifier.
func (s *Store) UpdateMember(ctx context.Context, identifier, name, memberType, color, description string) (*Member, error) {
	cur, err := s.GetMember(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if name != "" {
		cur.Name = name
	}
	if memberType != "" {
		cur.Type = memberType
	}
	if color != "" {
		cur.Color = color
	}
	if description != "" {
		cur.Description = description
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE members SET name=?, type=?, color=?, description=? WHERE identifier=?`,
		cur.Name, cur.Type, cur.Color, nullable(cur.Description), identifier); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return cur, nil
}

// DeleteMember removes a member by identifier.
func (s *Store) DeleteMember(ctx context.Context, identifier string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE identifier=?`, identifier)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", identifier, model.ErrNotFound)
	}
	return nil
}

func scanMember(row interface{ Scan(...any) error }) (*Member, error) {
	var m Member
	var description sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &m.Identifier, &m.Type, &m.Color, &description, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Description = description.String
	return &m, nil
}
