package backlog

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/clawpm/internal/task"
)

// ScheduleParams carry the scheduling decision for a pooled item.
type ScheduleParams struct {
	Milestone string `json:"milestone,omitempty"`
	Owner     string `json:"owner,omitempty"`
	DueDate   string `json:"due_date,omitempty"`
	Priority  string `json:"priority,omitempty"`
}

// Service promotes backlog items into tracked tasks.
type Service struct {
	store *Store
	tasks *task.Service
}

// NewService creates a backlog service.
func NewService(store *Store, tasks *task.Service) *Service {
	return &Service{store: store, tasks: tasks}
}

// Create pools a new requirement.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Item, error) {
	return s.store.Create(ctx, p)
}

// Get fetches an item by backlog id.
func (s *Service) Get(ctx context.Context, backlogID string) (*Item, error) {
	return s.store.Get(ctx, backlogID)
}

// Update applies partial edits to a pooled item.
func (s *Service) Update(ctx context.Context, backlogID string, p UpdateParams) (*Item, error) {
	return s.store.Update(ctx, backlogID, p)
}

// List returns items matching the filters.
func (s *Service) List(ctx context.Context, f Filters) ([]*Item, error) {
	return s.store.List(ctx, f)
}

// Schedule turns a pooled item into a task, inheriting the item's domain,
// tags, and priority unless the schedule overrides them.
func (s *Service) Schedule(ctx context.Context, backlogID string, p ScheduleParams) (*task.Task, error) {
	item, err := s.store.Get(ctx, backlogID)
	if err != nil {
		return nil, err
	}

	priority := p.Priority
	if priority == "" {
		priority = item.Priority
	}
	t, err := s.tasks.Create(ctx, task.CreateParams{
		Title:       item.Title,
		Description: item.Description,
		Domain:      item.Domain,
		Milestone:   p.Milestone,
		Owner:       p.Owner,
		DueDate:     p.DueDate,
		Priority:    priority,
		Source:      "backlog",
		Tags:        item.Tags,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkScheduled(ctx, backlogID, t.ID); err != nil {
		return nil, err
	}
	log.Debug().Str("backlog", backlogID).Str("task", t.TaskID).Msg("backlog item scheduled")
	return t, nil
}
