package task

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/clawpm/internal/graph"
	"github.com/metalagman/clawpm/internal/model"
)

const (
	defaultPrefix = "T"
	legacyType    = "task"
)

// Service owns task mutations. Every check-then-write sequence (id
// generation, reparent cycle check) runs under one mutex so concurrent
// writers cannot race past each other's validation.
type Service struct {
	store *Store
	mu    sync.Mutex
}

// NewService creates a task service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Store exposes the underlying store for read-only collaborators.
func (s *Service) Store() *Store {
	return s.store
}

// Create validates and inserts a new task. Unresolvable domain or milestone
// names are ignored; a missing parent task is an error.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Task, error) {
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
	status := p.Status
	if status == "" {
		status = model.StatusPlanned
	}
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", p.Status, model.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := defaultPrefix
	var domain *Ref
	if p.Domain != "" {
		ref, domainPrefix, err := s.store.DomainByName(ctx, p.Domain)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			domain = ref
			prefix = domainPrefix
		}
	}
	var milestone *Ref
	if p.Milestone != "" {
		ref, err := s.store.MilestoneByName(ctx, p.Milestone)
		if err != nil {
			return nil, err
		}
		milestone = ref
	}

	var parentID *int64
	if p.ParentTaskID != "" {
		parent, err := s.store.GetByTaskID(ctx, p.ParentTaskID)
		if err != nil {
			return nil, err
		}
		parentID = &parent.ID
	}

	taskID, err := s.store.NextTaskID(ctx, prefix)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	labels := p.Labels
	if len(labels) == 0 {
		// One-time seeding from the legacy single-valued type.
		labels = []string{legacyType}
	}
	startDate := p.StartDate
	if startDate == "" {
		startDate = now.Format(dateLayout)
	}
	source := p.Source
	if source == "" {
		source = "planned"
	}

	t := &Task{
		TaskID:      taskID,
		Title:       p.Title,
		Description: p.Description,
		ParentID:    parentID,
		Labels:      labels,
		Status:      status,
		Progress:    0,
		Priority:    priority,
		Owner:       p.Owner,
		DueDate:     p.DueDate,
		StartDate:   startDate,
		Source:      source,
		HealthScore: HealthScore(p.DueDate, 0, false, now),
		Tags:        p.Tags,
		Domain:      domain,
		Milestone:   milestone,
		CreatedAt:   now.Format(time.RFC3339),
		UpdatedAt:   now.Format(time.RFC3339),
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return nil, err
	}
	log.Debug().Str("task", t.TaskID).Str("title", t.Title).Msg("task created")
	return t, nil
}

// Get fetches a task by its human-facing id.
func (s *Service) Get(ctx context.Context, taskID string) (*Task, error) {
	return s.store.GetByTaskID(ctx, taskID)
}

// List returns tasks matching the filters in default order.
func (s *Service) List(ctx context.Context, f Filters) ([]*Task, error) {
	return s.store.List(ctx, f)
}

// Reparent moves a task under a new parent, or detaches it when newParentID
// is empty. Moving a task into itself or its own subtree is rejected.
func (s *Service) Reparent(ctx context.Context, taskID, newParentID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.resolveParent(ctx, t, newParentID); err != nil {
		return nil, err
	}
	if err := s.store.SetParent(ctx, t.ID, t.ParentID); err != nil {
		return nil, err
	}
	log.Debug().Str("task", taskID).Str("parent", newParentID).Msg("task reparented")
	return s.store.GetByTaskID(ctx, taskID)
}

// resolveParent validates a parent change against the hierarchy and sets
// t.ParentID without persisting. The reachability check starts at the
// candidate parent and walks child edges looking for the moved task; the
// zero-length path covers the move-into-self case.
func (s *Service) resolveParent(ctx context.Context, t *Task, newParentID string) error {
	if newParentID == "" {
		t.ParentID = nil
		return nil
	}
	parent, err := s.store.GetByTaskID(ctx, newParentID)
	if err != nil {
		return err
	}
	reachable, err := graph.Reachable(func(n int64) ([]int64, error) {
		return s.store.ChildIDs(ctx, n)
	}, parent.ID, t.ID)
	if err != nil {
		return err
	}
	if reachable {
		return fmt.Errorf("task %s is an ancestor of %s: %w", t.TaskID, newParentID, model.ErrCycle)
	}
	t.ParentID = &parent.ID
	return nil
}

// Update applies a partial field set. A present ParentTaskID goes through
// the reparent validation, including the cycle check.
func (s *Service) Update(ctx context.Context, taskID string, p UpdateParams) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, fmt.Errorf("title is required: %w", model.ErrValidation)
		}
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		if !model.ValidStatus(*p.Status) {
			return nil, fmt.Errorf("unknown status %q: %w", *p.Status, model.ErrValidation)
		}
		t.Status = *p.Status
	}
	if p.Priority != nil {
		if !model.ValidPriority(*p.Priority) {
			return nil, fmt.Errorf("unknown priority %q: %w", *p.Priority, model.ErrValidation)
		}
		t.Priority = *p.Priority
	}
	if p.Owner != nil {
		t.Owner = *p.Owner
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.Blocker != nil {
		t.Blocker = *p.Blocker
	}
	if p.Labels != nil {
		t.Labels = *p.Labels
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.Domain != nil {
		ref, _, err := s.store.DomainByName(ctx, *p.Domain)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			t.Domain = ref
		}
	}
	if p.Milestone != nil {
		ref, err := s.store.MilestoneByName(ctx, *p.Milestone)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			t.Milestone = ref
		}
	}
	if p.ParentTaskID != nil {
		if err := s.resolveParent(ctx, t, *p.ParentTaskID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	t.HealthScore = HealthScore(t.DueDate, t.Progress, t.Blocker != "", now)
	t.UpdatedAt = now.Format(time.RFC3339)
	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}
	return s.store.GetByTaskID(ctx, taskID)
}

// UpdateProgress records a progress value. Reaching 100 forces done;
// progress on a planned task advances it to active; an increase clears any
// blocker. The history entry and the field update commit together.
func (s *Service) UpdateProgress(ctx context.Context, taskID string, progress int, summary string) (*Task, error) {
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("progress %d out of range 0-100: %w", progress, model.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	switch {
	case progress >= 100:
		t.Status = model.StatusDone
	case t.Status == model.StatusPlanned:
		// Progress happening implies work has started.
		t.Status = model.StatusActive
	}
	if progress > t.Progress {
		t.Blocker = ""
	}
	now := time.Now().UTC()
	t.Progress = progress
	t.HealthScore = HealthScore(t.DueDate, progress, t.Blocker != "", now)
	t.UpdatedAt = now.Format(time.RFC3339)

	if err := s.store.UpdateWithHistory(ctx, t, progress, summary); err != nil {
		return nil, err
	}
	log.Debug().Str("task", taskID).Int("progress", progress).Msg("progress updated")
	return s.store.GetByTaskID(ctx, taskID)
}

// Complete is an override: done, progress 100, blocker cleared, health 100,
// regardless of the current state.
func (s *Service) Complete(ctx context.Context, taskID, summary string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if summary == "" {
		summary = "completed"
	}
	t.Status = model.StatusDone
	t.Progress = 100
	t.Blocker = ""
	t.HealthScore = 100
	t.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.UpdateWithHistory(ctx, t, 100, summary); err != nil {
		return nil, err
	}
	log.Debug().Str("task", taskID).Msg("task completed")
	return s.store.GetByTaskID(ctx, taskID)
}

// ReportBlocker records blocker text and forces the task into the blocked
// status. The health score is recomputed from the new blocker state.
func (s *Service) ReportBlocker(ctx context.Context, taskID, blocker string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	t.Blocker = blocker
	t.Status = model.StatusBlocked
	t.HealthScore = HealthScore(t.DueDate, t.Progress, t.Blocker != "", now)
	t.UpdatedAt = now.Format(time.RFC3339)

	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}
	log.Debug().Str("task", taskID).Msg("blocker reported")
	return s.store.GetByTaskID(ctx, taskID)
}

// AddNote appends an immutable note to a task.
func (s *Service) AddNote(ctx context.Context, taskID, content, author string) (*Note, error) {
	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.store.AddNote(ctx, t.ID, content, author)
}

// Notes returns a task's notes, newest first.
func (s *Service) Notes(ctx context.Context, taskID string) ([]*Note, error) {
	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.store.Notes(ctx, t.ID)
}

// History returns a task's progress history, oldest first.
func (s *Service) History(ctx context.Context, taskID string) ([]*HistoryEntry, error) {
	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.store.History(ctx, t.ID)
}

// RecommendNext picks the best planned/active candidate for an owner and
// optional domain. Returns nil when nothing is available.
func (s *Service) RecommendNext(ctx context.Context, owner, domain string) (*Task, error) {
	candidates, err := s.store.Recommend(ctx, owner, domain, 10)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return candidates[0], nil
}

// Delete hard-deletes a task. Offered to external callers only; the core
// models cancellation as a status, not row removal.
func (s *Service) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, taskID)
}
