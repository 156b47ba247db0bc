package reqlink

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/clawpm/internal/graph"
	"github.com/metalagman/clawpm/internal/model"
	"github.com/metalagman/clawpm/internal/task"
)

// Service owns link mutations. The check-then-insert sequence for
// ordering-sensitive types runs under one mutex so two concurrent creates
// cannot jointly close a cycle.
type Service struct {
	store *Store
	tasks *task.Store
	mu    sync.Mutex
}

// NewService creates a link service.
func NewService(store *Store, tasks *task.Store) *Service {
	return &Service{store: store, tasks: tasks}
}

// Create adds a typed edge between two tasks. Self-links are invalid; for
// blocks and precedes the edge is rejected when it would close a cycle in
// that type's subgraph. An identical existing triple is returned as-is.
func (s *Service) Create(ctx context.Context, sourceTaskID, targetTaskID, linkType string) (*Link, error) {
	if !model.ValidLinkType(linkType) {
		return nil, fmt.Errorf("unknown link type %q: %w", linkType, model.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.tasks.GetByTaskID(ctx, sourceTaskID)
	if err != nil {
		return nil, err
	}
	tgt, err := s.tasks.GetByTaskID(ctx, targetTaskID)
	if err != nil {
		return nil, err
	}
	if src.ID == tgt.ID {
		return nil, fmt.Errorf("task %s cannot link to itself: %w", sourceTaskID, model.ErrInvalidLink)
	}

	if model.OrderingSensitive(linkType) {
		// If the source is reachable from the target over same-typed edges,
		// adding source->target closes a cycle.
		reachable, err := graph.Reachable(func(n int64) ([]int64, error) {
			return s.store.TargetsFrom(ctx, n, linkType)
		}, tgt.ID, src.ID)
		if err != nil {
			return nil, err
		}
		if reachable {
			return nil, fmt.Errorf("%s link %s->%s would close a cycle: %w",
				linkType, sourceTaskID, targetTaskID, model.ErrCycle)
		}
	}

	existing, err := s.store.Find(ctx, src.ID, tgt.ID, linkType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	l := &Link{SourceTaskID: src.ID, TargetTaskID: tgt.ID, LinkType: linkType}
	if err := s.store.Insert(ctx, l); err != nil {
		return nil, err
	}
	log.Debug().Str("source", sourceTaskID).Str("target", targetTaskID).
		Str("type", linkType).Msg("link created")
	return l, nil
}

// Delete removes a link by id. Deleting an unknown id succeeds as a no-op.
func (s *Service) Delete(ctx context.Context, linkID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, linkID)
}

// ListForTask returns all links where the task is source or target.
func (s *Service) ListForTask(ctx context.Context, taskID string) ([]*Link, error) {
	t, err := s.tasks.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.store.ListForTask(ctx, t.ID)
}

// ListAll returns the full edge set.
func (s *Service) ListAll(ctx context.Context) ([]*Link, error) {
	return s.store.ListAll(ctx)
}

// Enrich attaches human-facing task ids to links for rendering and export.
func (s *Service) Enrich(ctx context.Context, links []*Link) ([]*EnrichedLink, error) {
	names, err := s.store.TaskIDNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*EnrichedLink, len(links))
	for i, l := range links {
		e := &EnrichedLink{Link: *l}
		e.SourceTaskStrID = names[l.SourceTaskID]
		if e.SourceTaskStrID == "" {
			e.SourceTaskStrID = strconv.FormatInt(l.SourceTaskID, 10)
		}
		e.TargetTaskStrID = names[l.TargetTaskID]
		if e.TargetTaskStrID == "" {
			e.TargetTaskStrID = strconv.FormatInt(l.TargetTaskID, 10)
		}
		out[i] = e
	}
	return out, nil
}
