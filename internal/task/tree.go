package task

import "context"

// GetChildren returns a task's direct children, one level only.
func (s *Service) GetChildren(ctx context.Context, taskID string) ([]*Task, error) {
	t, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.store.Children(ctx, t.ID)
}

// GetTree returns the nested forest of tasks matching the filters. Every
// ancestor of a match is pulled into the result even when it does not match
// itself, so a filtered view never shows orphaned fragments of the tree.
// Roots are the included tasks whose parent is not included.
func (s *Service) GetTree(ctx context.Context, f Filters) ([]*TreeNode, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	included := make(map[int64]bool, len(all))
	for _, t := range all {
		if matchesFilters(t, f) {
			included[t.ID] = true
			// Pull in the ancestor path so the match stays attached.
			for cur := t.ParentID; cur != nil; {
				if included[*cur] {
					break
				}
				included[*cur] = true
				parent, ok := byID[*cur]
				if !ok {
					break
				}
				cur = parent.ParentID
			}
		}
	}

	nodes := make(map[int64]*TreeNode, len(included))
	for _, t := range all {
		if included[t.ID] {
			nodes[t.ID] = &TreeNode{Task: t, Children: []*TreeNode{}}
		}
	}

	var roots []*TreeNode
	for _, t := range all {
		node, ok := nodes[t.ID]
		if !ok {
			continue
		}
		if t.ParentID != nil && included[*t.ParentID] {
			parent := nodes[*t.ParentID]
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots, nil
}

func matchesFilters(t *Task, f Filters) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Owner != "" && t.Owner != f.Owner {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Domain != "" && (t.Domain == nil || t.Domain.Name != f.Domain) {
		return false
	}
	if f.Milestone != "" && (t.Milestone == nil || t.Milestone.Name != f.Milestone) {
		return false
	}
	if f.Label != "" {
		found := false
		for _, l := range t.Labels {
			if l == f.Label {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
