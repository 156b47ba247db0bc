package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/metalagman/clawpm/internal/model"
)

// TestHierarchyStaysAForest drives random create and reparent operations
// against the service and checks that the parent chain of every task still
// terminates at a root.
func TestHierarchyStaysAForest(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()

		n := rapid.IntRange(2, 12).Draw(rt, "num_tasks")
		ids := make([]string, 0, n)
		for i := 0; i < n; i++ {
			created, err := svc.Create(ctx, CreateParams{Title: fmt.Sprintf("task %d", i)})
			if err != nil {
				rt.Fatalf("create: %v", err)
			}
			ids = append(ids, created.TaskID)
		}

		moves := rapid.IntRange(1, 3*n).Draw(rt, "num_moves")
		for i := 0; i < moves; i++ {
			child := rapid.SampledFrom(ids).Draw(rt, "child")
			parent := rapid.SampledFrom(append([]string{""}, ids...)).Draw(rt, "parent")
			_, err := svc.Reparent(ctx, child, parent)
			if err != nil && !errors.Is(err, model.ErrCycle) {
				rt.Fatalf("reparent %s -> %s: %v", child, parent, err)
			}
		}

		all, err := svc.List(ctx, Filters{})
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		byID := make(map[int64]*Task, len(all))
		for _, tk := range all {
			byID[tk.ID] = tk
		}
		for _, tk := range all {
			seen := map[int64]bool{tk.ID: true}
			for cur := tk.ParentID; cur != nil; {
				if seen[*cur] {
					rt.Fatalf("cycle through task %s", tk.TaskID)
				}
				seen[*cur] = true
				parent, ok := byID[*cur]
				if !ok {
					rt.Fatalf("dangling parent id %d on %s", *cur, tk.TaskID)
				}
				cur = parent.ParentID
			}
		}
	})
}
