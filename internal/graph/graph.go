// Package graph provides the one reachability check both cycle guards use:
// the task hierarchy on reparent and the requirement link graph on insert.
package graph

// NextFunc returns the nodes directly reachable from a node.
type NextFunc func(node int64) ([]int64, error)

// Reachable reports whether target can be reached from start by following
// next edges. The traversal is iterative with an explicit stack, and the
// visited set also guards against loops: the check runs precisely when
// acyclicity is not yet guaranteed.
func Reachable(next NextFunc, start, target int64) (bool, error) {
	visited := make(map[int64]bool)
	stack := []int64{start}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true, nil
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true

		neighbors, err := next(cur)
		if err != nil {
			return false, err
		}
		stack = append(stack, neighbors...)
	}
	return false, nil
}
