package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjacency(edges map[int64][]int64) NextFunc {
	return func(node int64) ([]int64, error) {
		return edges[node], nil
	}
}

func TestReachable_DirectEdge(t *testing.T) {
	next := adjacency(map[int64][]int64{1: {2}})
	ok, err := Reachable(next, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReachable_TransitivePath(t *testing.T) {
	next := adjacency(map[int64][]int64{1: {2}, 2: {3}, 3: {4}})
	ok, err := Reachable(next, 1, 4)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReachable_SelfIsZeroLengthPath(t *testing.T) {
	ok, err := Reachable(adjacency(nil), 7, 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReachable_Disconnected(t *testing.T) {
	next := adjacency(map[int64][]int64{1: {2}, 3: {4}})
	ok, err := Reachable(next, 1, 4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReachable_TerminatesOnCyclicGraph(t *testing.T) {
	// The guard runs while the invariant does not hold yet, so a cycle in
	// the underlying edges must not hang the traversal.
	next := adjacency(map[int64][]int64{1: {2}, 2: {3}, 3: {1}})
	ok, err := Reachable(next, 1, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReachable_PropagatesError(t *testing.T) {
	next := func(int64) ([]int64, error) {
		return nil, fmt.Errorf("edge lookup failed")
	}
	_, err := Reachable(next, 1, 2)
	assert.Error(t, err)
}
