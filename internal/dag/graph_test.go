package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustGraph builds a graph over string nodes, failing the test on error.
func mustGraph(t *testing.T, nodes string, edges ...string) *Graph[string] {
	t.Helper()
	var es []Edge[string]
	for _, e := range edges {
		require.Len(t, e, 2, "edges are written as two-letter strings")
		es = append(es, Edge[string]{From: e[:1], To: e[1:]})
	}
	var ns []string
	for _, r := range nodes {
		ns = append(ns, string(r))
	}
	g, err := FromEdges(ns, es)
	require.NoError(t, err)
	return g
}

func TestNew(t *testing.T) {
	g := New[string]()
	require.NotNil(t, g)
	assert.Zero(t, g.Len())
	assert.Empty(t, g.Nodes())
	assert.Empty(t, g.Edges())
}

func TestAddNode(t *testing.T) {
	g := New[string]()

	assert.True(t, g.AddNode("a"))
	assert.False(t, g.AddNode("a"), "adding twice is a no-op")
	assert.True(t, g.AddNode("b"))
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := mustGraph(t, "ab")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("a", "b"))

		assert.True(t, g.HasEdge("a", "b"))
		assert.False(t, g.HasEdge("b", "a"))
		assert.Len(t, g.Edges(), 1)
	})

	t.Run("error cases", func(t *testing.T) {
		g := mustGraph(t, "a")

		err := g.AddEdge("x", "a")
		assert.ErrorIs(t, err, ErrNodeNotFound)
		var gerr *GraphError
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, "add edge", gerr.Op)

		assert.ErrorIs(t, g.AddEdge("a", "x"), ErrNodeNotFound)
	})

	t.Run("self loop", func(t *testing.T) {
		g := mustGraph(t, "a")
		require.NoError(t, g.AddEdge("a", "a"))
		assert.True(t, g.HasEdge("a", "a"))
	})
}

func TestSuccessorsAndPredecessors(t *testing.T) {
	g := mustGraph(t, "abcde", "ab", "bc", "bd", "dd")

	cases := []struct {
		node       string
		successors []string
		preds      []string
	}{
		{"a", []string{"b"}, nil},
		{"b", []string{"c", "d"}, []string{"a"}},
		{"c", nil, []string{"b"}},
		{"d", []string{"d"}, []string{"b", "d"}},
		{"e", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.node, func(t *testing.T) {
			succ, err := g.Successors(tc.node)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.successors, succ)

			pred, err := g.Predecessors(tc.node)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.preds, pred)
		})
	}

	_, err := g.Successors("z")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, err = g.Predecessors("z")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestInconsistentIndicesAreReported(t *testing.T) {
	g := mustGraph(t, "ab", "ab")
	// Corrupt one side of the edge.
	g.predecessors["b"].Remove("a")

	_, err := g.Successors("a")
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestDeleteEdge(t *testing.T) {
	g := mustGraph(t, "abcde", "ab", "bc", "bd", "dd")

	require.NoError(t, g.DeleteEdge("b", "d"))
	assert.Equal(t, mustGraph(t, "abcde", "ab", "bc", "dd").Edges(), g.Edges())

	assert.ErrorIs(t, g.DeleteEdge("b", "d"), ErrEdgeNotFound)
	assert.ErrorIs(t, New[string]().DeleteEdge("a", "b"), ErrEdgeNotFound)
}

func TestDeleteNode(t *testing.T) {
	g := mustGraph(t, "abcde", "ab", "ad", "bc", "bd", "dd")

	require.NoError(t, g.DeleteNode("b"))

	want := mustGraph(t, "acde", "ad", "dd")
	assert.Equal(t, want.Nodes(), g.Nodes())
	assert.Equal(t, want.Edges(), g.Edges())
	pred, err := g.Predecessors("c")
	require.NoError(t, err)
	assert.Empty(t, pred)

	assert.ErrorIs(t, g.DeleteNode("b"), ErrNodeNotFound)
}

func TestEdges(t *testing.T) {
	g := mustGraph(t, "abcde", "ab", "bc", "bd", "dd")
	assert.Equal(t, []Edge[string]{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "b", To: "d"},
		{From: "d", To: "d"},
	}, g.Edges())
}

func TestIsolatedNodes(t *testing.T) {
	g := mustGraph(t, "abcde", "ab", "bc", "bd", "dd")
	assert.Equal(t, []string{"e"}, g.IsolatedNodes())
}

func TestHasNode(t *testing.T) {
	g := mustGraph(t, "a")
	assert.True(t, g.HasNode("a"))
	assert.False(t, g.HasNode("b"))
}

func TestCopyIsIndependent(t *testing.T) {
	g := mustGraph(t, "abc", "ab", "bc")
	cp := g.Copy()
	assert.Equal(t, g.Edges(), cp.Edges())

	require.NoError(t, cp.DeleteNode("b"))
	assert.True(t, g.HasNode("b"))
	assert.True(t, g.HasEdge("a", "b"))
	assert.Equal(t, []string{"a", "c"}, cp.Nodes())
}

func TestSort(t *testing.T) {
	g := mustGraph(t, "abc")
	nodes := []string{"z", "c", "a", "b"}
	g.Sort(nodes)
	assert.Equal(t, []string{"a", "b", "c", "z"}, nodes)
}
