package dag

import (
	"cmp"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Edge is a directed edge between two nodes.
type Edge[T comparable] struct {
	From T
	To   T
}

// Graph is a directed graph over nodes of type T. Self loops are allowed;
// parallel edges are not.
type Graph[T comparable] struct {
	// seq is the next insertion number to hand out.
	seq uint64
	// index maps every node to its insertion number.
	index map[T]uint64
	// successors holds the outgoing neighbours of every node.
	successors map[T]mapset.Set[T]
	// predecessors holds the incoming neighbours of every node.
	predecessors map[T]mapset.Set[T]
}

// New creates and returns an initialized, empty Graph.
func New[T comparable]() *Graph[T] {
	return &Graph[T]{
		index:        make(map[T]uint64),
		successors:   make(map[T]mapset.Set[T]),
		predecessors: make(map[T]mapset.Set[T]),
	}
}

// FromEdges builds a graph holding nodes, in the given order, joined by
// edges. Every edge endpoint must be one of nodes.
func FromEdges[T comparable](nodes []T, edges []Edge[T]) (*Graph[T], error) {
	g := New[T]()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddNode adds node to the graph. If the node already exists the function
// does nothing and returns false.
func (g *Graph[T]) AddNode(node T) bool {
	if _, ok := g.index[node]; ok {
		return false
	}
	g.addNodeAt(node, g.seq)
	g.seq++
	return true
}

func (g *Graph[T]) addNodeAt(node T, at uint64) {
	g.index[node] = at
	g.successors[node] = mapset.NewThreadUnsafeSet[T]()
	g.predecessors[node] = mapset.NewThreadUnsafeSet[T]()
}

// AddEdge creates a directed edge from `from` to `to`. Adding an edge that
// already exists is a no-op. Both endpoints must already be in the graph.
func (g *Graph[T]) AddEdge(from, to T) error {
	if !g.HasNode(from) {
		return edgeError("add edge", from, to, ErrNodeNotFound)
	}
	if !g.HasNode(to) {
		return edgeError("add edge", from, to, ErrNodeNotFound)
	}
	g.successors[from].Add(to)
	g.predecessors[to].Add(from)
	return nil
}

// DeleteEdge removes the edge from `from` to `to`.
func (g *Graph[T]) DeleteEdge(from, to T) error {
	if !g.HasEdge(from, to) {
		return edgeError("delete edge", from, to, ErrEdgeNotFound)
	}
	g.successors[from].Remove(to)
	g.predecessors[to].Remove(from)
	return nil
}

// DeleteNode removes node together with every edge incident to it.
func (g *Graph[T]) DeleteNode(node T) error {
	if !g.HasNode(node) {
		return nodeError("delete node", node, ErrNodeNotFound)
	}
	for succ := range g.successors[node].Iter() {
		g.predecessors[succ].Remove(node)
	}
	for pred := range g.predecessors[node].Iter() {
		g.successors[pred].Remove(node)
	}
	delete(g.successors, node)
	delete(g.predecessors, node)
	delete(g.index, node)
	return nil
}

// HasNode reports whether node is in the graph.
func (g *Graph[T]) HasNode(node T) bool {
	_, ok := g.index[node]
	return ok
}

// HasEdge reports whether the edge from `from` to `to` is in the graph.
func (g *Graph[T]) HasEdge(from, to T) bool {
	succ, ok := g.successors[from]
	return ok && succ.Contains(to)
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int { return len(g.index) }

// Successors returns the nodes that node has an edge to.
func (g *Graph[T]) Successors(node T) ([]T, error) {
	if err := g.check("successors", node); err != nil {
		return nil, err
	}
	return g.sorted(g.successors[node]), nil
}

// Predecessors returns the nodes that have an edge to node.
func (g *Graph[T]) Predecessors(node T) ([]T, error) {
	if err := g.check("predecessors", node); err != nil {
		return nil, err
	}
	return g.sorted(g.predecessors[node]), nil
}

// check verifies that node exists and that every edge incident to it is
// recorded on both sides.
func (g *Graph[T]) check(op string, node T) error {
	succ, okSucc := g.successors[node]
	pred, okPred := g.predecessors[node]
	_, okIndex := g.index[node]
	if !okSucc && !okPred && !okIndex {
		return nodeError(op, node, ErrNodeNotFound)
	}
	if !okSucc || !okPred || !okIndex {
		return nodeError(op, node, ErrInconsistent)
	}
	for s := range succ.Iter() {
		if back, ok := g.predecessors[s]; !ok || !back.Contains(node) {
			return edgeError(op, node, s, ErrInconsistent)
		}
	}
	for p := range pred.Iter() {
		if fwd, ok := g.successors[p]; !ok || !fwd.Contains(node) {
			return edgeError(op, p, node, ErrInconsistent)
		}
	}
	return nil
}

// Nodes returns every node in insertion order.
func (g *Graph[T]) Nodes() []T {
	nodes := make([]T, 0, len(g.index))
	for n := range g.index {
		nodes = append(nodes, n)
	}
	g.Sort(nodes)
	return nodes
}

// Edges returns every edge, grouped by source node in insertion order.
func (g *Graph[T]) Edges() []Edge[T] {
	var edges []Edge[T]
	for _, from := range g.Nodes() {
		for _, to := range g.sorted(g.successors[from]) {
			edges = append(edges, Edge[T]{From: from, To: to})
		}
	}
	return edges
}

// IsolatedNodes returns the nodes with neither successors nor predecessors.
func (g *Graph[T]) IsolatedNodes() []T {
	var isolated []T
	for _, n := range g.Nodes() {
		if g.successors[n].Cardinality() == 0 && g.predecessors[n].Cardinality() == 0 {
			isolated = append(isolated, n)
		}
	}
	return isolated
}

// Copy returns an independent copy of the graph. Node order is preserved.
func (g *Graph[T]) Copy() *Graph[T] {
	return g.subgraph(mapset.NewThreadUnsafeSetFromMapKeys(g.index))
}

// subgraph returns a new graph with the nodes in keep and the edges among
// them. Nodes keep their insertion numbers.
func (g *Graph[T]) subgraph(keep mapset.Set[T]) *Graph[T] {
	sub := New[T]()
	sub.seq = g.seq
	for n := range keep.Iter() {
		if at, ok := g.index[n]; ok {
			sub.addNodeAt(n, at)
		}
	}
	for n := range sub.index {
		for s := range g.successors[n].Iter() {
			if sub.HasNode(s) {
				sub.successors[n].Add(s)
				sub.predecessors[s].Add(n)
			}
		}
	}
	return sub
}

// Sort orders nodes in place by insertion order. Nodes the graph does not
// contain sort last, in their original relative order.
func (g *Graph[T]) Sort(nodes []T) {
	slices.SortStableFunc(nodes, func(a, b T) int {
		ia, okA := g.index[a]
		ib, okB := g.index[b]
		switch {
		case okA && okB:
			return cmp.Compare(ia, ib)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
}

func (g *Graph[T]) sorted(set mapset.Set[T]) []T {
	if set == nil {
		return nil
	}
	nodes := set.ToSlice()
	g.Sort(nodes)
	return nodes
}
