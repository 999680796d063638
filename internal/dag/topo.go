package dag

import mapset "github.com/deckarep/golang-set/v2"

const (
	white = iota
	gray
	black
)

// TopologicalOrder returns every node such that for each edge u -> v, u
// comes before v. Nodes with incident edges are ordered first, by a
// depth-first post-order over the edge endpoints; isolated nodes follow in
// insertion order. A GraphError wrapping ErrCycleDetected is returned if
// the graph is not acyclic.
func (g *Graph[T]) TopologicalOrder() ([]T, error) {
	// Endpoints in order of first appearance in Edges.
	var endpoints []T
	seen := mapset.NewThreadUnsafeSet[T]()
	for _, e := range g.Edges() {
		if seen.Add(e.From) {
			endpoints = append(endpoints, e.From)
		}
		if seen.Add(e.To) {
			endpoints = append(endpoints, e.To)
		}
	}

	state := make(map[T]int, len(endpoints))
	order := make([]T, 0, g.Len())

	var visit func(n T) error
	visit = func(n T) error {
		switch state[n] {
		case gray:
			return nodeError("topological order", n, ErrCycleDetected)
		case black:
			return nil
		}
		state[n] = gray
		succ := g.sorted(g.successors[n])
		for i := len(succ) - 1; i >= 0; i-- {
			if err := visit(succ[i]); err != nil {
				return err
			}
		}
		state[n] = black
		order = append(order, n)
		return nil
	}

	for i := len(endpoints) - 1; i >= 0; i-- {
		if err := visit(endpoints[i]); err != nil {
			return nil, err
		}
	}

	// Reverse post-order to produce topological order.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	return append(order, g.IsolatedNodes()...), nil
}
