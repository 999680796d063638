package dag

import mapset "github.com/deckarep/golang-set/v2"

// VisitFunc is called by DFS for every reached node, together with its
// depth below the start node.
type VisitFunc[T comparable] func(node T, depth int, g *Graph[T])

// DFS walks the graph depth-first in pre-order starting at start, calling
// visit once per reachable node. Successors are explored in insertion order.
// A visited set guarantees termination on cyclic graphs.
func (g *Graph[T]) DFS(start T, visit VisitFunc[T]) error {
	if !g.HasNode(start) {
		return nodeError("dfs", start, ErrNodeNotFound)
	}

	type frame struct {
		node  T
		depth int
	}

	visited := mapset.NewThreadUnsafeSet[T]()
	stack := []frame{{node: start}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Contains(f.node) {
			continue
		}
		visited.Add(f.node)
		visit(f.node, f.depth, g)

		// Push in reverse so the first successor is explored first.
		succ := g.sorted(g.successors[f.node])
		for i := len(succ) - 1; i >= 0; i-- {
			if !visited.Contains(succ[i]) {
				stack = append(stack, frame{node: succ[i], depth: f.depth + 1})
			}
		}
	}
	return nil
}

// Descendants returns every node reachable from node in one or more steps.
// node itself is included only when it lies on a cycle through itself.
func (g *Graph[T]) Descendants(node T) ([]T, error) {
	set, err := g.descendants(node)
	if err != nil {
		return nil, err
	}
	return g.sorted(set), nil
}

func (g *Graph[T]) descendants(node T) (mapset.Set[T], error) {
	found := mapset.NewThreadUnsafeSet[T]()
	err := g.DFS(node, func(n T, depth int, _ *Graph[T]) {
		if depth > 0 {
			found.Add(n)
		}
	})
	if err != nil {
		return nil, err
	}

	for _, pred := range g.predecessors[node].ToSlice() {
		if pred == node || found.Contains(pred) {
			found.Add(node)
			break
		}
	}
	return found, nil
}

// ReachableSubgraph returns a new graph holding sources, their descendants,
// and exactly the edges among those nodes. The receiver is not modified.
func (g *Graph[T]) ReachableSubgraph(sources ...T) (*Graph[T], error) {
	keep := mapset.NewThreadUnsafeSet[T]()
	for _, src := range sources {
		if keep.Contains(src) {
			continue
		}
		desc, err := g.descendants(src)
		if err != nil {
			return nil, nodeError("reachable subgraph", src, ErrNodeNotFound)
		}
		keep.Add(src)
		keep = keep.Union(desc)
	}
	return g.subgraph(keep), nil
}
