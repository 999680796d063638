package dag

// Cycles returns the strongly connected components of size greater than
// one, plus every node with a self loop. Each component is reported in the
// order its nodes were popped off the Tarjan stack, which for a simple cycle
// a -> b -> c -> a discovered from a is [c b a]. Components appear in the
// order they are completed when roots are tried in insertion order.
//
// The search uses an explicit call stack so deep graphs cannot overflow the
// goroutine stack.
func (g *Graph[T]) Cycles() [][]T {
	var (
		index    int
		nodeIdx  = make(map[T]int, len(g.index))
		lowLink  = make(map[T]int, len(g.index))
		onStack  = make(map[T]bool, len(g.index))
		sccStack []T
		cycles   [][]T
	)

	type callFrame struct {
		node  T
		succ  []T
		next  int
		child T
		// phase: 0 enter, 1 scan edges, 2 return from child, 3 finish.
		phase int
	}

	strongConnect := func(start T) {
		callStack := []callFrame{{node: start}}
		for len(callStack) > 0 {
			frame := &callStack[len(callStack)-1]

			switch frame.phase {
			case 0:
				nodeIdx[frame.node] = index
				lowLink[frame.node] = index
				index++
				sccStack = append(sccStack, frame.node)
				onStack[frame.node] = true
				frame.succ = g.sorted(g.successors[frame.node])
				frame.phase = 1

			case 1:
				pushed := false
				for frame.next < len(frame.succ) {
					w := frame.succ[frame.next]
					frame.next++
					if _, seen := nodeIdx[w]; !seen {
						frame.child = w
						frame.phase = 2
						callStack = append(callStack, callFrame{node: w})
						pushed = true
						break
					}
					if onStack[w] && nodeIdx[w] < lowLink[frame.node] {
						lowLink[frame.node] = nodeIdx[w]
					}
				}
				if !pushed {
					frame.phase = 3
				}

			case 2:
				if lowLink[frame.child] < lowLink[frame.node] {
					lowLink[frame.node] = lowLink[frame.child]
				}
				frame.phase = 1

			case 3:
				if lowLink[frame.node] == nodeIdx[frame.node] {
					var scc []T
					for {
						w := sccStack[len(sccStack)-1]
						sccStack = sccStack[:len(sccStack)-1]
						onStack[w] = false
						scc = append(scc, w)
						if w == frame.node {
							break
						}
					}
					if len(scc) > 1 || g.HasEdge(frame.node, frame.node) {
						cycles = append(cycles, scc)
					}
				}
				callStack = callStack[:len(callStack)-1]
			}
		}
	}

	for _, n := range g.Nodes() {
		if _, seen := nodeIdx[n]; !seen {
			strongConnect(n)
		}
	}
	return cycles
}
