package exprgraph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/mathscope/internal/expr"
)

func assign(id, name string, deps ...string) *expr.Node {
	return expr.NewValueAssignment(name, deps, nil).WithID(id)
}

func fn(id, name string, params []string, deps ...string) *expr.Node {
	return expr.NewFunctionAssignment(name, params, deps, nil).WithID(id)
}

func anon(id string, deps ...string) *expr.Node {
	return expr.NewValue(deps, nil).WithID(id)
}

// edgeIDs renders the manager's edges as sorted "from->to" id pairs.
func edgeIDs(m *Manager) []string {
	var out []string
	for _, e := range m.Edges() {
		out = append(out, e.From.ID+"->"+e.To.ID)
	}
	slices.Sort(out)
	return out
}

func ids(nodes []*expr.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func cycleIDs(cycles [][]*expr.Node) [][]string {
	out := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, ids(c))
	}
	return out
}

// dependentsIDs renders the dependents index for comparison.
func dependentsIDs(m *Manager) map[string][]string {
	out := make(map[string][]string, len(m.dependents))
	for name := range m.dependents {
		deps := ids(m.Dependents(name))
		slices.Sort(deps)
		out[name] = deps
	}
	return out
}

func permutations[T any](items []T) [][]T {
	if len(items) <= 1 {
		return [][]T{slices.Clone(items)}
	}
	var out [][]T
	for i := range items {
		rest := slices.Concat(items[:i:i], items[i+1:])
		for _, p := range permutations(rest) {
			out = append(out, append([]T{items[i]}, p...))
		}
	}
	return out
}

func mustAdd(t *testing.T, m *Manager, nodes ...*expr.Node) []*expr.Node {
	t.Helper()
	regrouped, err := m.AddExpressions(nodes...)
	require.NoError(t, err)
	return regrouped
}

func mustDelete(t *testing.T, m *Manager, nodes ...*expr.Node) []*expr.Node {
	t.Helper()
	regrouped, err := m.DeleteExpressions(nodes...)
	require.NoError(t, err)
	return regrouped
}
