// Package exprgraph maintains the dependency graph between expression
// nodes. Edges are derived from names: an assignment of `a` has an edge to
// every node whose dependencies mention `a`, whichever was added first.
package exprgraph

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vk/mathscope/internal/dag"
	"github.com/vk/mathscope/internal/expr"
)

// Manager owns a dag.Graph of expression nodes together with the name
// indices that keep its edges in sync as nodes come and go.
type Manager struct {
	graph *dag.Graph[*expr.Node]
	// dependents maps a name to the nodes whose dependencies contain it.
	dependents map[string]mapset.Set[*expr.Node]
	// providers maps a name to the live nodes assigning it.
	providers map[string]mapset.Set[*expr.Node]
	// duplicates holds the names whose providers are currently joined into
	// a clique.
	duplicates map[string]bool

	allowedDuplicateLeaf *regexp.Regexp
	logger               *slog.Logger
}

// Plan is a safe evaluation order together with the cycles excluded from it.
type Plan struct {
	// Order lists acyclic nodes so that every node comes after the nodes it
	// depends on.
	Order []*expr.Node
	// Cycles lists every strongly connected group of assignment nodes,
	// duplicate assignment groups included.
	Cycles [][]*expr.Node
}

// New creates an empty Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		graph:                dag.New[*expr.Node](),
		dependents:           make(map[string]mapset.Set[*expr.Node]),
		providers:            make(map[string]mapset.Set[*expr.Node]),
		duplicates:           make(map[string]bool),
		allowedDuplicateLeaf: DefaultAllowedDuplicateLeafPattern,
		logger:               discardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddExpressions registers nodes and wires their edges. The resulting graph
// does not depend on the order or batching of calls.
//
// It returns the previously registered nodes whose duplicate status changed
// as a consequence, so callers can re-evaluate them.
func (m *Manager) AddExpressions(nodes ...*expr.Node) ([]*expr.Node, error) {
	seen := mapset.NewThreadUnsafeSet[*expr.Node]()
	for _, n := range nodes {
		if n == nil {
			return nil, &dag.GraphError{Op: "add expressions", Detail: "<nil>", Err: dag.ErrNodeNotFound}
		}
		if m.graph.HasNode(n) || !seen.Add(n) {
			return nil, &dag.GraphError{Op: "add expressions", Detail: n.String(), Err: dag.ErrNodeExists}
		}
	}

	touched := mapset.NewThreadUnsafeSet[string]()
	for _, n := range nodes {
		m.graph.AddNode(n)
		if n.IsAssignment() {
			index(m.providers, n.Name, n)
			touched.Add(n.Name)
		}
	}

	for _, n := range nodes {
		for _, dep := range n.DependencyNames() {
			for _, provider := range m.Providers(dep) {
				if err := m.graph.AddEdge(provider, n); err != nil {
					return nil, err
				}
			}
			index(m.dependents, dep, n)
			touched.Add(dep)
		}
		if !n.IsAssignment() {
			continue
		}
		for _, dependent := range m.Dependents(n.Name) {
			if err := m.graph.AddEdge(n, dependent); err != nil {
				return nil, err
			}
		}
	}

	regrouped, err := m.syncDuplicates(touched)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Expressions added to graph.", "count", len(nodes), "regrouped", len(regrouped))
	return regrouped, nil
}

// DeleteExpressions removes nodes with all their edges and index entries.
// Like AddExpressions it returns the surviving nodes whose duplicate status
// changed.
func (m *Manager) DeleteExpressions(nodes ...*expr.Node) ([]*expr.Node, error) {
	seen := mapset.NewThreadUnsafeSet[*expr.Node]()
	for _, n := range nodes {
		if n == nil || !m.graph.HasNode(n) || !seen.Add(n) {
			return nil, &dag.GraphError{Op: "delete expressions", Detail: n.String(), Err: dag.ErrNodeNotFound}
		}
	}

	touched := mapset.NewThreadUnsafeSet[string]()
	for _, n := range nodes {
		if err := m.graph.DeleteNode(n); err != nil {
			return nil, err
		}
		for _, dep := range n.DependencyNames() {
			unindex(m.dependents, dep, n)
			touched.Add(dep)
		}
		if n.IsAssignment() {
			unindex(m.providers, n.Name, n)
			touched.Add(n.Name)
		}
	}

	regrouped, err := m.syncDuplicates(touched)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Expressions deleted from graph.", "count", len(nodes), "regrouped", len(regrouped))
	return regrouped, nil
}

// syncDuplicates re-evaluates the duplicate status of names, adding or
// removing clique edges between their providers. It returns the providers
// whose status flipped.
func (m *Manager) syncDuplicates(names mapset.Set[string]) ([]*expr.Node, error) {
	var regrouped []*expr.Node
	sorted := names.ToSlice()
	slices.Sort(sorted)
	for _, name := range sorted {
		group := m.Providers(name)
		exempt, err := m.exempt(name, group)
		if err != nil {
			return nil, err
		}
		want := len(group) > 1 && !exempt
		had := m.duplicates[name]

		switch {
		case want:
			for _, a := range group {
				for _, b := range group {
					if a == b {
						continue
					}
					if err := m.graph.AddEdge(a, b); err != nil {
						return nil, err
					}
				}
			}
			if !had {
				m.duplicates[name] = true
				regrouped = append(regrouped, group...)
			}
		case had:
			for _, a := range group {
				for _, b := range group {
					if a != b && m.graph.HasEdge(a, b) {
						if err := m.graph.DeleteEdge(a, b); err != nil {
							return nil, err
						}
					}
				}
			}
			delete(m.duplicates, name)
			regrouped = append(regrouped, group...)
		}
	}
	m.graph.Sort(regrouped)
	return regrouped, nil
}

// exempt reports whether the providers of name may coexist: the name must
// match the allowed duplicate leaf pattern and no provider may have a
// successor outside the group.
func (m *Manager) exempt(name string, group []*expr.Node) (bool, error) {
	if m.allowedDuplicateLeaf == nil || !m.allowedDuplicateLeaf.MatchString(name) {
		return false, nil
	}
	for _, n := range group {
		succ, err := m.graph.Successors(n)
		if err != nil {
			return false, err
		}
		for _, s := range succ {
			if !s.IsAssignment() || s.Name != name {
				return false, nil
			}
		}
	}
	return true, nil
}

// DuplicateAssignmentNodes returns every node that assigns a name some other
// live node assigns too, excluding tolerated duplicate leaves.
func (m *Manager) DuplicateAssignmentNodes() []*expr.Node {
	var nodes []*expr.Node
	for name := range m.duplicates {
		nodes = append(nodes, m.Providers(name)...)
	}
	m.graph.Sort(nodes)
	return nodes
}

// EvaluationOrder plans the evaluation of the whole graph.
func (m *Manager) EvaluationOrder() (Plan, error) {
	return m.plan(m.graph.Copy())
}

// EvaluationOrderFrom plans the evaluation of sources and everything
// reachable from them. All sources must be registered.
func (m *Manager) EvaluationOrderFrom(sources ...*expr.Node) (Plan, error) {
	sub, err := m.graph.ReachableSubgraph(sources...)
	if err != nil {
		return Plan{}, err
	}
	return m.plan(sub)
}

func (m *Manager) plan(work *dag.Graph[*expr.Node]) (Plan, error) {
	cycles := work.Cycles()
	for _, cycle := range cycles {
		for _, n := range cycle {
			if !n.IsAssignment() {
				return Plan{}, &dag.GraphError{Op: "evaluation order", Detail: n.String(), Err: dag.ErrInconsistent}
			}
			if err := work.DeleteNode(n); err != nil {
				return Plan{}, err
			}
		}
	}

	order, err := work.TopologicalOrder()
	if err != nil {
		return Plan{}, fmt.Errorf("ordering acyclic remainder: %w", err)
	}
	m.logger.Debug("Evaluation planned.", "nodes", len(order), "cycles", len(cycles))
	return Plan{Order: order, Cycles: cycles}, nil
}

// Reachable returns sources and every node reachable from them, in
// insertion order. All sources must be registered.
func (m *Manager) Reachable(sources ...*expr.Node) ([]*expr.Node, error) {
	sub, err := m.graph.ReachableSubgraph(sources...)
	if err != nil {
		return nil, err
	}
	return sub.Nodes(), nil
}

// HasNode reports whether n is registered.
func (m *Manager) HasNode(n *expr.Node) bool { return m.graph.HasNode(n) }

// Nodes returns every registered node in insertion order.
func (m *Manager) Nodes() []*expr.Node { return m.graph.Nodes() }

// Edges returns every edge of the graph.
func (m *Manager) Edges() []dag.Edge[*expr.Node] { return m.graph.Edges() }

// Providers returns the registered nodes assigning name, in insertion order.
func (m *Manager) Providers(name string) []*expr.Node {
	return m.lookup(m.providers, name)
}

// Dependents returns the registered nodes depending on name, in insertion
// order.
func (m *Manager) Dependents(name string) []*expr.Node {
	return m.lookup(m.dependents, name)
}

func (m *Manager) lookup(idx map[string]mapset.Set[*expr.Node], name string) []*expr.Node {
	set, ok := idx[name]
	if !ok {
		return nil
	}
	nodes := set.ToSlice()
	m.graph.Sort(nodes)
	return nodes
}

func index(idx map[string]mapset.Set[*expr.Node], name string, n *expr.Node) {
	set, ok := idx[name]
	if !ok {
		set = mapset.NewThreadUnsafeSet[*expr.Node]()
		idx[name] = set
	}
	set.Add(n)
}

func unindex(idx map[string]mapset.Set[*expr.Node], name string, n *expr.Node) {
	set, ok := idx[name]
	if !ok {
		return
	}
	set.Remove(n)
	if set.Cardinality() == 0 {
		delete(idx, name)
	}
}
