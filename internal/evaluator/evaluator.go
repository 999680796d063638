// Package evaluator keeps the results of a live set of expressions up to
// date. Changes are queued, then applied in one Evaluate pass that
// re-evaluates only the nodes the changes can affect.
package evaluator

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vk/mathscope/internal/diffmap"
	"github.com/vk/mathscope/internal/expr"
	"github.com/vk/mathscope/internal/exprgraph"
	"github.com/vk/mathscope/internal/value"
)

// ErrIDInUse is returned when a node is enqueued under an id that is
// already registered.
var ErrIDInUse = errors.New("already in use")

// ErrNoValue is recorded for a node whose Evaluate returned neither a value
// nor an error.
var ErrNoValue = errors.New("expression produced no value")

// Change reports which ids gained, changed or lost a result or an error
// during one pass.
type Change struct {
	Results diffmap.Diff[string]
	Errors  diffmap.Diff[string]
}

type actionKind int

const (
	actionAdd actionKind = iota
	actionDelete
)

type action struct {
	kind  actionKind
	nodes []*expr.Node
}

// Evaluator owns the evaluation scope and the per-id results and errors.
// It is not safe for concurrent use.
type Evaluator struct {
	builtins mapset.Set[string]

	results map[string]value.Value
	errors  map[string]error
	// scope holds the value of every assignment that currently evaluates
	// cleanly, keyed by name.
	scope map[string]value.Value

	nodesByID map[string]*expr.Node
	queue     []action

	graph     *exprgraph.Manager
	graphOpts []exprgraph.Option
	logger    *slog.Logger
}

// New creates an Evaluator with no expressions.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		builtins:  mapset.NewThreadUnsafeSet[string](),
		results:   make(map[string]value.Value),
		errors:    make(map[string]error),
		scope:     make(map[string]value.Value),
		nodesByID: make(map[string]*expr.Node),
		logger:    discardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.graph = exprgraph.New(append(e.graphOpts, exprgraph.WithLogger(e.logger))...)
	return e
}

// EnqueueAddExpressions queues nodes for addition. It fails, queuing
// nothing, if any node's id is registered already or repeats in the batch.
func (e *Evaluator) EnqueueAddExpressions(nodes ...*expr.Node) error {
	batch := mapset.NewThreadUnsafeSet[string]()
	for _, n := range nodes {
		if n == nil {
			return errors.New("enqueue add: nil node")
		}
		if _, ok := e.nodesByID[n.ID]; ok || !batch.Add(n.ID) {
			return fmt.Errorf("enqueue add: node id %q: %w", n.ID, ErrIDInUse)
		}
	}
	for _, n := range nodes {
		e.nodesByID[n.ID] = n
	}
	e.queue = append(e.queue, action{kind: actionAdd, nodes: nodes})
	return nil
}

// EnqueueDeleteExpressions queues the nodes registered under ids for
// deletion. Unknown ids are ignored.
func (e *Evaluator) EnqueueDeleteExpressions(ids ...string) {
	var nodes []*expr.Node
	for _, id := range ids {
		if n, ok := e.nodesByID[id]; ok {
			nodes = append(nodes, n)
			delete(e.nodesByID, id)
		}
	}
	e.queue = append(e.queue, action{kind: actionDelete, nodes: nodes})
}

// Evaluate applies the queued changes and re-evaluates the affected nodes.
// Failures of individual nodes are recorded as their errors; the returned
// error is only ever an internal graph inconsistency.
func (e *Evaluator) Evaluate() (Change, error) {
	results := diffmap.Wrap(e.results)
	errs := diffmap.Wrap(e.errors)

	// Nodes about to be deleted may be propping up values downstream, so
	// everything they reach is cleared against the graph as it is now.
	var willDelete []*expr.Node
	for _, a := range e.queue {
		if a.kind != actionDelete {
			continue
		}
		for _, n := range a.nodes {
			if e.graph.HasNode(n) {
				willDelete = append(willDelete, n)
			}
		}
	}
	affectedByDelete, err := e.graph.Reachable(willDelete...)
	if err != nil {
		return Change{}, err
	}
	cleared := mapset.NewThreadUnsafeSet[string]()
	for _, n := range affectedByDelete {
		results.Delete(n.ID)
		errs.Delete(n.ID)
		if n.IsAssignment() {
			delete(e.scope, n.Name)
			cleared.Add(n.Name)
		}
	}

	added, regrouped, err := e.applyChanges()
	if err != nil {
		return Change{}, err
	}

	affected := e.affected(affectedByDelete, added, regrouped, cleared)
	plan, err := e.graph.EvaluationOrderFrom(affected...)
	if err != nil {
		return Change{}, err
	}

	for _, cycle := range plan.Cycles {
		for _, n := range cycle {
			e.recordAssignmentError(errs, n, cycle)
			results.Delete(n.ID)
			delete(e.scope, n.Name)
		}
	}

	for _, n := range plan.Order {
		e.evaluateNode(n, results, errs)
	}

	change := Change{Results: results.Diff(), Errors: errs.Diff()}
	e.logger.Debug("Evaluation pass complete.",
		"affected", len(affected),
		"evaluated", len(plan.Order),
		"cycles", len(plan.Cycles),
		"results_touched", change.Results.Touched.Cardinality(),
		"errors_touched", change.Errors.Touched.Cardinality(),
	)
	return change, nil
}

// applyChanges drains the queue into the graph. It returns the nodes added
// and the nodes whose duplicate status changed.
func (e *Evaluator) applyChanges() (added, regrouped []*expr.Node, err error) {
	queue := e.queue
	e.queue = nil
	for _, a := range queue {
		var r []*expr.Node
		switch a.kind {
		case actionAdd:
			r, err = e.graph.AddExpressions(a.nodes...)
			added = append(added, a.nodes...)
		case actionDelete:
			live := slices.DeleteFunc(slices.Clone(a.nodes), func(n *expr.Node) bool {
				return !e.graph.HasNode(n)
			})
			r, err = e.graph.DeleteExpressions(live...)
		}
		if err != nil {
			return nil, nil, err
		}
		regrouped = append(regrouped, r...)
	}
	return added, regrouped, nil
}

// affected returns the live nodes whose evaluation must be redone: those
// reached by deleted nodes, new ones, those whose duplicate status changed,
// and the assignments of names whose scope entry was cleared.
func (e *Evaluator) affected(byDelete, added, regrouped []*expr.Node, cleared mapset.Set[string]) []*expr.Node {
	set := mapset.NewThreadUnsafeSet[*expr.Node]()
	set.Append(byDelete...)
	set.Append(added...)
	set.Append(regrouped...)
	for name := range cleared.Iter() {
		set.Append(e.graph.Providers(name)...)
	}

	var live []*expr.Node
	for n := range set.Iter() {
		if e.graph.HasNode(n) {
			live = append(live, n)
		}
	}
	return live
}

// recordAssignmentError stores the error for n, a member of cycle. An
// equivalent error recorded before this pass is kept so the diff stays
// quiet.
func (e *Evaluator) recordAssignmentError(errs *diffmap.Map[string, error], n *expr.Node, cycle []*expr.Node) {
	next := expr.NewAssignmentError(n, cycle)
	if prev, ok := errs.Original(n.ID); ok && expr.EquivalentAssignmentErrors(prev, next) {
		errs.Set(n.ID, prev)
		return
	}
	errs.Set(n.ID, next)
}

func (e *Evaluator) evaluateNode(n *expr.Node, results *diffmap.Map[string, value.Value], errs *diffmap.Map[string, error]) {
	v, err := e.run(n)
	if err != nil {
		results.Delete(n.ID)
		if n.IsAssignment() {
			delete(e.scope, n.Name)
		}
		errs.Set(n.ID, err)
		return
	}
	results.Set(n.ID, v)
	errs.Delete(n.ID)
	if n.IsAssignment() {
		e.scope[n.Name] = v
	}
}

// run invokes n.Evaluate, converting a panic into an error for n.
func (e *Evaluator) run(n *expr.Node) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, &PanicError{NodeID: n.ID, Value: r}
		}
	}()

	// Functions only run later, with arguments; check up front.
	if n.Kind == expr.KindFunctionAssignment {
		if unmet := e.unmet(n); len(unmet) > 0 {
			return nil, expr.NewUnmetDependencyError(unmet...)
		}
	}
	if n.Evaluate == nil {
		return nil, ErrNoValue
	}
	v, err = n.Evaluate(expr.MapScope(e.scope))
	if err == nil && v == nil {
		return nil, ErrNoValue
	}
	return v, err
}

func (e *Evaluator) unmet(n *expr.Node) []string {
	var missing []string
	for _, dep := range n.DependencyNames() {
		if _, ok := e.scope[dep]; ok {
			continue
		}
		if e.builtins.Contains(dep) {
			continue
		}
		missing = append(missing, dep)
	}
	return missing
}

// Results returns a copy of the current results keyed by node id.
func (e *Evaluator) Results() map[string]value.Value { return maps.Clone(e.results) }

// Errors returns a copy of the current errors keyed by node id.
func (e *Evaluator) Errors() map[string]error { return maps.Clone(e.errors) }

// Result returns the result recorded for id.
func (e *Evaluator) Result(id string) (value.Value, bool) {
	v, ok := e.results[id]
	return v, ok
}

// Err returns the error recorded for id, or nil.
func (e *Evaluator) Err(id string) error { return e.errors[id] }

// Scope returns a copy of the evaluation scope.
func (e *Evaluator) Scope() expr.MapScope { return maps.Clone(e.scope) }

// Node returns the registered node for id, including nodes still queued.
func (e *Evaluator) Node(id string) (*expr.Node, bool) {
	n, ok := e.nodesByID[id]
	return n, ok
}

// IDs returns the registered ids, sorted.
func (e *Evaluator) IDs() []string { return slices.Sorted(maps.Keys(e.nodesByID)) }

// Builtins returns the builtin names, sorted.
func (e *Evaluator) Builtins() []string {
	names := e.builtins.ToSlice()
	slices.Sort(names)
	return names
}

// PanicError is recorded for a node whose Evaluate panicked.
type PanicError struct {
	NodeID string
	Value  any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("evaluating %q panicked: %v", p.NodeID, p.Value)
}
