// Package mathscope parses and evaluates a changing set of mathematical
// expressions, some of which may be broken, and reports what changed after
// every edit.
//
// Expressions are identified by caller-assigned ids. Assignments like
// `a = 2` and `f(x) = a * x` define names other expressions can read; only
// the expressions affected by an edit are re-evaluated. Parsing is
// injected, so the package has no opinion on the expression language; NewHCL
// provides one based on HCL expression syntax.
//
// A MathScope is not safe for concurrent use.
package mathscope

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vk/mathscope/internal/diffmap"
	"github.com/vk/mathscope/internal/evaluator"
	"github.com/vk/mathscope/internal/expr"
	"github.com/vk/mathscope/internal/value"
)

type (
	// Node is a parsed expression.
	Node = expr.Node
	// Value is an evaluation result.
	Value = value.Value
	// Diff lists the ids whose result or error changed.
	Diff = diffmap.Diff[string]
)

// ErrDuplicateID is returned when one SetExpressions call names an id twice.
var ErrDuplicateID = errors.New("duplicate expression id")

// ParseFunc turns one input into a node. Any error it returns is recorded
// as the expression's error without being inspected.
type ParseFunc[P any] func(input P) (*Node, error)

// Entry is an input to parse under an id.
type Entry[P any] struct {
	ID    string
	Input P
}

// MathScope holds the current expressions with their results and errors.
type MathScope[P any] struct {
	parse     ParseFunc[P]
	evaluator *evaluator.Evaluator
	// errors is what callers see: evaluation errors plus parse errors.
	errors    map[string]error
	listeners listeners
	logger    *slog.Logger
}

// New returns an empty MathScope that parses inputs with parse.
func New[P any](parse ParseFunc[P], opts ...Option) *MathScope[P] {
	cfg := newConfig(opts)
	evalOpts := append([]evaluator.Option{
		evaluator.WithBuiltins(cfg.builtins...),
		evaluator.WithLogger(cfg.logger),
	}, cfg.evalOpts...)
	return &MathScope[P]{
		parse:     parse,
		evaluator: evaluator.New(evalOpts...),
		errors:    make(map[string]error),
		logger:    cfg.logger,
	}
}

// SetExpressions replaces or adds the given expressions and re-evaluates.
// An entry that fails to parse keeps its id out of the graph and gets the
// parse error. The returned error means nothing was changed, or, for graph
// inconsistencies, that the scope can no longer be trusted.
func (s *MathScope[P]) SetExpressions(entries []Entry[P]) error {
	ids := make([]string, 0, len(entries))
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, e := range entries {
		if !seen.Add(e.ID) {
			return fmt.Errorf("set expressions: id %q: %w", e.ID, ErrDuplicateID)
		}
		ids = append(ids, e.ID)
	}

	errs := diffmap.Wrap(s.errors)
	parsed := make([]*Node, 0, len(entries))
	parseErrs := make(map[string]error)
	for _, e := range entries {
		node, err := s.parseEntry(e.Input)
		if err != nil {
			parseErrs[e.ID] = err
			continue
		}
		parsed = append(parsed, node.WithID(e.ID))
		// Either it parses fine now or it is about to be re-evaluated.
		errs.Delete(e.ID)
	}

	s.evaluator.EnqueueDeleteExpressions(ids...)
	if err := s.evaluator.EnqueueAddExpressions(parsed...); err != nil {
		return fmt.Errorf("set expressions: %w", err)
	}
	change, err := s.evaluator.Evaluate()
	if err != nil {
		return fmt.Errorf("set expressions: %w", err)
	}

	s.syncEvalErrors(change, errs)
	for id, err := range parseErrs {
		errs.Set(id, err)
	}

	errDiff := errs.Diff()
	s.logger.Debug("Expressions set.",
		"entries", len(entries),
		"parse_errors", len(parseErrs),
		"results_touched", change.Results.Touched.Cardinality(),
		"errors_touched", errDiff.Touched.Cardinality(),
	)
	s.emit(change.Results, errDiff)
	return nil
}

// DeleteExpressions removes the expressions with the given ids and
// re-evaluates. Unknown ids are ignored.
func (s *MathScope[P]) DeleteExpressions(ids []string) error {
	errs := diffmap.Wrap(s.errors)
	s.evaluator.EnqueueDeleteExpressions(ids...)
	change, err := s.evaluator.Evaluate()
	if err != nil {
		return fmt.Errorf("delete expressions: %w", err)
	}
	for _, id := range ids {
		errs.Delete(id)
	}
	s.syncEvalErrors(change, errs)

	errDiff := errs.Diff()
	s.logger.Debug("Expressions deleted.",
		"ids", len(ids),
		"results_touched", change.Results.Touched.Cardinality(),
		"errors_touched", errDiff.Touched.Cardinality(),
	)
	s.emit(change.Results, errDiff)
	return nil
}

// parseEntry calls the parser, turning a panic or a missing node into an
// error.
func (s *MathScope[P]) parseEntry(input P) (node *Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node, err = nil, &expr.ParseError{Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()
	node, err = s.parse(input)
	if err == nil && node == nil {
		err = &expr.ParseError{Err: errors.New("parser returned no node")}
	}
	return node, err
}

func (s *MathScope[P]) syncEvalErrors(change evaluator.Change, errs *diffmap.Map[string, error]) {
	for _, id := range change.Errors.Added.Union(change.Errors.Updated).ToSlice() {
		errs.Set(id, s.evaluator.Err(id))
	}
	for _, id := range change.Errors.Deleted.ToSlice() {
		errs.Delete(id)
	}
}

// Results returns a copy of the successful results by id.
func (s *MathScope[P]) Results() map[string]Value { return s.evaluator.Results() }

// Errors returns a copy of the errors by id, parse errors included.
func (s *MathScope[P]) Errors() map[string]error { return maps.Clone(s.errors) }

// Result returns the result for id, if it evaluated successfully.
func (s *MathScope[P]) Result(id string) (Value, bool) { return s.evaluator.Result(id) }

// Err returns the error for id, or nil.
func (s *MathScope[P]) Err(id string) error { return s.errors[id] }

// EvalScope returns a copy of the assigned names and their values.
func (s *MathScope[P]) EvalScope() map[string]Value { return s.evaluator.Scope() }

// Node returns the parsed node registered under id. Ids whose input failed
// to parse have none.
func (s *MathScope[P]) Node(id string) (*Node, bool) { return s.evaluator.Node(id) }

// Builtins returns the names that resolve without being assigned, sorted.
func (s *MathScope[P]) Builtins() []string { return s.evaluator.Builtins() }
