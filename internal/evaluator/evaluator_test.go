package evaluator

import (
	"fmt"
	"math"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mathscope/internal/expr"
	"github.com/vk/mathscope/internal/value"
)

// calc returns an evaluate function applying f to the numeric values of
// deps, failing with UnmetDependencyError when any is missing.
func calc(deps []string, f func(args ...float64) float64) expr.EvaluateFunc {
	return func(s expr.Scope) (value.Value, error) {
		args := make([]float64, len(deps))
		var missing []string
		for i, d := range deps {
			v, ok := s.Lookup(d)
			if !ok {
				missing = append(missing, d)
				continue
			}
			n, ok := v.(value.Number)
			if !ok {
				return nil, fmt.Errorf("%s is not a number", d)
			}
			args[i] = float64(n)
		}
		if len(missing) > 0 {
			return nil, expr.NewUnmetDependencyError(missing...)
		}
		return value.Number(f(args...)), nil
	}
}

func assign(id, name string, deps []string, f func(args ...float64) float64) *expr.Node {
	return expr.NewValueAssignment(name, deps, calc(deps, f)).WithID(id)
}

func anon(id string, deps []string, f func(args ...float64) float64) *expr.Node {
	return expr.NewValue(deps, calc(deps, f)).WithID(id)
}

func constant(id, name string, v float64) *expr.Node {
	return assign(id, name, nil, func(...float64) float64 { return v })
}

func square(args ...float64) float64 { return args[0] * args[0] }

func sum(args ...float64) float64 {
	total := 0.0
	for _, a := range args {
		total += a
	}
	return total
}

func keys(s mapset.Set[string]) []string {
	out := s.ToSlice()
	if out == nil {
		return []string{}
	}
	return out
}

func mustEvaluate(t *testing.T, e *Evaluator) Change {
	t.Helper()
	change, err := e.Evaluate()
	require.NoError(t, err)
	return change
}

func numbers(results map[string]value.Value) map[string]float64 {
	out := make(map[string]float64, len(results))
	for id, v := range results {
		n, ok := v.(value.Number)
		if ok {
			out[id] = float64(n)
		}
	}
	return out
}

func scenario1(t *testing.T) *Evaluator {
	t.Helper()
	e := New()
	require.NoError(t, e.EnqueueAddExpressions(
		assign("a", "a", []string{"b"}, square),
		constant("b", "b", 2),
		anon("expr1", []string{"a", "b"}, sum),
	))
	mustEvaluate(t, e)
	return e
}

func TestScenarioDependenciesResolveRegardlessOfOrder(t *testing.T) {
	e := scenario1(t)
	assert.Equal(t, map[string]float64{"a": 4, "b": 2, "expr1": 6}, numbers(e.Results()))
	assert.Empty(t, e.Errors())
	assert.Equal(t, []string{"a", "b"}, e.Scope().Names())
}

func TestScenarioUnmetDependencies(t *testing.T) {
	e := New()
	require.NoError(t, e.EnqueueAddExpressions(
		constant("a", "a", 2),
		assign("b", "b", []string{"a"}, square),
		assign("c", "c", []string{"b", "x"}, sum),
		anon("expr1", []string{"b", "c", "x"}, sum),
	))
	change := mustEvaluate(t, e)

	assert.Equal(t, map[string]float64{"a": 2, "b": 4}, numbers(e.Results()))
	require.Len(t, e.Errors(), 2)

	var unmet *expr.UnmetDependencyError
	require.ErrorAs(t, e.Err("c"), &unmet)
	assert.Equal(t, []string{"x"}, unmet.Names)
	require.ErrorAs(t, e.Err("expr1"), &unmet)
	assert.Equal(t, []string{"c", "x"}, unmet.Names)

	assert.ElementsMatch(t, []string{"a", "b"}, keys(change.Results.Added))
	assert.ElementsMatch(t, []string{"c", "expr1"}, keys(change.Errors.Added))
}

func TestScenarioCycle(t *testing.T) {
	e := New()
	require.NoError(t, e.EnqueueAddExpressions(
		assign("x", "x", []string{"y"}, square),
		assign("y", "y", []string{"x"}, square),
	))
	mustEvaluate(t, e)

	assert.Empty(t, e.Results())
	for _, id := range []string{"x", "y"} {
		var cyclic *expr.CyclicAssignmentError
		require.ErrorAs(t, e.Err(id), &cyclic, id)
		assert.Equal(t, []string{"y", "x"}, cyclic.Names())
	}
}

func TestScenarioReplaceInOneBatch(t *testing.T) {
	e := scenario1(t)
	require.NoError(t, e.EnqueueAddExpressions(constant("u", "u", 7)))
	mustEvaluate(t, e)

	e.EnqueueDeleteExpressions("b")
	require.NoError(t, e.EnqueueAddExpressions(constant("b", "b", 4)))
	change := mustEvaluate(t, e)

	assert.Equal(t, map[string]float64{"a": 16, "b": 4, "expr1": 20, "u": 7}, numbers(e.Results()))
	assert.ElementsMatch(t, []string{"a", "b", "expr1"}, keys(change.Results.Updated))
	assert.ElementsMatch(t, []string{"a", "b", "expr1"}, keys(change.Results.Touched))
	assert.False(t, change.Results.Touched.Contains("u"))
	assert.Zero(t, change.Errors.Touched.Cardinality())
}

func TestMinimalReevaluation(t *testing.T) {
	calls := 0
	vec := expr.NewValueAssignment("v", []string{"k"}, func(s expr.Scope) (value.Value, error) {
		calls++
		k, _ := s.Lookup("k")
		return value.NewVector(k, k), nil
	}).WithID("v")

	e := New()
	require.NoError(t, e.EnqueueAddExpressions(constant("k", "k", 3), vec, constant("other", "other", 1)))
	mustEvaluate(t, e)
	require.Equal(t, 1, calls)
	before, ok := e.Result("v")
	require.True(t, ok)

	e.EnqueueDeleteExpressions("other")
	require.NoError(t, e.EnqueueAddExpressions(
		constant("other", "other", 2),
		anon("unrelated", []string{"other"}, square),
	))
	change := mustEvaluate(t, e)

	after, ok := e.Result("v")
	require.True(t, ok)
	assert.Same(t, before, after)
	assert.Equal(t, 1, calls, "v is outside the affected subgraph")
	assert.False(t, change.Results.Touched.Contains("v"))
	assert.ElementsMatch(t, []string{"other", "unrelated"}, keys(change.Results.Touched))
}

func TestDuplicateAssignments(t *testing.T) {
	e := New()
	require.NoError(t, e.EnqueueAddExpressions(
		constant("a1", "a", 1),
		constant("a2", "a", 2),
		anon("x", []string{"a"}, func(args ...float64) float64 { return args[0] * 2 }),
	))
	mustEvaluate(t, e)

	for _, id := range []string{"a1", "a2"} {
		var dup *expr.DuplicateAssignmentError
		require.ErrorAs(t, e.Err(id), &dup, id)
		assert.Equal(t, id, dup.Node.ID)
	}
	var unmet *expr.UnmetDependencyError
	require.ErrorAs(t, e.Err("x"), &unmet)
	assert.Empty(t, e.Results())

	e.EnqueueDeleteExpressions("a2")
	change := mustEvaluate(t, e)

	assert.Equal(t, map[string]float64{"a1": 1, "x": 2}, numbers(e.Results()))
	assert.Empty(t, e.Errors())
	assert.ElementsMatch(t, []string{"a1", "a2", "x"}, keys(change.Errors.Deleted))
}

func TestEquivalentCycleErrorsAreKept(t *testing.T) {
	e := New()
	require.NoError(t, e.EnqueueAddExpressions(
		constant("w", "w", 1),
		assign("x", "x", []string{"y", "w"}, sum),
		assign("y", "y", []string{"x"}, square),
	))
	mustEvaluate(t, e)
	errX, errY := e.Err("x"), e.Err("y")
	require.NotNil(t, errX)
	require.NotNil(t, errY)

	e.EnqueueDeleteExpressions("w")
	require.NoError(t, e.EnqueueAddExpressions(constant("w", "w", 2)))
	change := mustEvaluate(t, e)

	assert.Same(t, errX, e.Err("x"))
	assert.Same(t, errY, e.Err("y"))
	assert.Zero(t, change.Errors.Touched.Cardinality())
	assert.ElementsMatch(t, []string{"w"}, keys(change.Results.Touched))
}

func TestCycleErrorChangesType(t *testing.T) {
	e := New()
	require.NoError(t, e.EnqueueAddExpressions(
		assign("x", "x", []string{"y"}, square),
		assign("y", "y", []string{"x"}, square),
	))
	mustEvaluate(t, e)

	require.NoError(t, e.EnqueueAddExpressions(constant("x2", "x", 5)))
	change := mustEvaluate(t, e)

	var dup *expr.DuplicateAssignmentError
	assert.ErrorAs(t, e.Err("x"), &dup)
	assert.ErrorAs(t, e.Err("x2"), &dup)
	assert.Contains(t, keys(change.Errors.Updated), "x")
	assert.Contains(t, keys(change.Errors.Added), "x2")
}

func TestToleratedDuplicateLeaves(t *testing.T) {
	fnNode := func(id string, k float64) *expr.Node {
		return expr.NewFunctionAssignment("_f", []string{"x"}, []string{"x"}, func(expr.Scope) (value.Value, error) {
			return &value.Function{Name: "_f", Params: []string{"x"}, Call: func(args []value.Value) (value.Value, error) {
				return value.Number(k), nil
			}}, nil
		}).WithID(id)
	}

	e := New()
	require.NoError(t, e.EnqueueAddExpressions(fnNode("f1", 1), fnNode("f2", 2)))
	mustEvaluate(t, e)
	assert.Len(t, e.Results(), 2)
	assert.Empty(t, e.Errors())

	t.Run("deleting one keeps the name in scope", func(t *testing.T) {
		e.EnqueueDeleteExpressions("f2")
		mustEvaluate(t, e)

		got, ok := e.Scope().Lookup("_f")
		require.True(t, ok)
		f1, _ := e.Result("f1")
		assert.Same(t, f1, got)
	})

	t.Run("a dependent turns them into duplicates", func(t *testing.T) {
		require.NoError(t, e.EnqueueAddExpressions(fnNode("f3", 3)))
		mustEvaluate(t, e)
		require.Empty(t, e.Errors())

		require.NoError(t, e.EnqueueAddExpressions(anon("call", []string{"_f"}, square)))
		change := mustEvaluate(t, e)

		var dup *expr.DuplicateAssignmentError
		assert.ErrorAs(t, e.Err("f1"), &dup)
		assert.ErrorAs(t, e.Err("f3"), &dup)
		assert.ElementsMatch(t, []string{"f1", "f3"}, keys(change.Results.Deleted))
		_, ok := e.Scope().Lookup("_f")
		assert.False(t, ok)
	})
}

func TestFunctionAssignmentDependencyCheck(t *testing.T) {
	called := false
	f := expr.NewFunctionAssignment("f", []string{"x"}, []string{"x", "k", "sin"}, func(expr.Scope) (value.Value, error) {
		called = true
		return &value.Function{Name: "f", Params: []string{"x"}}, nil
	}).WithID("f")

	e := New(WithBuiltins("sin"))
	require.NoError(t, e.EnqueueAddExpressions(f))
	mustEvaluate(t, e)

	assert.False(t, called, "evaluate is skipped when dependencies are unmet")
	var unmet *expr.UnmetDependencyError
	require.ErrorAs(t, e.Err("f"), &unmet)
	assert.Equal(t, []string{"k"}, unmet.Names)

	require.NoError(t, e.EnqueueAddExpressions(constant("k", "k", 1)))
	mustEvaluate(t, e)
	assert.True(t, called)
	assert.NoError(t, e.Err("f"))
	assert.Equal(t, []string{"sin"}, e.Builtins())
}

func TestNodeFailuresAreIsolated(t *testing.T) {
	boom := expr.NewValue(nil, func(expr.Scope) (value.Value, error) {
		panic("boom")
	}).WithID("boom")
	empty := expr.NewValue(nil, func(expr.Scope) (value.Value, error) {
		return nil, nil
	}).WithID("empty")

	e := New()
	require.NoError(t, e.EnqueueAddExpressions(boom, empty, constant("ok", "ok", math.Pi)))
	mustEvaluate(t, e)

	var p *PanicError
	require.ErrorAs(t, e.Err("boom"), &p)
	assert.Equal(t, "boom", p.NodeID)
	assert.ErrorIs(t, e.Err("empty"), ErrNoValue)
	assert.Equal(t, map[string]float64{"ok": math.Pi}, numbers(e.Results()))
}

func TestResultsAndErrorsAreExclusive(t *testing.T) {
	e := scenario1(t)
	e.EnqueueDeleteExpressions("b")
	mustEvaluate(t, e)

	for id := range e.Errors() {
		_, ok := e.Result(id)
		assert.False(t, ok, id)
	}
	assert.Equal(t, map[string]float64{}, numbers(e.Results()))
	assert.Len(t, e.Errors(), 2)
}

func TestEnqueueAddExpressions(t *testing.T) {
	e := New()
	require.NoError(t, e.EnqueueAddExpressions(constant("a", "a", 1)))

	err := e.EnqueueAddExpressions(constant("a", "a", 2))
	assert.ErrorIs(t, err, ErrIDInUse)
	assert.ErrorContains(t, err, `"a"`)

	err = e.EnqueueAddExpressions(constant("b", "b", 1), constant("b", "b", 2))
	assert.ErrorIs(t, err, ErrIDInUse)
	_, ok := e.Node("b")
	assert.False(t, ok, "a rejected batch registers nothing")

	e.EnqueueDeleteExpressions("a", "unknown")
	assert.NoError(t, e.EnqueueAddExpressions(constant("a", "a", 2)))
	assert.Equal(t, []string{"a"}, e.IDs())

	mustEvaluate(t, e)
	assert.Equal(t, map[string]float64{"a": 2}, numbers(e.Results()))
}

func TestAddDeleteRoundTrip(t *testing.T) {
	e := scenario1(t)
	results, errs, scope := e.Results(), e.Errors(), e.Scope()

	require.NoError(t, e.EnqueueAddExpressions(
		constant("b2", "b", 9),
		assign("c", "c", []string{"a"}, square),
		anon("loose", []string{"zz"}, sum),
	))
	mustEvaluate(t, e)
	require.NotEqual(t, results, e.Results())

	e.EnqueueDeleteExpressions("b2", "c", "loose")
	change := mustEvaluate(t, e)

	assert.Equal(t, results, e.Results())
	assert.Equal(t, errs, e.Errors())
	assert.Equal(t, scope, e.Scope())
	assert.True(t, change.Errors.Deleted.Contains("a"))
}

func TestAddAndDeleteInSameQueue(t *testing.T) {
	e := New()
	require.NoError(t, e.EnqueueAddExpressions(constant("a", "a", 1)))
	e.EnqueueDeleteExpressions("a")
	change := mustEvaluate(t, e)

	assert.Empty(t, e.Results())
	assert.Zero(t, change.Results.Touched.Cardinality())
	_, ok := e.Node("a")
	assert.False(t, ok)
}
