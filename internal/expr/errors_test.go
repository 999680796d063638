package expr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmetDependencyError(t *testing.T) {
	err := NewUnmetDependencyError("x", "c", "x")
	assert.Equal(t, []string{"c", "x"}, err.Names)
	assert.EqualError(t, err, "undefined symbols c, x")

	assert.EqualError(t, NewUnmetDependencyError("x"), "undefined symbol x")
}

func TestNewAssignmentError(t *testing.T) {
	x := NewValueAssignment("x", []string{"y"}, nil).WithID("x")
	y := NewValueAssignment("y", []string{"x"}, nil).WithID("y")

	t.Run("cycle", func(t *testing.T) {
		err := NewAssignmentError(x, []*Node{y, x})
		var cyclic *CyclicAssignmentError
		require.ErrorAs(t, err, &cyclic)
		assert.Equal(t, []string{"y", "x"}, cyclic.Names())
		assert.EqualError(t, err, "cyclic dependencies: 'y', 'x'")
	})

	t.Run("duplicate", func(t *testing.T) {
		a1 := NewValueAssignment("a", nil, nil).WithID("a1")
		a2 := NewValueAssignment("a", nil, nil).WithID("a2")
		err := NewAssignmentError(a1, []*Node{a1, a2})
		var dup *DuplicateAssignmentError
		require.ErrorAs(t, err, &dup)
		assert.Same(t, a1, dup.Node)
		assert.EqualError(t, err, "name a has been assigned multiple times")
	})
}

func TestEquivalentAssignmentErrors(t *testing.T) {
	x := NewValueAssignment("x", nil, nil)
	y := NewValueAssignment("y", nil, nil)

	first := &CyclicAssignmentError{Cycle: []*Node{y, x}}
	second := &CyclicAssignmentError{Cycle: []*Node{y, x}}
	rotated := &CyclicAssignmentError{Cycle: []*Node{x, y}}

	assert.True(t, EquivalentAssignmentErrors(first, second))
	assert.False(t, EquivalentAssignmentErrors(first, rotated))
	assert.False(t, EquivalentAssignmentErrors(first, &DuplicateAssignmentError{Node: x}))
	assert.False(t, EquivalentAssignmentErrors(first, errors.New("cyclic dependencies: 'y', 'x'")))
	assert.True(t, EquivalentAssignmentErrors(fmt.Errorf("wrapped: %w", first), second))
}

func TestParseError(t *testing.T) {
	cause := errors.New("unexpected token")
	err := &ParseError{Source: "a = ", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "parse error: unexpected token")
}
