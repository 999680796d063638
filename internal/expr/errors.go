package expr

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ParseError reports input that never became a node.
type ParseError struct {
	// Source is the input that failed to parse, when it is text.
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnmetDependencyError reports names an expression references that are not
// currently defined.
type UnmetDependencyError struct {
	// Names is sorted and free of duplicates.
	Names []string
}

// NewUnmetDependencyError returns an UnmetDependencyError for names.
func NewUnmetDependencyError(names ...string) *UnmetDependencyError {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return &UnmetDependencyError{Names: slices.Compact(sorted)}
}

func (e *UnmetDependencyError) Error() string {
	if len(e.Names) == 1 {
		return "undefined symbol " + e.Names[0]
	}
	return "undefined symbols " + strings.Join(e.Names, ", ")
}

// AssignmentError is implemented by the errors given to nodes excluded from
// evaluation because of how names are assigned.
type AssignmentError interface {
	error
	assignment()
}

// CyclicAssignmentError is recorded for every member of a dependency cycle.
type CyclicAssignmentError struct {
	// Cycle lists the members in the order the cycle was reported.
	Cycle []*Node
}

func (*CyclicAssignmentError) assignment() {}

// Names returns the names of the cycle members, in cycle order.
func (e *CyclicAssignmentError) Names() []string {
	names := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		names[i] = n.Name
	}
	return names
}

func (e *CyclicAssignmentError) Error() string {
	quoted := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		quoted[i] = "'" + n.Name + "'"
	}
	return "cyclic dependencies: " + strings.Join(quoted, ", ")
}

// DuplicateAssignmentError is recorded for every node that assigns a name
// some other live node assigns too.
type DuplicateAssignmentError struct {
	Node *Node
}

func (*DuplicateAssignmentError) assignment() {}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("name %s has been assigned multiple times", e.Node.Name)
}

// NewAssignmentError classifies why node, a member of cycle, cannot be
// evaluated: it is a duplicate if another member shares its name, otherwise
// it is part of a genuine dependency cycle.
func NewAssignmentError(node *Node, cycle []*Node) AssignmentError {
	for _, other := range cycle {
		if other != node && other.Name == node.Name {
			return &DuplicateAssignmentError{Node: node}
		}
	}
	return &CyclicAssignmentError{Cycle: cycle}
}

// EquivalentAssignmentErrors reports whether a and b are assignment errors
// of the same type with the same message.
func EquivalentAssignmentErrors(a, b error) bool {
	var ae, be AssignmentError
	if !errors.As(a, &ae) || !errors.As(b, &be) {
		return false
	}
	return fmt.Sprintf("%T", ae) == fmt.Sprintf("%T", be) && ae.Error() == be.Error()
}
