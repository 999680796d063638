// Package expr defines the expression node the evaluation core works with,
// the read-only scope nodes evaluate against, and the classified evaluation
// errors.
package expr

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vk/mathscope/internal/value"
)

// Kind distinguishes anonymous expressions from assignments.
type Kind int

const (
	// KindValue is an anonymous expression such as `a + b`.
	KindValue Kind = iota
	// KindValueAssignment defines a name, e.g. `a = 2`.
	KindValueAssignment
	// KindFunctionAssignment defines a function, e.g. `f(x) = a * x`.
	KindFunctionAssignment
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindValueAssignment:
		return "value assignment"
	case KindFunctionAssignment:
		return "function assignment"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// EvaluateFunc computes a node's value from the scope. It must read nothing
// but its argument.
type EvaluateFunc func(scope Scope) (value.Value, error)

// Node is one expression in the graph. Nodes are immutable once built and
// are identified by pointer; replacing an expression means deleting its node
// and adding a new one under the same ID.
type Node struct {
	// ID is assigned by the caller and unique among live nodes.
	ID string
	// Kind is the node's kind.
	Kind Kind
	// Name is the symbol an assignment defines. Empty for KindValue.
	Name string
	// Params are the bound parameter names of a function assignment.
	Params []string
	// Dependencies holds the free symbol names the expression references,
	// excluding Params and the node's own Name.
	Dependencies mapset.Set[string]
	// Evaluate computes the node's value.
	Evaluate EvaluateFunc
	// Source is the text the node was parsed from, for display only.
	Source string
}

// NewValue returns an anonymous expression node.
func NewValue(deps []string, eval EvaluateFunc) *Node {
	return newNode(KindValue, "", nil, deps, eval)
}

// NewValueAssignment returns a node that assigns its value to name.
func NewValueAssignment(name string, deps []string, eval EvaluateFunc) *Node {
	return newNode(KindValueAssignment, name, nil, deps, eval)
}

// NewFunctionAssignment returns a node that defines the function name with
// the given parameters.
func NewFunctionAssignment(name string, params, deps []string, eval EvaluateFunc) *Node {
	return newNode(KindFunctionAssignment, name, slices.Clone(params), deps, eval)
}

func newNode(kind Kind, name string, params, deps []string, eval EvaluateFunc) *Node {
	set := mapset.NewThreadUnsafeSet(deps...)
	for _, p := range params {
		set.Remove(p)
	}
	if name != "" {
		set.Remove(name)
	}
	return &Node{
		Kind:         kind,
		Name:         name,
		Params:       params,
		Dependencies: set,
		Evaluate:     eval,
	}
}

// WithID returns a copy of n carrying id.
func (n *Node) WithID(id string) *Node {
	cp := *n
	cp.ID = id
	return &cp
}

// WithSource returns a copy of n carrying the source text src.
func (n *Node) WithSource(src string) *Node {
	cp := *n
	cp.Source = src
	return &cp
}

// IsAssignment reports whether the node defines a name.
func (n *Node) IsAssignment() bool {
	return n.Kind == KindValueAssignment || n.Kind == KindFunctionAssignment
}

// DependencyNames returns the dependencies sorted.
func (n *Node) DependencyNames() []string {
	if n.Dependencies == nil {
		return nil
	}
	names := n.Dependencies.ToSlice()
	slices.Sort(names)
	return names
}

// DependsOn reports whether name is one of the node's dependencies.
func (n *Node) DependsOn(name string) bool {
	return n.Dependencies != nil && n.Dependencies.Contains(name)
}

// String identifies the node in logs and graph errors.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.IsAssignment() {
		return fmt.Sprintf("%q (%s)", n.ID, n.Name)
	}
	return fmt.Sprintf("%q", n.ID)
}
