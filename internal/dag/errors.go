package dag

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an operation names a node the graph
	// does not contain.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNodeExists is returned when a node is registered twice where that is
	// not allowed.
	ErrNodeExists = errors.New("node already exists")
	// ErrEdgeNotFound is returned by DeleteEdge for an absent edge.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrInconsistent reports that the successor and predecessor indices
	// disagree. It always indicates a bug.
	ErrInconsistent = errors.New("successor and predecessor indices disagree")
	// ErrCycleDetected is returned by TopologicalOrder when the depth-first
	// walk meets a back edge.
	ErrCycleDetected = errors.New("cycle detected")
)

// GraphError describes a failed graph operation.
type GraphError struct {
	// Op is the operation that failed, e.g. "add edge".
	Op string
	// Detail names the node or edge involved, if any.
	Detail string
	Err    error
}

func (e *GraphError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("dag: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("dag: %s %s: %v", e.Op, e.Detail, e.Err)
}

func (e *GraphError) Unwrap() error { return e.Err }

func nodeError[T comparable](op string, node T, err error) *GraphError {
	return &GraphError{Op: op, Detail: fmt.Sprintf("%v", node), Err: err}
}

func edgeError[T comparable](op string, from, to T, err error) *GraphError {
	return &GraphError{Op: op, Detail: fmt.Sprintf("%v -> %v", from, to), Err: err}
}
