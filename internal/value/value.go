// Package value defines the closed set of values an expression can produce.
//
// Scalars are plain value types and compare by value. Vectors and functions
// are pointers, so two results are the same only when they are the very
// same object; consumers rely on that to skip work for unchanged results.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the concrete type behind a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindVector
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindVector:
		return "vector"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is implemented by Number, Bool, *Vector and *Function only.
type Value interface {
	Kind() Kind
	String() string
	sealed()
}

// Number is a real scalar.
type Number float64

func (Number) Kind() Kind { return KindNumber }
func (Number) sealed()    {}

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

// Bool is a truth value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) sealed()    {}

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Vector is an ordered list of values.
type Vector struct {
	Elems []Value
}

// NewVector returns a vector holding elems.
func NewVector(elems ...Value) *Vector {
	return &Vector{Elems: elems}
}

func (*Vector) Kind() Kind { return KindVector }
func (*Vector) sealed()    {}

// Len returns the number of elements.
func (v *Vector) Len() int { return len(v.Elems) }

func (v *Vector) String() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// CallFunc invokes a function value with already evaluated arguments.
type CallFunc func(args []Value) (Value, error)

// Function is a callable value with a fixed arity.
type Function struct {
	Name   string
	Params []string
	Call   CallFunc
}

func (*Function) Kind() Kind { return KindFunction }
func (*Function) sealed()    {}

// Arity returns the number of parameters the function takes.
func (f *Function) Arity() int { return len(f.Params) }

// Invoke checks the argument count and calls the function.
func (f *Function) Invoke(args ...Value) (Value, error) {
	if len(args) != f.Arity() {
		return nil, &ArityError{Name: f.Name, Want: f.Arity(), Got: len(args)}
	}
	return f.Call(args)
}

func (f *Function) String() string {
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(f.Params, ", "))
}

// ArityError is returned when a function is called with the wrong number of
// arguments.
type ArityError struct {
	Name string
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("function %s expects %d argument(s), got %d", e.Name, e.Want, e.Got)
}

// Same reports whether a and b are the same value: equal scalars, or the
// same vector or function object.
func Same(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
