package hclexpr

import (
	"maps"
	"math"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Builtins are the functions and constants that resolve when the scope does
// not define the name. Scope names shadow builtins.
type Builtins struct {
	Functions map[string]function.Function
	Constants map[string]cty.Value
}

// DefaultBuiltins returns the standard math library.
func DefaultBuiltins() *Builtins {
	return &Builtins{
		Functions: map[string]function.Function{
			"abs":    stdlib.AbsoluteFunc,
			"ceil":   stdlib.CeilFunc,
			"floor":  stdlib.FloorFunc,
			"log":    stdlib.LogFunc,
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"pow":    stdlib.PowFunc,
			"signum": stdlib.SignumFunc,
			"length": stdlib.LengthFunc,
			"sin":    unaryMathFunc("sin", math.Sin),
			"cos":    unaryMathFunc("cos", math.Cos),
			"tan":    unaryMathFunc("tan", math.Tan),
			"sqrt":   unaryMathFunc("sqrt", math.Sqrt),
			"exp":    unaryMathFunc("exp", math.Exp),
			"ln":     unaryMathFunc("ln", math.Log),
		},
		Constants: map[string]cty.Value{
			"pi": cty.NumberFloatVal(math.Pi),
			"e":  cty.NumberFloatVal(math.E),
		},
	}
}

// Names returns all builtin names, sorted.
func (b *Builtins) Names() []string {
	names := slices.Collect(maps.Keys(b.Functions))
	names = slices.AppendSeq(names, maps.Keys(b.Constants))
	slices.Sort(names)
	return slices.Compact(names)
}

// Has reports whether name is a builtin.
func (b *Builtins) Has(name string) bool {
	if _, ok := b.Functions[name]; ok {
		return true
	}
	_, ok := b.Constants[name]
	return ok
}

func unaryMathFunc(name string, fn func(float64) float64) function.Function {
	return function.New(&function.Spec{
		Description: "Returns " + name + " of the given number.",
		Params: []function.Parameter{
			{Name: "num", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return numberVal(fn(toFloat(args[0])))
		},
	})
}
