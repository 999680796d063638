package hclexpr

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/vk/mathscope/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ErrNaN is returned when a computation produces a value that is not a
// number, which cty cannot represent.
var ErrNaN = errors.New("result is not a number")

// ToCty converts a non-function value for use as an HCL variable.
func ToCty(v value.Value) (cty.Value, error) {
	switch v := v.(type) {
	case value.Number:
		return numberVal(float64(v))
	case value.Bool:
		return cty.BoolVal(bool(v)), nil
	case *value.Vector:
		if v.Len() == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, v.Len())
		for i, e := range v.Elems {
			ce, err := ToCty(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ce
		}
		return cty.TupleVal(elems), nil
	case *value.Function:
		return cty.NilVal, fmt.Errorf("function %s cannot be used as a value", v.Name)
	default:
		return cty.NilVal, fmt.Errorf("unsupported value %T", v)
	}
}

// FromCty converts an evaluation result back. Numbers, bools and
// sequences are supported; everything else is an error.
func FromCty(v cty.Value) (value.Value, error) {
	if v.IsNull() {
		return nil, errors.New("result is null")
	}
	if !v.IsWhollyKnown() {
		return nil, errors.New("result is unknown")
	}
	ty := v.Type()
	switch {
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			// Out of float64 range; keep the sign.
			bf := v.AsBigFloat()
			f, _ = bf.Float64()
		}
		return value.Number(f), nil
	case ty == cty.Bool:
		return value.Bool(v.True()), nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		elems := make([]value.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			e, err := FromCty(ev)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return value.NewVector(elems...), nil
	default:
		return nil, fmt.Errorf("unsupported result type %s", ty.FriendlyName())
	}
}

func numberVal(f float64) (cty.Value, error) {
	if math.IsNaN(f) {
		return cty.NilVal, ErrNaN
	}
	return cty.NumberVal(new(big.Float).SetFloat64(f)), nil
}

func toFloat(v cty.Value) float64 {
	f, _ := v.AsBigFloat().Float64()
	return f
}

// FunctionToCty wraps a function value so HCL expressions can call it.
func FunctionToCty(f *value.Function) function.Function {
	params := make([]function.Parameter, len(f.Params))
	for i, name := range f.Params {
		params[i] = function.Parameter{Name: name, Type: cty.DynamicPseudoType}
	}
	return function.New(&function.Spec{
		Description: f.String(),
		Params:      params,
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			in := make([]value.Value, len(args))
			for i, a := range args {
				v, err := FromCty(a)
				if err != nil {
					return cty.NilVal, fmt.Errorf("argument %s: %w", f.Params[i], err)
				}
				in[i] = v
			}
			out, err := f.Invoke(in...)
			if err != nil {
				return cty.NilVal, err
			}
			return ToCty(out)
		},
	})
}
