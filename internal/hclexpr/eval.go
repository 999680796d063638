package hclexpr

import (
	"fmt"
	"maps"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/mathscope/internal/expr"
	"github.com/vk/mathscope/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// EvalError wraps the diagnostics of a failed evaluation.
type EvalError struct {
	Diags hcl.Diagnostics
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation error: %s", e.Diags.Error())
}

func (e *EvalError) Unwrap() []error { return e.Diags.Errs() }

// evalContext resolves names against the scope first and the builtins
// second. Any name found in neither is reported as unmet.
func (p *Parser) evalContext(scope expr.Scope, names []string) (*hcl.EvalContext, error) {
	ctx := &hcl.EvalContext{
		Variables: make(map[string]cty.Value, len(names)),
		Functions: make(map[string]function.Function),
	}
	var missing []string
	for _, name := range names {
		if v, ok := scope.Lookup(name); ok {
			if err := bind(ctx, name, v); err != nil {
				return nil, err
			}
			continue
		}
		if f, ok := p.builtins.Functions[name]; ok {
			ctx.Functions[name] = f
			continue
		}
		if c, ok := p.builtins.Constants[name]; ok {
			ctx.Variables[name] = c
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return nil, expr.NewUnmetDependencyError(missing...)
	}
	return ctx, nil
}

func bind(ctx *hcl.EvalContext, name string, v value.Value) error {
	if f, ok := v.(*value.Function); ok {
		ctx.Functions[name] = FunctionToCty(f)
		return nil
	}
	cv, err := ToCty(v)
	if err != nil {
		return fmt.Errorf("symbol %s: %w", name, err)
	}
	ctx.Variables[name] = cv
	return nil
}

func (p *Parser) valueEvaluator(c *compiled) expr.EvaluateFunc {
	return func(scope expr.Scope) (value.Value, error) {
		ctx, err := p.evalContext(scope, c.deps)
		if err != nil {
			return nil, err
		}
		return evalBody(c, ctx)
	}
}

// functionEvaluator captures the dependency values current at evaluation
// time. Calls see that snapshot plus their arguments; the function's own
// name is not bound, so it cannot recurse.
func (p *Parser) functionEvaluator(c *compiled) expr.EvaluateFunc {
	return func(scope expr.Scope) (value.Value, error) {
		captured, err := p.evalContext(scope, c.deps)
		if err != nil {
			return nil, err
		}
		call := func(args []value.Value) (value.Value, error) {
			ctx := &hcl.EvalContext{
				Variables: maps.Clone(captured.Variables),
				Functions: maps.Clone(captured.Functions),
			}
			for i, param := range c.params {
				delete(ctx.Variables, param)
				delete(ctx.Functions, param)
				if err := bind(ctx, param, args[i]); err != nil {
					return nil, err
				}
			}
			return evalBody(c, ctx)
		}
		return &value.Function{Name: c.name, Params: c.params, Call: call}, nil
	}
}

func evalBody(c *compiled, ctx *hcl.EvalContext) (value.Value, error) {
	out, diags := c.body.Value(ctx)
	if diags.HasErrors() {
		return nil, &EvalError{Diags: diags}
	}
	v, err := FromCty(out)
	if err != nil {
		return nil, fmt.Errorf("evaluation error: %w", err)
	}
	return v, nil
}
