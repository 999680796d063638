// Package hclexpr parses HCL expression syntax into expression nodes.
//
// An input is one of
//
//	name = body            value assignment
//	name(p1, p2) = body    function assignment
//	body                   anonymous expression
//
// where body is any HCL expression. Compiled bodies are cached by source
// text, so re-parsing an unchanged input is cheap; every Parse still returns
// a fresh node.
package hclexpr

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/mathscope/internal/expr"
)

// DefaultCacheSize is the number of compiled inputs a Parser keeps.
const DefaultCacheSize = 512

// header matches the left-hand side of an assignment. The remainder after
// `=` is checked separately so that `a == b` stays a comparison.
var header = regexp.MustCompile(`(?s)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:\(([^()]*)\))?\s*=(.*)$`)

type compiled struct {
	kind   expr.Kind
	name   string
	params []string
	body   hclsyntax.Expression
	deps   []string
}

// Parser turns HCL expression text into nodes.
type Parser struct {
	cache     *lru.Cache[string, *compiled]
	cacheSize int
	builtins  *Builtins
	logger    *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithCacheSize sets how many compiled inputs are kept.
func WithCacheSize(n int) Option {
	return func(p *Parser) {
		p.cacheSize = n
	}
}

// WithBuiltins replaces the default builtin functions and constants.
func WithBuiltins(b *Builtins) Option {
	return func(p *Parser) {
		if b != nil {
			p.builtins = b
		}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser returns a Parser using DefaultBuiltins unless told otherwise.
func NewParser(opts ...Option) (*Parser, error) {
	p := &Parser{
		cacheSize: DefaultCacheSize,
		builtins:  DefaultBuiltins(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	cache, err := lru.New[string, *compiled](p.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache of size %d: %w", p.cacheSize, err)
	}
	p.cache = cache
	return p, nil
}

// Builtins returns the builtin set expressions are evaluated with.
func (p *Parser) Builtins() *Builtins { return p.builtins }

// BuiltinNames returns every name that resolves without being assigned.
func (p *Parser) BuiltinNames() []string { return p.builtins.Names() }

// Parse compiles input into a node. Failures are *expr.ParseError.
func (p *Parser) Parse(input string) (node *expr.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node, err = nil, &expr.ParseError{Source: input, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	c, ok := p.cache.Get(input)
	if !ok {
		c, err = compile(input)
		if err != nil {
			return nil, &expr.ParseError{Source: input, Err: err}
		}
		p.cache.Add(input, c)
		p.logger.Debug("Expression compiled.", "kind", c.kind, "name", c.name, "deps", c.deps)
	}

	var n *expr.Node
	switch c.kind {
	case expr.KindValueAssignment:
		n = expr.NewValueAssignment(c.name, c.deps, p.valueEvaluator(c))
	case expr.KindFunctionAssignment:
		n = expr.NewFunctionAssignment(c.name, c.params, c.deps, p.functionEvaluator(c))
	default:
		n = expr.NewValue(c.deps, p.valueEvaluator(c))
	}
	return n.WithSource(input), nil
}

func compile(input string) (*compiled, error) {
	c := &compiled{kind: expr.KindValue}
	body := input

	if m := header.FindStringSubmatchIndex(input); m != nil && !strings.HasPrefix(input[m[6]:], "=") {
		c.name = input[m[2]:m[3]]
		body = input[m[6]:m[7]]
		c.kind = expr.KindValueAssignment
		if m[4] >= 0 {
			c.kind = expr.KindFunctionAssignment
			params, err := splitParams(input[m[4]:m[5]])
			if err != nil {
				return nil, fmt.Errorf("function %s: %w", c.name, err)
			}
			c.params = params
		}
	}

	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	parsed, diags := hclsyntax.ParseExpression([]byte(body), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	c.body = parsed
	c.deps = freeNames(parsed, c.name, c.params)
	return c, nil
}

func splitParams(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	var params []string
	for _, raw := range strings.Split(list, ",") {
		param := strings.TrimSpace(raw)
		if !hclsyntax.ValidIdentifier(param) || strings.Contains(param, "-") {
			return nil, fmt.Errorf("invalid parameter name %q", param)
		}
		if !seen.Add(param) {
			return nil, fmt.Errorf("duplicate parameter %q", param)
		}
		params = append(params, param)
	}
	return params, nil
}

// freeNames returns the sorted root names the body reads or calls, without
// params and the assigned name.
func freeNames(body hclsyntax.Expression, name string, params []string) []string {
	names := mapset.NewThreadUnsafeSet[string]()
	for _, traversal := range body.Variables() {
		names.Add(traversal.RootName())
	}
	// Variables() does not report function calls.
	hclsyntax.VisitAll(body, func(node hclsyntax.Node) hcl.Diagnostics {
		if call, ok := node.(*hclsyntax.FunctionCallExpr); ok {
			names.Add(call.Name)
		}
		return nil
	})
	for _, p := range params {
		names.Remove(p)
	}
	names.Remove(name)

	out := names.ToSlice()
	slices.Sort(out)
	return out
}
