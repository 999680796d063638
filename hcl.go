package mathscope

import (
	"fmt"

	"github.com/vk/mathscope/internal/hclexpr"
)

// NewHCL returns a MathScope for HCL expression syntax, for example
//
//	a = 2
//	f(x) = pow(x, 2) + a
//	f(3) > 10 ? max(a, 4) : 0
//
// The parser's math builtins (sin, sqrt, pow, pi, ...) are declared
// automatically.
func NewHCL(opts ...Option) (*MathScope[string], error) {
	cfg := newConfig(opts)
	parser, err := hclexpr.NewParser(
		hclexpr.WithCacheSize(cfg.parseCacheSize),
		hclexpr.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating HCL parser: %w", err)
	}
	all := append([]Option{WithBuiltins(parser.BuiltinNames()...)}, opts...)
	return New(parser.Parse, all...), nil
}
