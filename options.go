package mathscope

import (
	"io"
	"log/slog"
	"regexp"

	"github.com/vk/mathscope/internal/evaluator"
	"github.com/vk/mathscope/internal/hclexpr"
)

type config struct {
	builtins       []string
	logger         *slog.Logger
	evalOpts       []evaluator.Option
	parseCacheSize int
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		parseCacheSize: hclexpr.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures a MathScope.
type Option func(*config)

// WithBuiltins declares names that always resolve without being assigned.
func WithBuiltins(names ...string) Option {
	return func(c *config) {
		c.builtins = append(c.builtins, names...)
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAllowedDuplicateLeafPattern sets which names may be assigned more than
// once, provided no other expression reads them. nil allows no duplicates.
// The default is `^_`.
func WithAllowedDuplicateLeafPattern(re *regexp.Regexp) Option {
	return func(c *config) {
		c.evalOpts = append(c.evalOpts, evaluator.WithAllowedDuplicateLeafPattern(re))
	}
}

// WithParseCacheSize sets how many compiled inputs NewHCL's parser keeps.
// It has no effect on New.
func WithParseCacheSize(n int) Option {
	return func(c *config) {
		c.parseCacheSize = n
	}
}
