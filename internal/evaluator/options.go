package evaluator

import (
	"io"
	"log/slog"
	"regexp"

	"github.com/vk/mathscope/internal/exprgraph"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithBuiltins declares names that always resolve, such as global functions
// and constants provided by the expression language.
func WithBuiltins(names ...string) Option {
	return func(e *Evaluator) {
		e.builtins.Append(names...)
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAllowedDuplicateLeafPattern is passed through to the graph manager;
// see exprgraph.WithAllowedDuplicateLeafPattern.
func WithAllowedDuplicateLeafPattern(re *regexp.Regexp) Option {
	return func(e *Evaluator) {
		e.graphOpts = append(e.graphOpts, exprgraph.WithAllowedDuplicateLeafPattern(re))
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
