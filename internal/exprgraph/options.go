package exprgraph

import (
	"io"
	"log/slog"
	"regexp"
)

// DefaultAllowedDuplicateLeafPattern matches names that may be assigned more
// than once as long as nothing depends on them.
var DefaultAllowedDuplicateLeafPattern = regexp.MustCompile(`^_`)

// Option configures a Manager.
type Option func(*Manager)

// WithAllowedDuplicateLeafPattern sets the pattern for names whose duplicate
// assignments are tolerated while every assignment of the name is a leaf.
// A nil pattern tolerates no duplicates.
func WithAllowedDuplicateLeafPattern(re *regexp.Regexp) Option {
	return func(m *Manager) {
		m.allowedDuplicateLeaf = re
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
