package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/vk/mathscope"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	scope  *mathscope.MathScope[string]

	errColor  *color.Color
	headColor *color.Color
}

// NewApp builds an App writing reports to outW and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	scope, err := mathscope.NewHCL(
		mathscope.WithLogger(logger),
		mathscope.WithParseCacheSize(cfg.ParseCacheSize),
		mathscope.WithAllowedDuplicateLeafPattern(cfg.duplicatePattern),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scope: %w", err)
	}
	logger.Debug("Scope created.", "builtins", len(scope.Builtins()))

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		scope:     scope,
		errColor:  color.New(color.FgRed),
		headColor: color.New(color.Bold),
	}
	if cfg.NoColor {
		a.errColor.DisableColor()
		a.headColor.DisableColor()
	}
	scope.AddEventListener(mathscope.EventChangeErrors, a.logErrorChanges)
	return a, nil
}

// Scope returns the application's scope. This is primarily for testing.
func (a *App) Scope() *mathscope.MathScope[string] {
	return a.scope
}

func (a *App) logErrorChanges(ev mathscope.Event) {
	for _, id := range sortedIDs(ev.Errors.Added.Union(ev.Errors.Updated)) {
		a.logger.Warn("Expression failed.", "id", id, "error", a.scope.Err(id))
	}
	for _, id := range sortedIDs(ev.Errors.Deleted) {
		a.logger.Debug("Expression error cleared.", "id", id)
	}
}
