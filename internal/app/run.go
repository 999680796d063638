package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/mathscope"
	"github.com/vk/mathscope/internal/ctxlog"
	"github.com/vk/mathscope/internal/scene"
)

// ErrExpressionsFailed is returned by Run when FailOnErrors is set and at
// least one expression ended with an error.
var ErrExpressionsFailed = errors.New("expressions failed")

// Run loads the scene, evaluates it and writes the report.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	sc, err := scene.Load(ctx, a.config.ScenePaths...)
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}

	entries := make([]mathscope.Entry[string], len(sc.Expressions))
	for i, e := range sc.Expressions {
		entries[i] = mathscope.Entry[string]{ID: e.ID, Input: e.Expr}
	}
	if err := a.scope.SetExpressions(entries); err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	a.logger.Info("Scene evaluated.", "expressions", len(entries), "errors", len(a.scope.Errors()))
	a.writeTable(sc)

	if len(a.config.DeleteIDs) > 0 {
		var last mathscope.Event
		id := a.scope.AddEventListener(mathscope.EventChange, func(ev mathscope.Event) { last = ev })
		err := a.scope.DeleteExpressions(a.config.DeleteIDs)
		a.scope.RemoveEventListener(mathscope.EventChange, id)
		if err != nil {
			return fmt.Errorf("deleting expressions: %w", err)
		}
		a.logger.Info("Expressions deleted.", "ids", a.config.DeleteIDs)

		fmt.Fprintln(a.outW)
		a.writeChange(a.config.DeleteIDs, last)
		a.writeTable(sc)
	}

	a.logger.Debug("App.Run method finished.")
	if a.config.FailOnErrors && len(a.scope.Errors()) > 0 {
		return fmt.Errorf("%d expression(s) with errors: %w", len(a.scope.Errors()), ErrExpressionsFailed)
	}
	return nil
}
