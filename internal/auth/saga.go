package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Step is one forward action of a saga and the action that undoes it.
// Compensate may be nil for steps with nothing to undo.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// RunSaga executes steps in order. When a step fails, the compensations of
// every completed step run in reverse order and the returned error joins the
// step failure with any compensation failures.
func RunSaga(ctx context.Context, logger *slog.Logger, steps ...Step) error {
	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		if err := step.Action(ctx); err != nil {
			stepErr := fmt.Errorf("%s: %w", step.Name, err)
			logger.WarnContext(ctx, "Saga step failed, compensating",
				"step", step.Name,
				"completed_steps", len(done),
				"error", err)
			return errors.Join(stepErr, compensate(ctx, logger, done))
		}
		done = append(done, step)
	}
	return nil
}

func compensate(ctx context.Context, logger *slog.Logger, done []Step) error {
	// Rollback must run even if the caller's context was cancelled.
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			logger.ErrorContext(ctx, "Compensation failed", "step", step.Name, "error", err)
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
