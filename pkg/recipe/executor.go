// Package recipe runs transformation recipes in a nested pipeline interpreter
// and runs the programs whose output those recipes reshape.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyRecipe is returned for a blank recipe.
var ErrEmptyRecipe = errors.New("empty recipe")

// Executor feeds program output through an Interpreter.
type Executor struct {
	interp  Interpreter
	timeout time.Duration
	logger  *zap.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout bounds each Execute call. Zero means no deadline beyond the
// caller's context.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor wraps interp.
func NewExecutor(interp Interpreter, opts ...ExecutorOption) *Executor {
	e := &Executor{interp: interp, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs recipe over programOutput and returns the interpreter's stdout,
// which should be a JSON document. It does not inspect that output.
func (e *Executor) Execute(ctx context.Context, recipe string, programOutput []byte) ([]byte, error) {
	if strings.TrimSpace(recipe) == "" {
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, ErrEmptyRecipe)
	}
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out, err := e.interp.Run(ctx, recipe, programOutput)
	elapsed := time.Since(start)
	if err != nil {
		e.logger.Debug("recipe failed",
			zap.String("recipe", recipe),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		if !errors.Is(err, ErrExecutionFailed) {
			err = fmt.Errorf("%w: %w", ErrExecutionFailed, err)
		}
		return nil, err
	}
	e.logger.Debug("recipe done",
		zap.String("recipe", recipe),
		zap.Int("input_bytes", len(programOutput)),
		zap.Int("output_bytes", len(out)),
		zap.Duration("elapsed", elapsed))
	return out, nil
}
