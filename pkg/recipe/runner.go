package recipe

import (
	"context"
	"time"
)

// Runner runs the real program a command fragment names and returns its
// stdout.
type Runner interface {
	Output(ctx context.Context, argv []string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, argv []string) ([]byte, error)

// Output calls f.
func (f RunnerFunc) Output(ctx context.Context, argv []string) ([]byte, error) {
	return f(ctx, argv)
}

// Exec runs programs with os/exec. Stdin is empty.
type Exec struct {
	Timeout        time.Duration
	MaxOutputBytes int64
}

// Output runs argv to completion. A non-zero exit is an error.
func (e Exec) Output(ctx context.Context, argv []string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, e.Timeout)
	defer cancel()
	return runProcess(ctx, argv, nil, e.MaxOutputBytes)
}
