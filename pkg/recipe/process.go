package recipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxOutputBytes caps what is read from a child's stdout.
	DefaultMaxOutputBytes = 64 * 1024 * 1024

	// stderrLimit caps the stderr excerpt kept for error messages.
	stderrLimit = 4 * 1024

	// waitDelay bounds how long Wait blocks on pipes after the child is killed.
	waitDelay = 2 * time.Second
)

// ErrExecutionFailed marks any failure to run a child process to completion.
var ErrExecutionFailed = errors.New("execution failed")

// errOutputTooLarge is wrapped when stdout exceeds the configured cap.
var errOutputTooLarge = errors.New("output exceeds limit")

// ProcessError describes a child process that could not be started, was
// killed, exited non-zero, or whose pipes failed.
type ProcessError struct {
	Argv     []string
	ExitCode int // -1 when the process never exited normally
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	name := "process"
	if len(e.Argv) > 0 {
		name = e.Argv[0]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %v", name, e.Err)
	if e.ExitCode > 0 {
		fmt.Fprintf(&sb, " (exit %d)", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		sb.WriteString(": ")
		sb.WriteString(s)
	}
	return sb.String()
}

// Unwrap exposes both ErrExecutionFailed and the underlying cause.
func (e *ProcessError) Unwrap() []error {
	return []error{ErrExecutionFailed, e.Err}
}

// capped keeps at most max bytes and silently drops the rest.
type capped struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *capped) Write(p []byte) (int, error) {
	if room := c.max - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
			c.truncated = true
		} else {
			c.buf.Write(p)
		}
	} else if len(p) > 0 {
		c.truncated = true
	}
	return len(p), nil
}

func (c *capped) String() string {
	if c.truncated {
		return c.buf.String() + "…"
	}
	return c.buf.String()
}

// runProcess starts argv, feeds it stdin (when non-nil) and returns its
// stdout. The stdin writer and stdout reader run concurrently so a child that
// interleaves reading and writing cannot deadlock against us. Every path
// releases the pipes and reaps the process.
func runProcess(ctx context.Context, argv []string, stdin []byte, limit int64) ([]byte, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, &ProcessError{ExitCode: -1, Err: errors.New("no command")}
	}
	if limit <= 0 {
		limit = DefaultMaxOutputBytes
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	stderr := &capped{max: stderrLimit}
	cmd.Stderr = stderr

	fail := func(err error) *ProcessError {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return &ProcessError{Argv: argv, ExitCode: code, Stderr: stderr.String(), Err: err}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fail(fmt.Errorf("stdout pipe: %w", err))
	}
	var stdinPipe io.WriteCloser
	if stdin != nil {
		stdinPipe, err = cmd.StdinPipe()
		if err != nil {
			return nil, fail(fmt.Errorf("stdin pipe: %w", err))
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fail(fmt.Errorf("start: %w", err))
	}

	var g errgroup.Group
	if stdinPipe != nil {
		g.Go(func() error {
			defer stdinPipe.Close()
			if _, err := stdinPipe.Write(stdin); err != nil {
				return fmt.Errorf("write stdin: %w", err)
			}
			return nil
		})
	}

	var out []byte
	g.Go(func() error {
		data, err := io.ReadAll(io.LimitReader(stdout, limit+1))
		if err != nil {
			return fmt.Errorf("read stdout: %w", err)
		}
		if int64(len(data)) > limit {
			// Keep draining so the child can finish writing and exit.
			_, _ = io.Copy(io.Discard, stdout)
			return fmt.Errorf("%w (%d bytes)", errOutputTooLarge, limit)
		}
		out = data
		return nil
	})

	ioErr := g.Wait()
	waitErr := cmd.Wait()
	switch {
	case waitErr != nil:
		return nil, fail(waitErr)
	case ioErr != nil:
		return nil, fail(ioErr)
	}
	return out, nil
}

// withTimeout derives a deadline-bound context when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
