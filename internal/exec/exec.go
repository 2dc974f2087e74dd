// Package exec wraps subprocess execution for package-manager and git
// invocations. Every call carries an explicit timeout; a timed-out or
// missing tool is reported through the Result, not a panic.
package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Exit codes reserved for execution-level failures, mirroring shell
// conventions (124 timeout, 127 command not found).
const (
	ExitTimeout  = 124
	ExitNotFound = 127
)

// Result holds the outcome of a command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// OK reports whether the command ran and exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Message returns the most useful diagnostic text: stderr if present,
// stdout otherwise.
func (r Result) Message() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Run executes a command in dir with the given timeout, capturing output.
// The returned error is non-nil for any non-zero exit; callers that only
// care about success can inspect Result.OK().
func Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			res.ExitCode = ExitTimeout
		case errors.Is(err, exec.ErrNotFound):
			res.ExitCode = ExitNotFound
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			res.ExitCode = 1
		}
	}

	return res, err
}

// LookPath reports whether a tool is available on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
