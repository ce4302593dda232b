// Package runner executes external programs (linters, compilers, test
// runners) with a bounded timeout and captures their output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned when the command exceeds its timeout.
	ErrTimeout = errors.New("command timed out")
	// ErrNotFound is returned when the executable cannot be located.
	ErrNotFound = errors.New("executable not found")
)

// Command describes a single subprocess invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the captured outcome of a finished command. A non-zero exit
// status is reported through ExitCode, not as an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Combined returns stdout followed by stderr.
func (r *Result) Combined() string {
	return r.Stdout + r.Stderr
}

// Success reports whether the command exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Executor runs commands. Orchestrators depend on this so tests can
// substitute scripted runners.
type Executor interface {
	Run(ctx context.Context, c Command) (*Result, error)
}

// Local runs commands on the host with os/exec.
type Local struct{}

// Run starts c and waits for it. The returned error is ErrTimeout,
// ErrNotFound, or a wrapped start failure.
func (Local) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		slog.Debug("Command timed out", "cmd", c.String(), "timeout", c.Timeout)
		return res, fmt.Errorf("%s: %w", c.Name, ErrTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", c.Name, ErrNotFound)
		}
		return nil, fmt.Errorf("running %s: %w", c.Name, err)
	}
	return res, nil
}

// Run executes c with the Local executor.
func Run(ctx context.Context, c Command) (*Result, error) {
	return Local{}.Run(ctx, c)
}

// Available reports whether name resolves to an executable on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
