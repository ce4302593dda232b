package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/models"
)

// Outcome is one test-runner execution.
type Outcome struct {
	Passed bool
	Output string
	Report *models.VerificationReport
}

// Execute runs c and parses its output. A timeout or a missing runner is
// returned as an error; a failing test run is not.
func Execute(ctx context.Context, exec runner.Executor, c runner.Command) (*Outcome, error) {
	if exec == nil {
		exec = runner.Local{}
	}
	slog.Debug("Running tests", "cmd", c.String())
	res, err := exec.Run(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("running tests: %w", err)
	}
	out := res.Combined()
	return &Outcome{
		Passed: res.Success(),
		Output: out,
		Report: ParseReport(out),
	}, nil
}
