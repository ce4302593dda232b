package scanner

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/models"
)

// Runner runs a fixed list of scanners against one file, in order.
type Runner struct {
	scanners []Scanner
}

// NewRunner creates a Runner with the provided scanner implementations.
func NewRunner(scanners ...Scanner) *Runner {
	return &Runner{scanners: scanners}
}

// Names returns the configured tool names.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for _, s := range r.scanners {
		names = append(names, s.Name())
	}
	return names
}

// Run executes every scanner and concatenates their issues.
func (r *Runner) Run(ctx context.Context, file string) []models.Issue {
	var all []models.Issue
	for _, s := range r.scanners {
		start := time.Now()
		issues := s.Scan(ctx, file)
		slog.Debug("External tool finished",
			"tool", s.Name(), "file", file, "issues", len(issues), "duration", time.Since(start))
		all = append(all, issues...)
	}
	return all
}

// Options carries what every adapter needs to spawn its binary.
type Options struct {
	Timeout time.Duration
	Exec    runner.Executor
}

// run spawns the binary. The boolean is false when the tool is missing,
// timed out, or failed to start; callers then report no issues.
func (t Options) run(ctx context.Context, name string, args []string, dir string) (*runner.Result, bool) {
	exec := t.Exec
	if exec == nil {
		exec = runner.Local{}
	}
	res, err := exec.Run(ctx, runner.Command{
		Name:    name,
		Args:    args,
		Dir:     dir,
		Timeout: t.Timeout,
	})
	if err != nil {
		slog.Debug("External tool unavailable", "tool", name, "error", err)
		return nil, false
	}
	return res, true
}

// sameFile reports whether a path printed by a tool names the analysed
// file. Tools report paths relative to different roots, so only the base
// names are compared.
func sameFile(reported, analysed string) bool {
	if reported == "" {
		return false
	}
	return filepath.Base(reported) == filepath.Base(analysed)
}
