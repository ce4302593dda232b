// Package testgen drafts unit tests for Python sources with a language
// model and, optionally, runs them and feeds failures back until they
// pass or the retry budget is spent.
package testgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/ai"
	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
	"github.com/devbuddy-ai/devbuddy/internal/pysource"
	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/models"
)

const (
	// DefaultMaxRetry bounds the execute/feedback loop.
	DefaultMaxRetry = 3
	defaultTimeout  = 60 * time.Second
	scratchPrefix   = "_temp_test_"
)

// ErrFunctionNotFound is returned when Options.Function names no function
// in the source file.
var ErrFunctionNotFound = errors.New("function not found")

// Options select what to generate for a single request.
type Options struct {
	// Function restricts generation to one function. Empty means all.
	Function string
	// Framework is "pytest" or "unittest". Generated tests always run under pytest.
	Framework string
	Coverage  bool
}

// Generator produces test modules. It holds no per-request state.
type Generator struct {
	client    ai.Client
	ledger    licensing.Ledger
	exec      runner.Executor
	maxRetry  int
	timeout   time.Duration
	framework string
}

// New returns a Generator. ledger may be nil to skip metering.
func New(client ai.Client, ledger licensing.Ledger, cfg config.TestGenConfig) *Generator {
	g := &Generator{
		client:    client,
		ledger:    ledger,
		exec:      runner.Local{},
		maxRetry:  cfg.MaxRetry,
		timeout:   cfg.Timeout,
		framework: cfg.Framework,
	}
	if g.maxRetry < 1 {
		g.maxRetry = DefaultMaxRetry
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	if g.framework == "" {
		g.framework = "pytest"
	}
	return g
}

// WithExecutor replaces the subprocess executor used to run tests.
func (g *Generator) WithExecutor(exec runner.Executor) *Generator {
	g.exec = exec
	return g
}

// ScratchPath is where candidate tests for source are written while they
// run. Two verifications of the same source must not run concurrently.
func ScratchPath(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), scratchPrefix+stem+".py")
}

// Generate drafts tests without running them.
func (g *Generator) Generate(ctx context.Context, source string, opts Options) *models.GenerationResult {
	res := &models.GenerationResult{}
	if err := g.checkLimit(ctx); err != nil {
		res.Error = err.Error()
		return res
	}
	code, err := g.draft(ctx, source, opts)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	g.recordUsage(ctx)

	res.Success = true
	res.Attempts = 1
	res.TestCode = code
	res.TestCount = CountTests(code)
	return res
}

// CountTests counts test functions in a generated module.
func CountTests(code string) int {
	return strings.Count(code, "def test_")
}

func (g *Generator) checkLimit(ctx context.Context) error {
	if g.ledger == nil {
		return nil
	}
	return g.ledger.CheckLimit(ctx, licensing.KindTestGen)
}

func (g *Generator) recordUsage(ctx context.Context) {
	if g.ledger == nil {
		return
	}
	if err := g.ledger.RecordUsage(ctx, licensing.KindTestGen); err != nil {
		slog.Warn("Failed to record test generation usage", "error", err)
	}
}

// draft extracts the target functions from source, prompts the model and
// returns the cleaned test module.
func (g *Generator) draft(ctx context.Context, source string, opts Options) (string, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	fns := pysource.ExtractFunctions(ctx, string(data))
	if opts.Function != "" {
		var picked []models.FunctionDescriptor
		for _, fn := range fns {
			if fn.Name == opts.Function {
				picked = append(picked, fn)
			}
		}
		if len(picked) == 0 {
			return "", fmt.Errorf("%w: '%s'", ErrFunctionNotFound, opts.Function)
		}
		fns = picked
	}

	framework := opts.Framework
	if framework == "" {
		framework = g.framework
	}
	module := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	slog.Debug("Drafting tests", "file", source, "functions", len(fns), "framework", framework)
	return g.complete(ctx, ai.TestGenerationPrompt(fns, module, framework))
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	out, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return ai.StripCodeFences(out), nil
}
