// Package fixer runs a failing test suite, asks the model for line-level
// fix suggestions and optionally applies them until the suite passes.
package fixer

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
	"github.com/devbuddy-ai/devbuddy/internal/analyzer"
	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/internal/scanner"
	"github.com/devbuddy-ai/devbuddy/internal/verify"
	"github.com/devbuddy-ai/devbuddy/models"
)

const (
	// DefaultMaxRetry bounds SuggestAndVerify rounds.
	DefaultMaxRetry = 3
	defaultTimeout  = 120 * time.Second
)

// Fixer produces fix suggestions for failing tests.
type Fixer struct {
	client   ai.Client
	ledger   licensing.Ledger
	exec     runner.Executor
	timeout  time.Duration
	maxRetry int
}

// New returns a Fixer. ledger may be nil to skip metering.
func New(client ai.Client, ledger licensing.Ledger, cfg config.FixConfig) *Fixer {
	f := &Fixer{
		client:   client,
		ledger:   ledger,
		exec:     runner.Local{},
		timeout:  cfg.Timeout,
		maxRetry: cfg.MaxRetry,
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}
	if f.maxRetry < 1 {
		f.maxRetry = DefaultMaxRetry
	}
	return f
}

// WithExecutor replaces the subprocess executor used to run tests.
func (f *Fixer) WithExecutor(exec runner.Executor) *Fixer {
	f.exec = exec
	return f
}

// TestCommand picks the test runner for testPath by extension. Unknown
// extensions use pytest.
func TestCommand(testPath string, timeout time.Duration) runner.Command {
	lang, _ := analyzer.DetectLanguage(testPath)
	switch lang {
	case analyzer.JavaScript:
		return runner.Command{Name: "npx", Args: []string{"jest", testPath}, Timeout: timeout}
	case analyzer.Go:
		return runner.Command{Name: "go", Args: []string{"test", "-v", "."}, Dir: filepath.Dir(testPath), Timeout: timeout}
	case analyzer.Rust:
		dir, ok := scanner.FindCargoRoot(testPath)
		if !ok {
			dir = filepath.Dir(testPath)
		}
		return runner.Command{Name: "cargo", Args: []string{"test"}, Dir: dir, Timeout: timeout}
	default:
		return runner.Command{Name: "pytest", Args: []string{testPath, "-v", "--tb=long"}, Timeout: timeout}
	}
}

func languageName(path string) string {
	if lang, ok := analyzer.DetectLanguage(path); ok {
		return string(lang)
	}
	return string(analyzer.Python)
}

// SuggestFix runs the tests once and, if they fail, asks the model for
// suggestions. Passing tests yield success with no suggestions.
// sourcePath may be empty.
func (f *Fixer) SuggestFix(ctx context.Context, testPath, sourcePath string) *models.FixResult {
	res := &models.FixResult{Suggestions: []models.FixSuggestion{}}
	if err := f.checkLimit(ctx); err != nil {
		return failed(res, err)
	}

	out, err := f.run(ctx, testPath)
	if err != nil {
		return failed(res, err)
	}
	res.Attempts = 1
	res.Report = out.Report
	if out.Passed {
		res.Success = true
		res.Verified = true
		return res
	}

	suggestions, err := f.request(ctx, testPath, sourcePath, verify.Context(out.Output, out.Report))
	if err != nil {
		return failed(res, err)
	}
	res.Success = true
	res.Suggestions = suggestions
	return res
}

// SuggestAndVerify repeats suggest, apply and re-run up to the retry
// budget, stopping once the tests pass. Without autoApply nothing can
// change between runs, so it stops after the first round. Applied edits
// are never rolled back.
func (f *Fixer) SuggestAndVerify(ctx context.Context, testPath, sourcePath string, autoApply bool) *models.FixResult {
	res := &models.FixResult{Suggestions: []models.FixSuggestion{}}
	if err := f.checkLimit(ctx); err != nil {
		return failed(res, err)
	}

	out, err := f.run(ctx, testPath)
	if err != nil {
		return failed(res, err)
	}
	res.Report = out.Report
	if out.Passed {
		res.Success = true
		res.Verified = true
		res.Attempts = 1
		return res
	}

	var applied []string
	for attempt := 1; attempt <= f.maxRetry; attempt++ {
		res.Attempts = attempt
		feedback := verify.ErrorContext(out.Output, out.Report, attempt, f.maxRetry)
		suggestions, err := f.request(ctx, testPath, sourcePath, feedback)
		if err != nil {
			return failed(res, err)
		}
		res.Suggestions = append(res.Suggestions, suggestions...)

		if !autoApply {
			break
		}
		for _, s := range suggestions {
			if ApplyFix(s) {
				applied = append(applied, s.Description)
			} else {
				slog.Debug("Suggestion did not apply", "file", s.FilePath, "line", s.Line)
			}
		}

		if out, err = f.run(ctx, testPath); err != nil {
			return failed(res, err)
		}
		out.Report.AppliedFixes = append([]string{}, applied...)
		res.Report = out.Report
		if out.Passed {
			res.Verified = true
			break
		}
		if attempt < f.maxRetry {
			if err := f.checkLimit(ctx); err != nil {
				break
			}
		}
	}
	res.Success = true
	slog.Info("Fix loop finished", "test", testPath, "attempts", res.Attempts, "verified", res.Verified, "applied", len(applied))
	return res
}

// ApplyFix replaces the first occurrence of s.Original in s.FilePath with
// s.Replacement. It returns false and leaves the file untouched when the
// file is unreadable or does not contain the original text.
func ApplyFix(s models.FixSuggestion) bool {
	if s.Original == "" {
		return false
	}
	info, err := os.Stat(s.FilePath)
	if err != nil {
		return false
	}
	data, err := os.ReadFile(s.FilePath)
	if err != nil {
		return false
	}
	content := string(data)
	if !strings.Contains(content, s.Original) {
		return false
	}
	updated := strings.Replace(content, s.Original, s.Replacement, 1)
	if err := os.WriteFile(s.FilePath, []byte(updated), info.Mode().Perm()); err != nil {
		slog.Warn("Failed to write fix", "file", s.FilePath, "error", err)
		return false
	}
	return true
}

func (f *Fixer) run(ctx context.Context, testPath string) (*verify.Outcome, error) {
	out, err := verify.Execute(ctx, f.exec, TestCommand(testPath, f.timeout))
	if errors.Is(err, runner.ErrTimeout) {
		return nil, errors.New("test execution timed out")
	}
	return out, err
}

// request sends one bug-fix prompt and meters it.
func (f *Fixer) request(ctx context.Context, testPath, sourcePath, errorContext string) ([]models.FixSuggestion, error) {
	testCode, err := os.ReadFile(testPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read test file: %w", err)
	}
	var source string
	if sourcePath != "" {
		if data, err := os.ReadFile(sourcePath); err == nil {
			source = string(data)
		} else {
			slog.Debug("Source file unreadable, continuing without it", "path", sourcePath, "error", err)
		}
	}

	prompt := ai.BugFixPrompt(string(testCode), errorContext, source, languageName(testPath))
	response, err := f.client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	f.recordUsage(ctx)

	defaultPath := sourcePath
	if defaultPath == "" {
		defaultPath = testPath
	}
	suggestions := ParseSuggestions(response, defaultPath)
	slog.Debug("Parsed fix suggestions", "count", len(suggestions))
	return suggestions, nil
}

func (f *Fixer) checkLimit(ctx context.Context) error {
	if f.ledger == nil {
		return nil
	}
	return f.ledger.CheckLimit(ctx, licensing.KindFix)
}

func (f *Fixer) recordUsage(ctx context.Context) {
	if f.ledger == nil {
		return
	}
	if err := f.ledger.RecordUsage(ctx, licensing.KindFix); err != nil {
		slog.Warn("Failed to record fix usage", "error", err)
	}
}

func failed(res *models.FixResult, err error) *models.FixResult {
	res.Success = false
	res.Error = err.Error()
	return res
}
