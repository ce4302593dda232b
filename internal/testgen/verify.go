package testgen

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/devbuddy-ai/devbuddy/internal/ai"
	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/internal/verify"
	"github.com/devbuddy-ai/devbuddy/models"
)

type state int

const (
	stateDraft state = iota
	stateExecute
	stateParse
	stateVerified
	stateUnverified
)

func (s state) String() string {
	switch s {
	case stateDraft:
		return "draft"
	case stateExecute:
		return "execute"
	case stateParse:
		return "parse"
	case stateVerified:
		return "verified"
	case stateUnverified:
		return "unverified"
	}
	return "unknown"
}

// GenerateAndVerify drafts tests, runs them under pytest and asks the
// model to repair failures, up to the retry budget. Exhausting the budget
// still succeeds with Verified=false; a timeout or I/O error fails the
// request. The scratch file is removed on every path.
func (g *Generator) GenerateAndVerify(ctx context.Context, source string, opts Options) *models.GenerationResult {
	res := &models.GenerationResult{}
	if err := g.checkLimit(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	scratch := ScratchPath(source)
	defer removeScratch(scratch)

	var (
		code    string
		outcome *verify.Outcome
		err     error
	)
	st := stateDraft
	for {
		slog.Debug("Test generation step", "file", source, "state", st, "attempt", res.Attempts)
		switch st {
		case stateDraft:
			if code, err = g.draft(ctx, source, opts); err != nil {
				return fail(res, code, err)
			}
			g.recordUsage(ctx)
			res.Attempts = 1
			st = stateExecute

		case stateExecute:
			if err = os.WriteFile(scratch, []byte(code), 0o644); err != nil {
				return fail(res, code, err)
			}
			outcome, err = verify.Execute(ctx, g.exec, g.command(source, scratch, opts))
			removeScratch(scratch)
			if err != nil {
				if errors.Is(err, runner.ErrTimeout) {
					err = errors.New("test execution timed out")
				}
				return fail(res, code, err)
			}
			st = stateParse

		case stateParse:
			res.Report = outcome.Report
			switch {
			case outcome.Passed:
				st = stateVerified
			case res.Attempts >= g.maxRetry:
				st = stateUnverified
			default:
				feedback := verify.ErrorContext(outcome.Output, outcome.Report, res.Attempts, g.maxRetry)
				next, err := g.complete(ctx, ai.FixTestsPrompt(code, feedback))
				if err != nil {
					return fail(res, code, err)
				}
				code = next
				res.Attempts++
				st = stateExecute
			}

		case stateVerified, stateUnverified:
			res.Success = true
			res.Verified = st == stateVerified
			res.TestCode = code
			res.TestCount = CountTests(code)
			slog.Info("Test generation finished", "file", source, "verified", res.Verified, "attempts", res.Attempts)
			return res
		}
	}
}

func (g *Generator) command(source, scratch string, opts Options) runner.Command {
	args := []string{scratch, "-v", "--tb=short"}
	if opts.Coverage {
		args = append(args, "--cov="+filepath.Dir(source), "--cov-report=term-missing")
	}
	return runner.Command{Name: "pytest", Args: args, Timeout: g.timeout}
}

func fail(res *models.GenerationResult, code string, err error) *models.GenerationResult {
	res.Success = false
	res.Verified = false
	res.Error = err.Error()
	res.TestCode = code
	return res
}

func removeScratch(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove scratch test file", "path", path, "error", err)
	}
}
