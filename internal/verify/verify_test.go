package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/models"
)

func TestParseReportSummaryAndFailures(t *testing.T) {
	got := ParseReport("3 passed, 2 failed in 0.5s\nFAILED mod::test_a\nFAILED mod::test_b")
	want := &models.VerificationReport{
		Passed:        3,
		Failed:        2,
		FailedTests:   []string{"mod::test_a", "mod::test_b"},
		ErrorMessages: []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReportEmpty(t *testing.T) {
	for _, in := range []string{"", "no recognizable output\n"} {
		r := ParseReport(in)
		assert.Zero(t, r.Passed)
		assert.Zero(t, r.Failed)
		assert.Zero(t, r.Errors)
		assert.Zero(t, r.Skipped)
		assert.Nil(t, r.CoveragePercent)
		assert.Empty(t, r.FailedTests)
		assert.Empty(t, r.ErrorMessages)
	}
}

func TestParseReportFullPytestOutput(t *testing.T) {
	out := `============ test session starts ============
test_calc.py::test_add PASSED
test_calc.py::test_div FAILED
E       ZeroDivisionError: division by zero
E       assert 0 == 1

---------- coverage: platform linux ----------
Name      Stmts   Miss  Cover
TOTAL        40     10    75%

FAILED test_calc.py::test_div - ZeroDivisionError
ERROR test_calc.py::test_io - OSError
==== 5 passed, 1 failed, 1 error, 2 skipped in 0.53s ====
`
	r := ParseReport(out)
	assert.Equal(t, 5, r.Passed)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Errors)
	assert.Equal(t, 2, r.Skipped)
	require.NotNil(t, r.CoveragePercent)
	assert.InDelta(t, 75.0, *r.CoveragePercent, 0.001)
	assert.Equal(t, []string{"test_calc.py::test_div", "test_calc.py::test_io"}, r.FailedTests)
	assert.Equal(t, []string{
		"E       ZeroDivisionError: division by zero",
		"E       assert 0 == 1",
	}, r.ErrorMessages)
}

func TestParseReportTracebacksWin(t *testing.T) {
	out := "Traceback (most recent call last):\n  File \"a.py\", line 1\nValueError: x\n\nE   ignored\n" +
		"Traceback (most recent call last):\nKeyError: k\n"
	r := ParseReport(out)
	require.Len(t, r.ErrorMessages, 2)
	assert.Contains(t, r.ErrorMessages[0], "ValueError: x")
	assert.Contains(t, r.ErrorMessages[1], "KeyError: k")
}

func TestParseReportCapsFailedTests(t *testing.T) {
	var out string
	for i := 0; i < 15; i++ {
		out += "FAILED t.py::test_x\n"
	}
	assert.Len(t, ParseReport(out).FailedTests, 10)
}

func TestErrorContext(t *testing.T) {
	r := ParseReport("1 passed, 1 failed\nFAILED t.py::test_b\nE   assert False\n")
	ctx := ErrorContext("raw output", r, 2, 3)
	assert.Contains(t, ctx, "attempt 2/3")
	assert.Contains(t, ctx, "Failed: 1")
	assert.Contains(t, ctx, "  - t.py::test_b")
	assert.Contains(t, ctx, "assert False")
	assert.Contains(t, ctx, "raw output")
}

type scriptedExec struct {
	res *runner.Result
	err error
}

func (s scriptedExec) Run(context.Context, runner.Command) (*runner.Result, error) {
	return s.res, s.err
}

func TestExecute(t *testing.T) {
	out, err := Execute(context.Background(), scriptedExec{res: &runner.Result{Stdout: "2 passed in 0.1s"}}, runner.Command{Name: "pytest"})
	require.NoError(t, err)
	assert.True(t, out.Passed)
	assert.Equal(t, 2, out.Report.Passed)

	_, err = Execute(context.Background(), scriptedExec{err: runner.ErrTimeout}, runner.Command{Name: "pytest"})
	assert.True(t, errors.Is(err, runner.ErrTimeout))
}
