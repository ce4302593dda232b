package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
	"github.com/devbuddy-ai/devbuddy/models"
)

const risky = `import os

def run(cmd):
    try:
        return eval(cmd)
    except:
        return None
`

// fakeClient answers every prompt with the same response. Safe for the
// concurrent directory walk.
type fakeClient struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, _, prompt string) (string, error) {
	return f.Complete(ctx, prompt)
}

type fakeLedger struct {
	mu       sync.Mutex
	limitErr error
	linesErr error
	recorded int
}

func (f *fakeLedger) CheckLimit(context.Context, licensing.Kind) error { return f.limitErr }

func (f *fakeLedger) CheckFileLines(context.Context, int) error { return f.linesErr }

func (f *fakeLedger) RecordUsage(context.Context, licensing.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded++
	return nil
}

// quotaLedger reads then increments under separate locks, like the
// sqlite-backed manager.
type quotaLedger struct {
	mu    sync.Mutex
	used  int
	limit int
}

func (q *quotaLedger) CheckLimit(_ context.Context, kind licensing.Kind) error {
	q.mu.Lock()
	used := q.used
	q.mu.Unlock()
	if used >= q.limit {
		return &licensing.LimitError{Kind: kind, Used: used, Limit: q.limit}
	}
	return nil
}

func (q *quotaLedger) RecordUsage(context.Context, licensing.Kind) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used++
	return nil
}

type slowClient struct{ fakeClient }

func (s *slowClient) Complete(ctx context.Context, prompt string) (string, error) {
	time.Sleep(20 * time.Millisecond)
	return s.fakeClient.Complete(ctx, prompt)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseAIResponse(t *testing.T) {
	resp := `Here is my review:
[BUG] Line 3: Division by zero possible
  Suggestion: Check the divisor first
[warning] Line 10: Unused variable 'x'
[NOTE] Line 12: Something odd
[STYLE] Line abc: not a number
[INFO] no line marker
Suggestion: orphan after malformed lines stays on the previous issue
`
	got := ParseAIResponse(resp)
	want := []models.Issue{
		{Level: models.LevelBug, Line: 3, Message: "Division by zero possible", Suggestion: "Check the divisor first"},
		{Level: models.LevelWarning, Line: 10, Message: "Unused variable 'x'"},
		{Level: models.LevelInfo, Line: 12, Message: "Something odd", Suggestion: "orphan after malformed lines stays on the previous issue"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseAIResponse mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, ParseAIResponse(""))
	assert.Empty(t, ParseAIResponse("No issues found."))
}

func TestFilterBySeverity(t *testing.T) {
	issues := []models.Issue{
		{Level: models.LevelBug, Line: 1},
		{Level: models.LevelWarning, Line: 2},
		{Level: models.LevelStyle, Line: 3},
		{Level: models.LevelInfo, Line: 4},
	}
	tests := []struct {
		threshold string
		want      int
	}{
		{"high", 1},
		{"medium", 3},
		{"low", 4},
		{"bogus", 3},
	}
	for _, tt := range tests {
		t.Run(tt.threshold, func(t *testing.T) {
			assert.Len(t, FilterBySeverity(issues, tt.threshold), tt.want)
		})
	}
	assert.NotNil(t, FilterBySeverity(nil, "low"))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "No issues found", Summarize(nil))
	assert.Equal(t, "2 bugs, 1 warnings", Summarize([]models.Issue{
		{Level: models.LevelWarning},
		{Level: models.LevelBug},
		{Level: models.LevelBug},
	}))
	assert.Equal(t, "1 styles, 1 infos", Summarize([]models.Issue{
		{Level: models.LevelInfo},
		{Level: models.LevelStyle},
	}))
}

func TestIgnored(t *testing.T) {
	patterns := []string{"node_modules/", "*.min.js", "vendor", "build/*.py"}
	tests := []struct {
		rel  string
		want bool
	}{
		{"node_modules", true},
		{"web/node_modules/lib/a.js", true},
		{"static/app.min.js", true},
		{"vendor/x/y.go", true},
		{"build/gen.py", true},
		{"src/app.py", false},
		{"src/vendored.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, Ignored(tt.rel, patterns))
		})
	}
}

func TestReviewFileMergesStaticAndAI(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.py", risky)
	client := &fakeClient{response: "[WARNING] Line 3: Function lacks docstring\n[INFO] Line 1: os unused"}
	ledger := &fakeLedger{}

	r := New(client, ledger, config.ReviewConfig{}, nil, nil)
	res := r.ReviewFile(t.Context(), path)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, path, res.FilePath)
	var msgs []string
	for _, is := range res.Issues {
		msgs = append(msgs, is.Message)
	}
	assert.ElementsMatch(t, []string{
		"Potentially dangerous eval() usage",
		"Bare except clause detected",
		"Function lacks docstring",
	}, msgs)
	assert.Equal(t, "1 bugs, 2 warnings", res.Summary)
	assert.Equal(t, 1, ledger.recorded)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "eval(cmd)")
}

func TestReviewFileIgnoresModelError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.py", risky)
	r := New(&fakeClient{err: errors.New("boom")}, nil, config.ReviewConfig{}, nil, nil)

	res := r.ReviewFile(t.Context(), path)
	require.True(t, res.Success)
	assert.Len(t, res.Issues, 2)
}

func TestReviewFileSeverityOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.py", risky)
	r := New(nil, nil, config.ReviewConfig{Severity: "low"}, nil, nil).WithSeverity("high")

	res := r.ReviewFile(t.Context(), path)
	require.True(t, res.Success)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.LevelBug, res.Issues[0].Level)
}

func TestReviewFileFailures(t *testing.T) {
	dir := t.TempDir()
	py := writeFile(t, dir, "app.py", risky)
	txt := writeFile(t, dir, "notes.txt", "hello")

	t.Run("missing", func(t *testing.T) {
		res := New(nil, nil, config.ReviewConfig{}, nil, nil).ReviewFile(t.Context(), filepath.Join(dir, "nope.py"))
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "failed to read file")
		assert.NotNil(t, res.Issues)
	})

	t.Run("unsupported", func(t *testing.T) {
		res := New(nil, nil, config.ReviewConfig{}, nil, nil).ReviewFile(t.Context(), txt)
		assert.False(t, res.Success)
		assert.Equal(t, "unsupported file type: .txt", res.Error)
	})

	t.Run("too large", func(t *testing.T) {
		res := New(nil, nil, config.ReviewConfig{MaxFileLines: 3}, nil, nil).ReviewFile(t.Context(), py)
		assert.False(t, res.Success)
		assert.Equal(t, "File too large: 7 lines (max: 3)", res.Error)
	})

	t.Run("usage limit", func(t *testing.T) {
		ledger := &fakeLedger{limitErr: &licensing.LimitError{Kind: licensing.KindReview, Used: 50, Limit: 50}}
		client := &fakeClient{}
		res := New(client, ledger, config.ReviewConfig{}, nil, nil).ReviewFile(t.Context(), py)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "Monthly review limit reached: 50/50")
		assert.Empty(t, client.prompts)
		assert.Zero(t, ledger.recorded)
	})

	t.Run("plan file size", func(t *testing.T) {
		ledger := &fakeLedger{linesErr: errors.New("File too large: 7 lines (max: 5)")}
		res := New(nil, ledger, config.ReviewConfig{}, nil, nil).ReviewFile(t.Context(), py)
		assert.False(t, res.Success)
		assert.Equal(t, "File too large: 7 lines (max: 5)", res.Error)
	})
}

func TestReviewPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.py", risky)
	writeFile(t, dir, "a.py", "x = 1\n")
	writeFile(t, dir, "web/app.js", "let x = 1;\n")
	writeFile(t, dir, "node_modules/dep/index.js", "eval('x')\n")
	writeFile(t, dir, "README.md", "# hi\n")
	writeFile(t, dir, "lib/main.go", "package main\n")

	r := New(nil, nil, config.ReviewConfig{Languages: []string{"Python", "javascript"}, Workers: 2},
		[]string{"node_modules"}, nil)

	results, err := r.ReviewPath(t.Context(), dir)
	require.NoError(t, err)

	var got []string
	for _, res := range results {
		rel, _ := filepath.Rel(dir, res.FilePath)
		got = append(got, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a.py", "b.py", "web/app.js"}, got)
	assert.Len(t, results[1].Issues, 2)

	single, err := r.ReviewPath(t.Context(), filepath.Join(dir, "a.py"))
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.True(t, single[0].Success)

	_, err = r.ReviewPath(t.Context(), filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestReviewPathRespectsQuota(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		writeFile(t, dir, name+".py", "x = 1\n")
	}
	ledger := &quotaLedger{used: 49, limit: 50}
	client := &slowClient{fakeClient: fakeClient{response: "[]"}}

	results, err := New(client, ledger, config.ReviewConfig{Workers: 4}, nil, nil).ReviewPath(t.Context(), dir)
	require.NoError(t, err)
	require.Len(t, results, 8)

	var ok, limited int
	for _, res := range results {
		if res.Success {
			ok++
		} else if strings.Contains(res.Error, "limit") {
			limited++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, limited)
	assert.Equal(t, 50, ledger.used)
}

const riskyPatch = `diff --git a/app.py b/app.py
index 1111111..2222222 100644
--- a/app.py
+++ b/app.py
@@ -3,4 +3,5 @@ def run(cmd):
 def run(cmd):
     try:
-        return int(cmd)
+        return eval(cmd)
     except:
+        return None
diff --git a/notes.txt b/notes.txt
index 1111111..2222222 100644
--- a/notes.txt
+++ b/notes.txt
@@ -1,1 +1,1 @@
-a
+b
`

func TestReviewDiff(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", risky)
	client := &fakeClient{response: "[BUG] Line 5: eval on user input"}
	ledger := &fakeLedger{}

	results, err := New(client, ledger, config.ReviewConfig{}, nil, nil).ReviewDiff(t.Context(), root, riskyPatch)
	require.NoError(t, err)
	require.Len(t, results, 2)

	static := results[0]
	assert.Equal(t, "app.py", static.FilePath)
	require.True(t, static.Success, static.Error)
	// The bare except on line 6 is unchanged context and is not reported.
	require.Len(t, static.Issues, 1)
	assert.Equal(t, "Potentially dangerous eval() usage", static.Issues[0].Message)

	diffRes := results[1]
	assert.Equal(t, DiffPath, diffRes.FilePath)
	require.True(t, diffRes.Success)
	assert.Equal(t, "1 bugs", diffRes.Summary)
	assert.Equal(t, 1, ledger.recorded)
	require.Len(t, client.prompts, 1)
	assert.True(t, strings.Contains(client.prompts[0], "+        return eval(cmd)"))
}

func TestReviewDiffModelFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	results, err := New(client, nil, config.ReviewConfig{}, nil, nil).ReviewDiff(t.Context(), "", riskyPatch)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "rate limited")
}

func TestReviewDiffEmpty(t *testing.T) {
	results, err := New(&fakeClient{}, nil, config.ReviewConfig{}, nil, nil).ReviewDiff(t.Context(), t.TempDir(), "\n")
	require.NoError(t, err)
	assert.Empty(t, results)
}
