package repository

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/models"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePatch = `diff --git a/app.py b/app.py
index 83db48f..bf269f4 100644
--- a/app.py
+++ b/app.py
@@ -1,4 +1,5 @@
 import os
-x = 1
+x = 2
+y = 3
 
 def main():
diff --git a/old.py b/old.py
deleted file mode 100644
index 83db48f..0000000
--- a/old.py
+++ /dev/null
@@ -1,1 +0,0 @@
-gone = True
diff --git a/new.go b/new.go
new file mode 100644
index 0000000..bf269f4
--- /dev/null
+++ b/new.go
@@ -0,0 +1,2 @@
+package main
+func main() {}
`

func TestChangedLines(t *testing.T) {
	got, err := ChangedLines(samplePatch)
	require.NoError(t, err)

	want := map[string]map[int]bool{
		"app.py": {2: true, 3: true},
		"new.go": {1: true, 2: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChangedLines mismatch (-want +got):\n%s", diff)
	}
}

func TestChangedLinesEmpty(t *testing.T) {
	got, err := ChangedLines("  \n")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParsePRRef(t *testing.T) {
	tests := []struct {
		in      string
		want    PRRef
		wantErr bool
	}{
		{in: "acme/api#42", want: PRRef{Owner: "acme", Repo: "api", Number: 42}},
		{in: "https://github.com/acme/api/pull/7", want: PRRef{Owner: "acme", Repo: "api", Number: 7}},
		{in: "https://github.com/acme/api/pull/7/", want: PRRef{Owner: "acme", Repo: "api", Number: 7}},
		{in: "acme/api", wantErr: true},
		{in: "acme#3", wantErr: true},
		{in: "acme/api#zero", wantErr: true},
		{in: "acme/api#0", wantErr: true},
		{in: "https://github.com/acme/api/issues/7", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePRRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "acme/api#42", PRRef{Owner: "acme", Repo: "api", Number: 42}.String())
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("import os\nx = 1\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("app.py")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestWorktreeClean(t *testing.T) {
	dir := initRepo(t)
	w, err := OpenWorktree(dir)
	require.NoError(t, err)

	files, err := w.ChangedFiles()
	require.NoError(t, err)
	assert.Empty(t, files)

	patch, err := w.Patch()
	require.NoError(t, err)
	assert.Empty(t, patch)
}

func TestWorktreePatch(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("import os\nx = 2\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "util.py"), []byte("a = 1\nb = 2\n"), 0o644))

	w, err := OpenWorktree(filepath.Join(dir, "pkg"))
	require.NoError(t, err)
	assert.Equal(t, dir, w.Root())

	files, err := w.ChangedFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py", "pkg/util.py"}, files)

	patch, err := w.Patch()
	require.NoError(t, err)
	assert.Contains(t, patch, "--- a/app.py")
	assert.Contains(t, patch, "+x = 2")
	assert.Contains(t, patch, "-x = 1")
	assert.Contains(t, patch, "+++ b/pkg/util.py")

	changed, err := ChangedLines(patch)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{2: true}, changed["app.py"])
	assert.Equal(t, map[int]bool{1: true, 2: true}, changed["pkg/util.py"])
}

func TestOpenWorktreeNotARepo(t *testing.T) {
	_, err := OpenWorktree(t.TempDir())
	assert.Error(t, err)
}

func TestNewGitHubRequiresToken(t *testing.T) {
	_, err := NewGitHub(config.GitHubConfig{})
	assert.Error(t, err)
}

func TestGitHubPublishReview(t *testing.T) {
	var posted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/acme/api/pulls/3":
			assert.Contains(t, r.Header.Get("Accept"), "diff")
			_, _ = io.WriteString(w, samplePatch)
		case r.Method == http.MethodPost && r.URL.Path == "/repos/acme/api/pulls/3/reviews":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			_, _ = io.WriteString(w, `{"id": 1, "html_url": "https://github.com/acme/api/pull/3#pullrequestreview-1"}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	gh, err := NewGitHub(config.GitHubConfig{Token: "t0ken"})
	require.NoError(t, err)
	require.NoError(t, gh.setBaseURL(srv.URL))

	results := []*models.ReviewResult{
		{
			FilePath: "app.py",
			Success:  true,
			Summary:  "1 bugs, 1 warnings",
			Issues: []models.Issue{
				{Level: models.LevelBug, Line: 2, Message: "bad value", Suggestion: "use 3"},
				{Level: models.LevelWarning, Line: 5, Message: "untouched line"},
			},
		},
		{FilePath: "diff", Success: false, Error: "model unavailable"},
	}

	url, err := gh.PublishReview(t.Context(), PRRef{Owner: "acme", Repo: "api", Number: 3}, results)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/api/pull/3#pullrequestreview-1", url)

	require.NotNil(t, posted)
	assert.Equal(t, "COMMENT", posted["event"])
	assert.Contains(t, posted["body"], "2 issue(s) found, 1 posted inline.")
	assert.Contains(t, posted["body"], "review failed: model unavailable")

	comments, ok := posted["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 1)
	c := comments[0].(map[string]any)
	assert.Equal(t, "app.py", c["path"])
	assert.EqualValues(t, 2, c["line"])
	assert.Equal(t, "RIGHT", c["side"])
	assert.Contains(t, c["body"], "**[BUG]** bad value")
	assert.Contains(t, c["body"], "Suggestion: use 3")
}
