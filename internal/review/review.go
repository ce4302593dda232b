// Package review combines the static analyzers with a model review of
// each file and filters the merged issues by severity.
package review

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/devbuddy-ai/devbuddy/internal/ai"
	"github.com/devbuddy-ai/devbuddy/internal/analyzer"
	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
	"github.com/devbuddy-ai/devbuddy/internal/repository"
	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/models"
)

const defaultWorkers = 4

// fileLimiter is implemented by ledgers that also cap file size.
type fileLimiter interface {
	CheckFileLines(ctx context.Context, lines int) error
}

// Reviewer reviews files, directories and diffs.
type Reviewer struct {
	client    ai.Client
	ledger    licensing.Ledger
	analyzers *analyzer.Set
	severity  string
	maxLines  int
	workers   int
	languages map[analyzer.Language]bool
	ignore    []string

	// meter serializes the quota check with the usage record so
	// concurrent workers cannot all pass the same last slot.
	meter sync.Mutex
}

// New returns a Reviewer. client and ledger may be nil: without a client
// only static analysis runs, without a ledger nothing is metered.
func New(client ai.Client, ledger licensing.Ledger, cfg config.ReviewConfig, ignore []string, exec runner.Executor) *Reviewer {
	r := &Reviewer{
		client:    client,
		ledger:    ledger,
		analyzers: analyzer.NewSet(cfg.Analyzers, exec),
		severity:  cfg.Severity,
		maxLines:  cfg.MaxFileLines,
		workers:   cfg.Workers,
		ignore:    ignore,
	}
	if r.severity == "" {
		r.severity = "medium"
	}
	if r.workers < 1 {
		r.workers = defaultWorkers
	}
	if len(cfg.Languages) > 0 {
		r.languages = make(map[analyzer.Language]bool, len(cfg.Languages))
		for _, l := range cfg.Languages {
			r.languages[analyzer.Language(strings.ToLower(l))] = true
		}
	}
	return r
}

// WithSeverity overrides the configured threshold.
func (r *Reviewer) WithSeverity(severity string) *Reviewer {
	if severity != "" {
		r.severity = severity
	}
	return r
}

// Supports reports whether path has a reviewable extension for an
// enabled language.
func (r *Reviewer) Supports(path string) bool {
	lang, ok := analyzer.DetectLanguage(path)
	if !ok {
		return false
	}
	return r.languages == nil || r.languages[lang]
}

// ReviewFile reviews one file. Model errors are ignored and the static
// findings returned alone.
func (r *Reviewer) ReviewFile(ctx context.Context, path string) *models.ReviewResult {
	res := &models.ReviewResult{FilePath: path, Issues: []models.Issue{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return failed(res, fmt.Errorf("failed to read file: %w", err))
	}
	a, ok := r.analyzers.ForPath(path)
	if !ok {
		return failed(res, fmt.Errorf("unsupported file type: %s", filepath.Ext(path)))
	}
	code := string(data)
	if err := r.reserve(ctx, countLines(code)); err != nil {
		return failed(res, err)
	}

	issues := a.Analyze(ctx, code, path)
	issues = append(issues, r.aiIssues(ctx, code, string(a.Language()))...)

	res.Issues = FilterBySeverity(issues, r.severity)
	res.Summary = Summarize(res.Issues)
	res.Success = true
	slog.Debug("Reviewed file", "file", path, "issues", len(res.Issues))
	return res
}

func (r *Reviewer) aiIssues(ctx context.Context, code, language string) []models.Issue {
	if r.client == nil {
		return nil
	}
	resp, err := r.client.Complete(ctx, ai.ReviewPrompt(code, language, r.severity))
	if err != nil {
		slog.Debug("AI review failed, using static analysis only", "error", err)
		return nil
	}
	return ParseAIResponse(resp)
}

// DiffPath is the result path used for the model review of a whole diff.
const DiffPath = "diff"

// ReviewDiff reviews a unified diff. When root is set, changed files found
// under it get static analysis limited to the added lines, reported by
// their path relative to root. With a client configured the whole diff
// also gets one model review, reported under DiffPath; its failure fails
// that result only.
func (r *Reviewer) ReviewDiff(ctx context.Context, root, patch string) ([]*models.ReviewResult, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, nil
	}
	changed, err := repository.ChangedLines(patch)
	if err != nil {
		return nil, err
	}

	var results []*models.ReviewResult
	if root != "" {
		paths := make([]string, 0, len(changed))
		for p := range changed {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, rel := range paths {
			if Ignored(rel, r.ignore) || !r.Supports(rel) {
				continue
			}
			results = append(results, r.reviewChanged(ctx, root, rel, changed[rel]))
		}
	}
	if r.client != nil {
		results = append(results, r.reviewPatch(ctx, patch))
	}
	slog.Info("Diff review complete", "files", len(changed), "results", len(results))
	return results, nil
}

func (r *Reviewer) reviewChanged(ctx context.Context, root, rel string, lines map[int]bool) *models.ReviewResult {
	res := &models.ReviewResult{FilePath: rel, Issues: []models.Issue{}}
	path := filepath.Join(root, filepath.FromSlash(rel))
	data, err := os.ReadFile(path)
	if err != nil {
		return failed(res, fmt.Errorf("failed to read file: %w", err))
	}
	a, ok := r.analyzers.ForPath(path)
	if !ok {
		return failed(res, fmt.Errorf("unsupported file type: %s", filepath.Ext(path)))
	}

	var issues []models.Issue
	for _, is := range a.Analyze(ctx, string(data), path) {
		if lines[is.Line] {
			issues = append(issues, is)
		}
	}
	res.Issues = FilterBySeverity(issues, r.severity)
	res.Summary = Summarize(res.Issues)
	res.Success = true
	return res
}

func (r *Reviewer) reviewPatch(ctx context.Context, patch string) *models.ReviewResult {
	res := &models.ReviewResult{FilePath: DiffPath, Issues: []models.Issue{}}
	if r.ledger != nil {
		if err := r.ledger.CheckLimit(ctx, licensing.KindReview); err != nil {
			return failed(res, err)
		}
	}
	resp, err := r.client.Complete(ctx, ai.DiffReviewPrompt(patch))
	if err != nil {
		return failed(res, fmt.Errorf("AI diff review failed: %w", err))
	}
	r.recordUsage(ctx)

	res.Issues = FilterBySeverity(ParseAIResponse(resp), r.severity)
	res.Summary = Summarize(res.Issues)
	res.Success = true
	return res
}

// ReviewPath reviews a file, or every supported file under a directory
// with bounded concurrency. Results follow walk order.
func (r *Reviewer) ReviewPath(ctx context.Context, path string) ([]*models.ReviewResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		return []*models.ReviewResult{r.ReviewFile(ctx, path)}, nil
	}

	files, err := r.collect(path)
	if err != nil {
		return nil, err
	}
	results := make([]*models.ReviewResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, f := range files {
		g.Go(func() error {
			results[i] = r.ReviewFile(gctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slog.Info("Review complete", "path", path, "files", len(files))
	return results, nil
}

// collect walks root and returns reviewable files not matched by an
// ignore pattern.
func (r *Reviewer) collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		if rel != "." && Ignored(rel, r.ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && r.Supports(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// Ignored reports whether rel (slash or OS separated) matches any
// pattern, either as a whole path or in any single path element.
func Ignored(rel string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	elems := strings.Split(rel, "/")
	for _, p := range patterns {
		p = strings.TrimSuffix(filepath.ToSlash(p), "/")
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		for _, e := range elems {
			if ok, _ := filepath.Match(p, e); ok {
				return true
			}
		}
	}
	return false
}

func (r *Reviewer) checkLimits(ctx context.Context, lines int) error {
	if r.maxLines > 0 && lines > r.maxLines {
		return fmt.Errorf("File too large: %d lines (max: %d)", lines, r.maxLines)
	}
	if r.ledger == nil {
		return nil
	}
	if err := r.ledger.CheckLimit(ctx, licensing.KindReview); err != nil {
		return err
	}
	if fl, ok := r.ledger.(fileLimiter); ok {
		return fl.CheckFileLines(ctx, lines)
	}
	return nil
}

// reserve checks the limits and, when they pass, records the review
// before any work is done.
func (r *Reviewer) reserve(ctx context.Context, lines int) error {
	r.meter.Lock()
	defer r.meter.Unlock()
	if err := r.checkLimits(ctx, lines); err != nil {
		return err
	}
	r.recordUsage(ctx)
	return nil
}

func (r *Reviewer) recordUsage(ctx context.Context) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.RecordUsage(ctx, licensing.KindReview); err != nil {
		slog.Warn("Failed to record review usage", "error", err)
	}
}

func countLines(code string) int {
	if code == "" {
		return 0
	}
	n := strings.Count(code, "\n")
	if !strings.HasSuffix(code, "\n") {
		n++
	}
	return n
}

func failed(res *models.ReviewResult, err error) *models.ReviewResult {
	res.Success = false
	res.Error = err.Error()
	return res
}
