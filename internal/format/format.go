// Package format renders review, test generation and fix results as
// plain or coloured text, JSON, or Markdown.
package format

import (
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/devbuddy-ai/devbuddy/models"
)

// ToolName identifies the producer in machine-readable output.
const ToolName = "DevBuddyAI"

// Formatter renders the three result shapes.
type Formatter interface {
	Review(results []*models.ReviewResult) string
	TestGen(r *models.GenerationResult) string
	Fix(r *models.FixResult) string
}

// Names lists the accepted format names.
var Names = []string{"text", "json", "markdown", "md"}

// Get returns the formatter for name. Unknown names fall back to text.
func Get(name string, color bool) Formatter {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return &JSON{Now: time.Now}
	case "markdown", "md":
		return &Markdown{Now: time.Now}
	default:
		return &Text{Color: color}
	}
}

// ColorEnabled resolves the output.color setting ("always", "never" or
// "auto") for f. Auto colours only terminals and honours NO_COLOR.
func ColorEnabled(mode string, f *os.File) bool {
	switch strings.ToLower(mode) {
	case "always", "true", "yes":
		return true
	case "never", "false", "no":
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// totals counts issues per level across results.
func totals(results []*models.ReviewResult) map[models.Level]int {
	counts := make(map[models.Level]int, len(models.Levels))
	for _, r := range results {
		for l, n := range models.CountByLevel(r.Issues) {
			counts[l] += n
		}
	}
	return counts
}
