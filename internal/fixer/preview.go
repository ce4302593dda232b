package fixer

import (
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/devbuddy-ai/devbuddy/models"
)

// PreviewLine is one line of a fix preview.
type PreviewLine struct {
	Op   diffmatchpatch.Operation
	Text string
}

// Preview computes the line diff ApplyFix would produce without writing
// anything. Unchanged lines are omitted.
func Preview(s models.FixSuggestion) ([]PreviewLine, error) {
	data, err := os.ReadFile(s.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.FilePath, err)
	}
	before := string(data)
	if s.Original == "" || !strings.Contains(before, s.Original) {
		return nil, fmt.Errorf("original text not found in %s", s.FilePath)
	}
	after := strings.Replace(before, s.Original, s.Replacement, 1)
	return lineDiff(before, after), nil
}

func lineDiff(before, after string) []PreviewLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []PreviewLine
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			out = append(out, PreviewLine{Op: d.Type, Text: strings.TrimSuffix(l, "\n")})
		}
	}
	return out
}

// FormatPreview renders lines with -/+ markers.
func FormatPreview(lines []PreviewLine) string {
	var b strings.Builder
	for _, l := range lines {
		marker := "+"
		if l.Op == diffmatchpatch.DiffDelete {
			marker = "-"
		}
		b.WriteString(marker + " " + l.Text + "\n")
	}
	return b.String()
}
