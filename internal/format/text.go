package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/devbuddy-ai/devbuddy/models"
)

// Text is the default human-readable formatter.
type Text struct {
	Color bool
}

func (t *Text) paint(s lipgloss.Style, text string) string {
	if !t.Color {
		return text
	}
	return s.Render(text)
}

func (t *Text) Review(results []*models.ReviewResult) string {
	var b strings.Builder
	rule := strings.Repeat("=", 50)
	b.WriteString(rule + "\n")
	b.WriteString(t.paint(headerStyle, "DevBuddyAI Code Review Results") + "\n")
	b.WriteString(rule + "\n")

	for _, r := range results {
		if !r.Success {
			fmt.Fprintf(&b, "\n%s\n  %s\n", t.paint(pathStyle, r.FilePath), t.paint(bugStyle, "Error: "+r.Error))
			continue
		}
		if len(r.Issues) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", t.paint(pathStyle, r.FilePath))
		for _, is := range r.Issues {
			tag := t.paint(LevelStyle(is.Level), "["+strings.ToUpper(string(is.Level))+"]")
			fmt.Fprintf(&b, "  %s Line %d: %s\n", tag, is.Line, is.Message)
			if is.Suggestion != "" {
				fmt.Fprintf(&b, "    %s\n", t.paint(mutedStyle, "Suggestion: "+is.Suggestion))
			}
		}
	}

	counts := totals(results)
	b.WriteString("\n" + strings.Repeat("-", 50) + "\n")
	fmt.Fprintf(&b, "Summary: %d bugs, %d warnings, %d style issues",
		counts[models.LevelBug], counts[models.LevelWarning], counts[models.LevelStyle])
	return b.String()
}

func (t *Text) TestGen(r *models.GenerationResult) string {
	if !r.Success {
		return t.paint(bugStyle, "Error: "+r.Error)
	}
	var b strings.Builder
	b.WriteString(t.paint(headerStyle, "Generated Tests:") + "\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	b.WriteString(r.TestCode + "\n\n")
	fmt.Fprintf(&b, "Test count: %d\n", r.TestCount)
	if r.Verified {
		b.WriteString(t.paint(addedStyle, "Status: Verified (all tests passed)"))
	} else {
		b.WriteString(t.paint(warningStyle, "Status: Not verified"))
	}
	if r.Attempts > 1 {
		fmt.Fprintf(&b, "\nAttempts: %d", r.Attempts)
	}
	return b.String()
}

func (t *Text) Fix(r *models.FixResult) string {
	if len(r.Suggestions) == 0 {
		if r.Error != "" {
			return t.paint(bugStyle, "Error: "+r.Error)
		}
		return "No fixes suggested"
	}
	var b strings.Builder
	b.WriteString(t.paint(headerStyle, "Suggested Fixes:"))
	for i, s := range r.Suggestions {
		fmt.Fprintf(&b, "\n\n%d. %s\n", i+1, s.Description)
		fmt.Fprintf(&b, "   File: %s:%d\n", s.FilePath, s.Line)
		b.WriteString("   Change:\n")
		fmt.Fprintf(&b, "   %s\n", t.paint(removedStyle, "- "+s.Original))
		fmt.Fprintf(&b, "   %s", t.paint(addedStyle, "+ "+s.Replacement))
	}
	if r.Report != nil && len(r.Report.AppliedFixes) > 0 {
		status := "Not verified"
		if r.Verified {
			status = "Verified (all tests passed)"
		}
		fmt.Fprintf(&b, "\n\nApplied %d fix(es). Status: %s", len(r.Report.AppliedFixes), status)
	}
	return b.String()
}

// Diff colours a -/+ line preview.
func (t *Text) Diff(preview string) string {
	if !t.Color {
		return preview
	}
	var b strings.Builder
	for _, l := range strings.SplitAfter(preview, "\n") {
		switch {
		case strings.HasPrefix(l, "-"):
			b.WriteString(removedStyle.Render(strings.TrimSuffix(l, "\n")) + "\n")
		case strings.HasPrefix(l, "+"):
			b.WriteString(addedStyle.Render(strings.TrimSuffix(l, "\n")) + "\n")
		default:
			b.WriteString(l)
		}
	}
	return b.String()
}
