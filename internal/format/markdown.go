package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/devbuddy-ai/devbuddy/models"
)

const mdTimeLayout = "2006-01-02 15:04:05"

// Markdown renders reports suitable for PR comments and CI summaries.
type Markdown struct {
	Now func() time.Time
}

var levelEmoji = map[models.Level]string{
	models.LevelBug:     "🔴",
	models.LevelWarning: "🟡",
	models.LevelStyle:   "🔵",
	models.LevelInfo:    "🟢",
}

func (m *Markdown) header(b *strings.Builder, title string) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	fmt.Fprintf(b, "# %s\n\n**Generated:** %s\n", title, now().Format(mdTimeLayout))
}

func footer(b *strings.Builder) {
	b.WriteString("---\n*Generated by DevBuddyAI*")
}

func (m *Markdown) Review(results []*models.ReviewResult) string {
	var b strings.Builder
	m.header(&b, "DevBuddyAI Code Review Report")
	fmt.Fprintf(&b, "**Files Reviewed:** %d\n\n", len(results))

	for _, r := range results {
		if !r.Success {
			fmt.Fprintf(&b, "## 📄 %s\n\n**Error:** %s\n\n", r.FilePath, r.Error)
			continue
		}
		if len(r.Issues) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## 📄 %s\n\n", r.FilePath)
		b.WriteString("| Level | Line | Message | Suggestion |\n")
		b.WriteString("|-------|------|---------|------------|\n")
		for _, is := range r.Issues {
			emoji, ok := levelEmoji[is.Level]
			if !ok {
				emoji = "⚪"
			}
			sugg := is.Suggestion
			if sugg == "" {
				sugg = "-"
			}
			fmt.Fprintf(&b, "| %s %s | %d | %s | %s |\n",
				emoji, strings.ToUpper(string(is.Level)), is.Line, cell(is.Message), cell(sugg))
		}
		b.WriteString("\n")
	}

	counts := totals(results)
	b.WriteString("## 📊 Summary\n\n")
	b.WriteString("| Category | Count |\n")
	b.WriteString("|----------|-------|\n")
	fmt.Fprintf(&b, "| 🔴 Bugs | %d |\n", counts[models.LevelBug])
	fmt.Fprintf(&b, "| 🟡 Warnings | %d |\n", counts[models.LevelWarning])
	fmt.Fprintf(&b, "| 🔵 Style | %d |\n", counts[models.LevelStyle])
	fmt.Fprintf(&b, "| 🟢 Info | %d |\n\n", counts[models.LevelInfo])
	footer(&b)
	return b.String()
}

func (m *Markdown) TestGen(r *models.GenerationResult) string {
	var b strings.Builder
	m.header(&b, "DevBuddyAI Test Generation Report")
	b.WriteString("\n")
	if r.Success {
		status := "⚠️ Not Verified"
		if r.Verified {
			status = "✅ Verified"
		}
		fmt.Fprintf(&b, "**Status:** %s\n**Test Count:** %d\n\n", status, r.TestCount)
		b.WriteString("## Generated Test Code\n\n```python\n")
		b.WriteString(r.TestCode)
		b.WriteString("\n```\n")
	} else {
		fmt.Fprintf(&b, "**Status:** ❌ Error\n**Error:** %s\n", r.Error)
	}
	b.WriteString("\n")
	footer(&b)
	return b.String()
}

func (m *Markdown) Fix(r *models.FixResult) string {
	var b strings.Builder
	m.header(&b, "DevBuddyAI Fix Suggestions Report")
	b.WriteString("\n")
	if len(r.Suggestions) == 0 {
		b.WriteString("No fixes suggested.\n\n")
		footer(&b)
		return b.String()
	}

	fmt.Fprintf(&b, "**Suggestions:** %d\n\n", len(r.Suggestions))
	for i, s := range r.Suggestions {
		fmt.Fprintf(&b, "## 🔧 Fix #%d\n\n", i+1)
		fmt.Fprintf(&b, "**Description:** %s\n", s.Description)
		fmt.Fprintf(&b, "**File:** `%s`\n", s.FilePath)
		fmt.Fprintf(&b, "**Line:** %d\n", s.Line)
		fmt.Fprintf(&b, "**Confidence:** %.0f%%\n\n", s.Confidence*100)
		b.WriteString("### Change\n\n```diff\n")
		fmt.Fprintf(&b, "- %s\n+ %s\n```\n\n", s.Original, s.Replacement)
	}
	footer(&b)
	return b.String()
}

// cell escapes pipes and newlines inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
