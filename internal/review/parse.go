package review

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// ParseAIResponse reads "[LEVEL] Line N: message" lines from a model
// review. An indented "Suggestion:" line attaches to the preceding issue.
// Malformed lines are skipped; unknown levels become info.
func ParseAIResponse(response string) []models.Issue {
	var issues []models.Issue
	for _, raw := range strings.Split(strings.TrimSpace(response), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Suggestion:"); ok {
			if n := len(issues); n > 0 && issues[n-1].Suggestion == "" {
				issues[n-1].Suggestion = strings.TrimSpace(rest)
			}
			continue
		}
		if is, ok := parseIssueLine(line); ok {
			issues = append(issues, is)
		}
	}
	return issues
}

func parseIssueLine(line string) (models.Issue, bool) {
	if !strings.HasPrefix(line, "[") {
		return models.Issue{}, false
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return models.Issue{}, false
	}
	level := models.ParseLevel(line[1:end])
	rest, ok := strings.CutPrefix(strings.TrimSpace(line[end+1:]), "Line ")
	if !ok {
		return models.Issue{}, false
	}
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return models.Issue{}, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest[:colon]))
	if err != nil {
		return models.Issue{}, false
	}
	return models.Issue{
		Level:   level,
		Line:    n,
		Message: strings.TrimSpace(rest[colon+1:]),
	}, true
}

// FilterBySeverity keeps issues at or above the threshold
// ("high", "medium" or "low"; unknown means medium).
func FilterBySeverity(issues []models.Issue, threshold string) []models.Issue {
	min := models.MinWeight(threshold)
	out := make([]models.Issue, 0, len(issues))
	for _, is := range issues {
		if is.Level.Weight() >= min {
			out = append(out, is)
		}
	}
	return out
}

// Summarize renders per-level counts, most severe first, e.g.
// "2 bugs, 1 warnings".
func Summarize(issues []models.Issue) string {
	counts := models.CountByLevel(issues)
	var parts []string
	for _, l := range models.Levels {
		if c := counts[l]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %ss", c, l))
		}
	}
	if len(parts) == 0 {
		return "No issues found"
	}
	return strings.Join(parts, ", ")
}
