package scanner

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// Mypy runs the mypy type checker.
type Mypy struct {
	Options
}

func (m *Mypy) Name() string { return "mypy" }

func (m *Mypy) Scan(ctx context.Context, file string) []models.Issue {
	res, ok := m.run(ctx, "mypy", []string{
		file,
		"--no-error-summary",
		"--show-column-numbers",
	}, filepath.Dir(file))
	if !ok {
		return nil
	}
	return parseMypy(res.Stdout, file)
}

// parseMypy reads "file.py:line:col: error: message" lines.
func parseMypy(out, file string) []models.Issue {
	var issues []models.Issue
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.Contains(line, "error:") {
			continue
		}
		parts := strings.SplitN(line, ":", 5)
		if len(parts) < 5 || !sameFile(parts[0], file) {
			continue
		}
		row, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		issues = append(issues, models.Issue{
			Level:   models.LevelWarning,
			Line:    row,
			Message: "[mypy] " + strings.TrimSpace(parts[4]),
		})
	}
	return issues
}
