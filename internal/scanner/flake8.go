package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// Flake8 runs flake8 with a colon-separated row:col:code:text format.
type Flake8 struct {
	Options
	MaxLineLength int
	IgnoreCodes   []string
}

func (f *Flake8) Name() string { return "flake8" }

func (f *Flake8) Scan(ctx context.Context, file string) []models.Issue {
	maxLen := f.MaxLineLength
	if maxLen <= 0 {
		maxLen = 120
	}
	res, ok := f.run(ctx, "flake8", []string{
		file,
		fmt.Sprintf("--max-line-length=%d", maxLen),
		"--format=%(row)d:%(col)d:%(code)s:%(text)s",
	}, filepath.Dir(file))
	if !ok {
		return nil
	}
	return parseFlake8(res.Stdout, f.IgnoreCodes)
}

func parseFlake8(out string, ignore []string) []models.Issue {
	var issues []models.Issue
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.SplitN(line, ":", 4)
		if len(parts) < 4 {
			continue
		}
		row, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		code := parts[2]
		if slices.Contains(ignore, code) {
			continue
		}
		issues = append(issues, models.Issue{
			Level:   flake8Level(code),
			Line:    row,
			Message: fmt.Sprintf("[%s] %s", code, parts[3]),
		})
	}
	return issues
}

// flake8Level maps a flake8 code family onto a Level: E9xx and pyflakes
// F codes are real bugs, other E codes are style, W warnings, the rest info.
func flake8Level(code string) models.Level {
	switch {
	case strings.HasPrefix(code, "E9"), strings.HasPrefix(code, "F"):
		return models.LevelBug
	case strings.HasPrefix(code, "E"):
		return models.LevelStyle
	case strings.HasPrefix(code, "W"):
		return models.LevelWarning
	default:
		return models.LevelInfo
	}
}
