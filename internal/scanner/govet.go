package scanner

import (
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// GoVet runs "go vet" on a single file. Diagnostics arrive on stderr.
type GoVet struct {
	Options
}

func (g *GoVet) Name() string { return "go vet" }

var vetLine = regexp.MustCompile(`^([^:]+):(\d+):(?:\d+:)?\s*(.+)$`)

func (g *GoVet) Scan(ctx context.Context, file string) []models.Issue {
	res, ok := g.run(ctx, "go", []string{"vet", file}, filepath.Dir(file))
	if !ok {
		return nil
	}
	return parseGoVet(res.Stderr, file)
}

func parseGoVet(out, file string) []models.Issue {
	var issues []models.Issue
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		m := vetLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || !sameFile(m[1], file) {
			continue
		}
		row, _ := strconv.Atoi(m[2])
		issues = append(issues, models.Issue{
			Level:   models.LevelWarning,
			Line:    row,
			Message: "[go vet] " + m[3],
		})
	}
	return issues
}
