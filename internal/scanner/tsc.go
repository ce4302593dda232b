package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// TSC runs the TypeScript compiler in --noEmit mode.
type TSC struct {
	Options
	Strict bool
}

func (t *TSC) Name() string { return "tsc" }

// file.ts(12,5): error TS2322: Type 'x' is not assignable...
var tscLine = regexp.MustCompile(`^(.+)\((\d+),\d+\):\s*(error|warning)\s+(TS\d+):\s*(.+)$`)

func (t *TSC) Scan(ctx context.Context, file string) []models.Issue {
	args := []string{"tsc", file, "--noEmit", "--pretty", "false"}
	if t.Strict {
		args = append(args, "--strict")
	}
	res, ok := t.run(ctx, "npx", args, filepath.Dir(file))
	if !ok {
		return nil
	}
	return parseTSC(res.Stdout, file)
}

func parseTSC(out, file string) []models.Issue {
	var issues []models.Issue
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		m := tscLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || !sameFile(m[1], file) {
			continue
		}
		row, _ := strconv.Atoi(m[2])
		level := models.LevelWarning
		if m[3] == "error" {
			level = models.LevelBug
		}
		issues = append(issues, models.Issue{
			Level:   level,
			Line:    row,
			Message: fmt.Sprintf("[%s] %s", m[4], m[5]),
		})
	}
	return issues
}
