package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/devbuddy-ai/devbuddy/models"
)

// GolangciLint runs golangci-lint with JSON output.
type GolangciLint struct {
	Options
}

func (g *GolangciLint) Name() string { return "golangci-lint" }

// golangciOutput mirrors the golangci-lint JSON report.
type golangciOutput struct {
	Issues []struct {
		FromLinter string `json:"FromLinter"`
		Text       string `json:"Text"`
		Severity   string `json:"Severity"`
		Pos        struct {
			Filename string `json:"Filename"`
			Line     int    `json:"Line"`
			Column   int    `json:"Column"`
		} `json:"Pos"`
	} `json:"Issues"`
}

func (g *GolangciLint) Scan(ctx context.Context, file string) []models.Issue {
	res, ok := g.run(ctx, "golangci-lint", []string{"run", "--out-format=json", file}, filepath.Dir(file))
	if !ok {
		return nil
	}
	return parseGolangci([]byte(res.Stdout), file)
}

func parseGolangci(data []byte, file string) []models.Issue {
	var output golangciOutput
	if err := json.Unmarshal(data, &output); err != nil {
		slog.Debug("Failed to parse golangci-lint output", "error", err)
		return nil
	}
	var issues []models.Issue
	for _, is := range output.Issues {
		if !sameFile(is.Pos.Filename, file) {
			continue
		}
		row := is.Pos.Line
		if row <= 0 {
			row = 1
		}
		level := models.LevelWarning
		if is.Severity == "error" {
			level = models.LevelBug
		}
		msg := is.Text
		if is.FromLinter != "" {
			msg = fmt.Sprintf("[%s] %s", is.FromLinter, is.Text)
		}
		issues = append(issues, models.Issue{Level: level, Line: row, Message: msg})
	}
	return issues
}
