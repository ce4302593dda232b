package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/devbuddy-ai/devbuddy/models"
)

// ESLint runs eslint through npx with the JSON formatter.
type ESLint struct {
	Options
	// ConfigPath is passed as --config when set.
	ConfigPath string
}

func (e *ESLint) Name() string { return "eslint" }

// eslintOutput mirrors the eslint JSON formatter schema.
type eslintOutput []struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   *string `json:"ruleId"`
		Severity int     `json:"severity"`
		Message  string  `json:"message"`
		Line     int     `json:"line"`
	} `json:"messages"`
}

func (e *ESLint) Scan(ctx context.Context, file string) []models.Issue {
	args := []string{"eslint", file, "--format", "json"}
	if e.ConfigPath != "" {
		args = append(args, "--config", e.ConfigPath)
	}
	res, ok := e.run(ctx, "npx", args, filepath.Dir(file))
	if !ok {
		return nil
	}
	return parseESLint([]byte(res.Stdout), file)
}

func parseESLint(data []byte, file string) []models.Issue {
	var output eslintOutput
	if err := json.Unmarshal(data, &output); err != nil {
		slog.Debug("Failed to parse eslint output", "error", err)
		return nil
	}
	var issues []models.Issue
	for _, f := range output {
		if f.FilePath != "" && !sameFile(f.FilePath, file) {
			continue
		}
		for _, m := range f.Messages {
			rule := "unknown"
			if m.RuleID != nil {
				rule = *m.RuleID
			}
			line := m.Line
			if line <= 0 {
				line = 1
			}
			issues = append(issues, models.Issue{
				Level:   eslintLevel(m.Severity),
				Line:    line,
				Message: fmt.Sprintf("[%s] %s", rule, m.Message),
			})
		}
	}
	return issues
}

func eslintLevel(severity int) models.Level {
	switch severity {
	case 2:
		return models.LevelBug
	case 1:
		return models.LevelWarning
	default:
		return models.LevelInfo
	}
}
