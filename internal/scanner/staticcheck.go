package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// Staticcheck runs staticcheck with JSON-lines output.
type Staticcheck struct {
	Options
}

func (s *Staticcheck) Name() string { return "staticcheck" }

// staticcheckLine mirrors one JSON object of "staticcheck -f json".
type staticcheckLine struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Location struct {
		File   string `json:"file"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
	} `json:"location"`
}

func (s *Staticcheck) Scan(ctx context.Context, file string) []models.Issue {
	res, ok := s.run(ctx, "staticcheck", []string{"-f", "json", file}, filepath.Dir(file))
	if !ok {
		return nil
	}
	return parseStaticcheck(res.Stdout, file)
}

func parseStaticcheck(out, file string) []models.Issue {
	var issues []models.Issue
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var d staticcheckLine
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			continue
		}
		if !sameFile(d.Location.File, file) {
			continue
		}
		row := d.Location.Line
		if row <= 0 {
			row = 1
		}
		msg := d.Message
		if d.Code != "" {
			msg = fmt.Sprintf("[%s] %s", d.Code, d.Message)
		}
		issues = append(issues, models.Issue{
			Level:   staticcheckLevel(d.Severity),
			Line:    row,
			Message: msg,
		})
	}
	return issues
}

func staticcheckLevel(sev string) models.Level {
	switch sev {
	case "error":
		return models.LevelBug
	case "info":
		return models.LevelInfo
	default:
		return models.LevelWarning
	}
}
