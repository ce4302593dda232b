package scanner

import (
	"context"

	"github.com/devbuddy-ai/devbuddy/models"
)

// Scanner is the interface every external linter/compiler adapter
// implements. To add a new tool:
//  1. Create a new file in internal/scanner/ (e.g. mytool.go)
//  2. Implement the Scanner interface
//  3. Enable it from the owning analyzer in internal/analyzer
type Scanner interface {
	// Name returns the human-readable tool name (e.g. "flake8").
	Name() string

	// Scan runs the tool against file and returns normalised issues.
	// A missing binary, a timeout or unparseable output yields no issues.
	Scan(ctx context.Context, file string) []models.Issue
}
