package models

// Issue is one static-analysis or AI-sourced finding.
type Issue struct {
	Level       Level  `json:"level"`
	Line        int    `json:"line"`
	Message     string `json:"message"`
	Suggestion  string `json:"suggestion,omitempty"`
	CodeSnippet string `json:"code_snippet,omitempty"`
}

// ReviewResult is the outcome of reviewing one file (or one diff).
type ReviewResult struct {
	FilePath string  `json:"file_path"`
	Issues   []Issue `json:"issues"`
	Summary  string  `json:"summary"`
	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
}

// CountByLevel tallies issues per level.
func CountByLevel(issues []Issue) map[Level]int {
	counts := make(map[Level]int, len(Levels))
	for _, is := range issues {
		counts[is.Level]++
	}
	return counts
}
