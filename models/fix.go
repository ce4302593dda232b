package models

// Category classifies a fix suggestion.
type Category string

const (
	CategoryBug         Category = "bug"
	CategorySecurity    Category = "security"
	CategoryPerformance Category = "performance"
	CategoryStyle       Category = "style"
	CategoryUnknown     Category = "unknown"
)

// FixSuggestion is one model-proposed edit: replace Original with Replacement.
type FixSuggestion struct {
	FilePath    string   `json:"file_path"`
	Line        int      `json:"line"`
	Description string   `json:"description"`
	Original    string   `json:"original"`
	Replacement string   `json:"replacement"`
	Confidence  float64  `json:"confidence"`
	Category    Category `json:"category"`
}

// FixResult is the outcome of a fix request.
type FixResult struct {
	Success     bool                `json:"success"`
	Suggestions []FixSuggestion     `json:"suggestions"`
	Error       string              `json:"error,omitempty"`
	Attempts    int                 `json:"attempts"`
	Verified    bool                `json:"verified"`
	Report      *VerificationReport `json:"verification_report,omitempty"`
}
