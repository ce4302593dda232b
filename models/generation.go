package models

// FunctionDescriptor describes one Python function extracted for test
// generation. Lines are 1-based and inclusive.
type FunctionDescriptor struct {
	Name       string   `json:"name"`
	Params     []string `json:"params"`
	ReturnType string   `json:"return_type,omitempty"`
	Docstring  string   `json:"docstring,omitempty"`
	Source     string   `json:"source"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
}

// VerificationReport is the structured digest of one test-runner execution.
type VerificationReport struct {
	Passed          int      `json:"passed"`
	Failed          int      `json:"failed"`
	Errors          int      `json:"errors"`
	Skipped         int      `json:"skipped"`
	CoveragePercent *float64 `json:"coverage_percent,omitempty"`
	FailedTests     []string `json:"failed_tests"`
	ErrorMessages   []string `json:"error_messages"`
	// AppliedFixes lists suggestion descriptions applied before this run.
	AppliedFixes []string `json:"applied_fixes,omitempty"`
}

// GenerationResult is the outcome of a test generation request.
type GenerationResult struct {
	Success   bool                `json:"success"`
	TestCode  string              `json:"test_code"`
	Error     string              `json:"error,omitempty"`
	TestCount int                 `json:"test_count"`
	Verified  bool                `json:"verified"`
	Attempts  int                 `json:"attempts"`
	Report    *VerificationReport `json:"verification_report,omitempty"`
}
