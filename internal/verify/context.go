package verify

import (
	"fmt"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// Header is the short digest placed in front of raw runner output when
// asking the model for a fix.
func Header(r *models.VerificationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Passed: %d\nFailed: %d\nErrors: %d\n", r.Passed, r.Failed, r.Errors)
	if len(r.FailedTests) > 0 {
		b.WriteString("\nFailed tests:\n")
		for _, name := range r.FailedTests {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}
	if len(r.ErrorMessages) > 0 {
		b.WriteString("\nError messages:\n")
		for _, msg := range r.ErrorMessages {
			fmt.Fprintf(&b, "  %s\n", msg)
		}
	}
	return b.String()
}

// Context is the digest of r followed by the full runner output.
func Context(output string, r *models.VerificationReport) string {
	return Header(r) + "\n=== Full output ===\n" + output
}

// ErrorContext builds the feedback block for retry attempt n of max.
func ErrorContext(output string, r *models.VerificationReport, attempt, max int) string {
	return fmt.Sprintf("=== Verification attempt %d/%d ===\n\n", attempt, max) + Context(output, r)
}
