// Package verify turns test-runner output into a VerificationReport and
// runs test commands on behalf of the generation and fix loops.
package verify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

const (
	maxFailedTests  = 10
	maxTracebacks   = 3
	maxErrorLines   = 5
	tracebackMarker = "Traceback"
	errorLinePrefix = "E "
)

var (
	summaryPattern  = regexp.MustCompile(`(?i)(\d+) passed(?:.*?(\d+) failed)?(?:.*?(\d+) error)?`)
	skippedPattern  = regexp.MustCompile(`(?i)(\d+) skipped`)
	coveragePattern = regexp.MustCompile(`TOTAL\s+\d+\s+\d+\s+(\d+)%`)
	failedPattern   = regexp.MustCompile(`(?m)^(?:FAILED|ERROR)\s+(\S+)`)
)

// ParseReport digests combined stdout and stderr of a test run. Output it
// does not recognise yields a zero report, never an error.
func ParseReport(output string) *models.VerificationReport {
	r := &models.VerificationReport{
		FailedTests:   []string{},
		ErrorMessages: []string{},
	}

	if m := summaryPattern.FindStringSubmatch(output); m != nil {
		r.Passed = atoi(m[1])
		r.Failed = atoi(m[2])
		r.Errors = atoi(m[3])
	}
	if m := skippedPattern.FindStringSubmatch(output); m != nil {
		r.Skipped = atoi(m[1])
	}
	if m := coveragePattern.FindStringSubmatch(output); m != nil {
		if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.CoveragePercent = &pct
		}
	}

	for _, m := range failedPattern.FindAllStringSubmatch(output, maxFailedTests) {
		r.FailedTests = append(r.FailedTests, m[1])
	}

	r.ErrorMessages = tracebacks(output)
	if len(r.ErrorMessages) == 0 {
		r.ErrorMessages = errorLines(output)
	}
	return r
}

// tracebacks returns up to maxTracebacks blocks, each running from a
// traceback marker line to the next blank line.
func tracebacks(output string) []string {
	var (
		blocks  []string
		current []string
		inBlock bool
	)
	for _, line := range strings.Split(output, "\n") {
		switch {
		case !inBlock && strings.Contains(line, tracebackMarker):
			inBlock = true
			current = []string{line}
		case inBlock && strings.TrimSpace(line) == "":
			blocks = append(blocks, strings.Join(current, "\n"))
			inBlock = false
		case inBlock:
			current = append(current, line)
		}
		if len(blocks) == maxTracebacks {
			return blocks
		}
	}
	if inBlock {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

func errorLines(output string) []string {
	out := []string{}
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, errorLinePrefix) {
			continue
		}
		out = append(out, strings.TrimSpace(line))
		if len(out) == maxErrorLines {
			break
		}
	}
	return out
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
