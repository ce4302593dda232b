package ai

import (
	"fmt"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// SystemPrompt is sent with Complete.
const SystemPrompt = "You are an experienced senior software engineer who reviews code, writes tests and fixes bugs. Follow the requested output format exactly."

var severityScope = map[string]string{
	"low":    "all issues, including informational ones",
	"medium": "bugs, warnings and style issues",
	"high":   "bugs and serious warnings only",
}

// ReviewPrompt asks for a review of code in the [LEVEL] Line N protocol.
func ReviewPrompt(code, language, severity string) string {
	scope, ok := severityScope[severity]
	if !ok {
		scope = severityScope["medium"]
	}
	return fmt.Sprintf(`Review the following %[1]s code.

## What to look for
- Bugs (logic errors, nil/null dereferences, division by zero)
- Security problems (injection, missing authorization)
- Performance problems
- Coding style and naming conventions
- Departures from established best practice

## Output format
Report each issue on its own line:
[LEVEL] Line N: description
  Suggestion: how to fix it

LEVEL is one of:
- BUG: a definite bug
- WARNING: a potential problem
- STYLE: a style or readability problem
- INFO: information or a suggestion

## Scope
Report %[2]s.

## Code
`+"```%[1]s\n%[3]s\n```"+`

If you find nothing, answer "No issues found".
`, language, scope, code)
}

// DiffReviewPrompt asks for a review of a unified diff.
func DiffReviewPrompt(diff string) string {
	return `Review the following git diff.

## What to look for
- Bugs in the added code
- Functionality broken by removed code
- Whether the intent of the change is clear
- Whether the change needs tests

## Output format
[LEVEL] Line N: description
  Suggestion: how to fix it

## Diff
` + "```diff\n" + diff + "\n```" + `

If the changes look fine, answer "Changes look good".
`
}

var frameworkImport = map[string]string{
	"pytest":   "import pytest",
	"unittest": "import unittest",
}

// TestGenerationPrompt asks for a complete test module covering fns.
func TestGenerationPrompt(fns []models.FunctionDescriptor, module, framework string) string {
	var b strings.Builder
	for _, fn := range fns {
		params := "none"
		if len(fn.Params) > 0 {
			params = strings.Join(fn.Params, ", ")
		}
		fmt.Fprintf(&b, "\n### Function: %s\n- Parameters: %s\n- Return type: %s\n- Docstring: %s\n- Source:\n```python\n%s\n```\n",
			fn.Name, params, orDefault(fn.ReturnType, "unknown"), orDefault(fn.Docstring, "none"), fn.Source)
	}
	imp, ok := frameworkImport[framework]
	if !ok {
		imp = frameworkImport["pytest"]
	}

	return fmt.Sprintf(`Write unit tests for the functions below.

## Test framework
%s

## Module under test
%s

## Functions
%s
## Requirements
1. Several test cases per function
2. Cover both normal and error paths
3. Test edge cases (boundaries, empty input, None)
4. Make assertions specific
5. Name each test after what it checks

## Output format
Output a complete Python test file containing code only, no commentary or markdown.

`+"```python\n%s\nfrom %s import *\n\n# tests here\n```\n", framework, module, b.String(), imp, module)
}

// FixTestsPrompt asks the model to repair a failing generated test file.
func FixTestsPrompt(testCode, errorContext string) string {
	return "The following tests fail. Fix the test code.\n\n## Test code\n```python\n" + testCode +
		"\n```\n\n## Error output\n```\n" + errorContext + "\n```\n\n" +
		`## Requirements
1. Make the tests pass
2. Keep the intent of each test
3. Add mocks where needed
4. Output the complete corrected test file

Output only the corrected code, no explanation.
`
}

// BugFixPrompt asks for fix suggestions in the FILE/LINE/DESCRIPTION/
// ORIGINAL/REPLACEMENT protocol. source may be empty.
func BugFixPrompt(testCode, errorContext, source, language string) string {
	var src string
	if source != "" {
		src = "\n## Source code\n```" + language + "\n" + source + "\n```\n"
	}
	return "The following tests fail. Find the bug and propose fixes.\n\n## Test code\n```" + language + "\n" + testCode +
		"\n```\n\n## Error output\n```\n" + errorContext + "\n```\n" + src + `
## Output format
Write each proposed fix as:

FILE: path of the file to change
LINE: line number
DESCRIPTION: what is wrong and why the change fixes it
ORIGINAL: the original line of code
REPLACEMENT: the corrected line of code
CONFIDENCE: a number between 0.0 and 1.0

Repeat the block for every fix.
`
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
