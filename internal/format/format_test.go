package format

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbuddy-ai/devbuddy/models"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

func sampleResults() []*models.ReviewResult {
	return []*models.ReviewResult{
		{
			FilePath: "app.py",
			Success:  true,
			Issues: []models.Issue{
				{Level: models.LevelBug, Line: 5, Message: "Potentially dangerous eval() usage", Suggestion: "Avoid eval"},
				{Level: models.LevelWarning, Line: 6, Message: "Bare except clause detected"},
				{Level: models.LevelStyle, Line: 9, Message: "a | b"},
			},
		},
		{FilePath: "clean.py", Success: true, Issues: []models.Issue{}},
		{FilePath: "big.py", Success: false, Error: "File too large: 900 lines (max: 500)", Issues: []models.Issue{}},
	}
}

func TestGet(t *testing.T) {
	assert.IsType(t, &JSON{}, Get("JSON", false))
	assert.IsType(t, &Markdown{}, Get("markdown", false))
	assert.IsType(t, &Markdown{}, Get("md", false))
	assert.IsType(t, &Text{}, Get("text", false))
	assert.IsType(t, &Text{}, Get("yaml", false))
	assert.True(t, Get("text", true).(*Text).Color)
}

func TestColorEnabled(t *testing.T) {
	assert.True(t, ColorEnabled("always", nil))
	assert.False(t, ColorEnabled("never", nil))
	assert.False(t, ColorEnabled("auto", nil))
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled("auto", nil))
}

func TestTextReview(t *testing.T) {
	out := (&Text{}).Review(sampleResults())

	assert.Contains(t, out, "DevBuddyAI Code Review Results")
	assert.Contains(t, out, "app.py\n  [BUG] Line 5: Potentially dangerous eval() usage\n    Suggestion: Avoid eval\n")
	assert.Contains(t, out, "  [WARNING] Line 6: Bare except clause detected")
	assert.Contains(t, out, "big.py\n  Error: File too large")
	assert.NotContains(t, out, "clean.py")
	assert.True(t, strings.HasSuffix(out, "Summary: 1 bugs, 1 warnings, 1 style issues"))
	assert.NotContains(t, out, "\x1b[")
}

func TestTextTestGen(t *testing.T) {
	txt := &Text{}
	out := txt.TestGen(&models.GenerationResult{Success: true, TestCode: "def test_a(): pass", TestCount: 1, Verified: true, Attempts: 2})
	assert.Contains(t, out, "Generated Tests:")
	assert.Contains(t, out, "def test_a(): pass")
	assert.Contains(t, out, "Test count: 1")
	assert.Contains(t, out, "Status: Verified (all tests passed)")
	assert.Contains(t, out, "Attempts: 2")

	out = txt.TestGen(&models.GenerationResult{Success: true, TestCode: "x", TestCount: 0})
	assert.Contains(t, out, "Status: Not verified")

	assert.Equal(t, "Error: boom", txt.TestGen(&models.GenerationResult{Error: "boom"}))
}

func TestTextFix(t *testing.T) {
	txt := &Text{}
	assert.Equal(t, "No fixes suggested", txt.Fix(&models.FixResult{Success: true}))
	assert.Equal(t, "Error: no key", txt.Fix(&models.FixResult{Error: "no key"}))

	out := txt.Fix(&models.FixResult{
		Success: true,
		Suggestions: []models.FixSuggestion{
			{FilePath: "calc.py", Line: 3, Description: "Guard division", Original: "return a / b", Replacement: "return a / b if b else 0"},
		},
		Verified: true,
		Report:   &models.VerificationReport{Passed: 2, AppliedFixes: []string{"Guard division"}},
	})
	assert.Contains(t, out, "1. Guard division\n   File: calc.py:3\n   Change:\n   - return a / b\n   + return a / b if b else 0")
	assert.Contains(t, out, "Applied 1 fix(es). Status: Verified (all tests passed)")
}

func TestTextDiff(t *testing.T) {
	preview := "- return a / b\n+ return a / b if b else 0\n"
	assert.Equal(t, preview, (&Text{}).Diff(preview))

	colored := (&Text{Color: true}).Diff(preview)
	assert.Contains(t, colored, "return a / b if b else 0")
	assert.Equal(t, 2, strings.Count(colored, "\n"))
}

func TestJSONReview(t *testing.T) {
	out := (&JSON{Now: fixedNow}).Review(sampleResults())

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "DevBuddyAI", doc["tool"])
	assert.Equal(t, "code_review", doc["type"])
	assert.Equal(t, "2026-10-19T09:30:00Z", doc["generated_at"])
	assert.EqualValues(t, 3, doc["files_reviewed"])
	assert.Equal(t, map[string]any{"bug": 1.0, "warning": 1.0, "style": 1.0, "info": 0.0}, doc["summary"])

	results := doc["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "app.py", first["file_path"])
	issue := first["issues"].([]any)[0].(map[string]any)
	assert.Equal(t, "bug", issue["level"])
	assert.EqualValues(t, 5, issue["line"])
	assert.Equal(t, "Avoid eval", issue["suggestion"])

	empty := (&JSON{Now: fixedNow}).Review(nil)
	assert.Contains(t, empty, `"results": []`)
}

func TestJSONTestGenAndFix(t *testing.T) {
	j := &JSON{Now: fixedNow}

	var gen map[string]any
	require.NoError(t, json.Unmarshal([]byte(j.TestGen(&models.GenerationResult{
		Success: true, TestCode: "def test_x(): assert 1 < 2", TestCount: 1, Verified: true,
	})), &gen))
	assert.Equal(t, "test_generation", gen["type"])
	assert.Equal(t, true, gen["verified"])
	assert.Equal(t, "def test_x(): assert 1 < 2", gen["test_code"])

	var fix map[string]any
	require.NoError(t, json.Unmarshal([]byte(j.Fix(&models.FixResult{
		Success:     true,
		Suggestions: []models.FixSuggestion{{FilePath: "a.py", Line: 1, Description: "d", Original: "o", Replacement: "r", Confidence: 0.9}},
	})), &fix))
	assert.Equal(t, "fix_suggestions", fix["type"])
	assert.EqualValues(t, 1, fix["suggestion_count"])
	s := fix["suggestions"].([]any)[0].(map[string]any)
	assert.Equal(t, 0.9, s["confidence"])
}

func TestMarkdownReview(t *testing.T) {
	out := (&Markdown{Now: fixedNow}).Review(sampleResults())

	assert.True(t, strings.HasPrefix(out, "# DevBuddyAI Code Review Report\n\n**Generated:** 2026-10-19 09:30:00\n**Files Reviewed:** 3\n"))
	assert.Contains(t, out, "## 📄 app.py")
	assert.Contains(t, out, "| 🔴 BUG | 5 | Potentially dangerous eval() usage | Avoid eval |")
	assert.Contains(t, out, "| 🟡 WARNING | 6 | Bare except clause detected | - |")
	assert.Contains(t, out, `| 🔵 STYLE | 9 | a \| b | - |`)
	assert.Contains(t, out, "**Error:** File too large")
	assert.Contains(t, out, "| 🔴 Bugs | 1 |")
	assert.Contains(t, out, "| 🟢 Info | 0 |")
	assert.True(t, strings.HasSuffix(out, "*Generated by DevBuddyAI*"))
}

func TestMarkdownTestGenAndFix(t *testing.T) {
	m := &Markdown{Now: fixedNow}

	out := m.TestGen(&models.GenerationResult{Success: true, TestCode: "def test_a(): pass", TestCount: 1, Verified: true})
	assert.Contains(t, out, "**Status:** ✅ Verified")
	assert.Contains(t, out, "```python\ndef test_a(): pass\n```")

	out = m.TestGen(&models.GenerationResult{Error: "Function not found: 'x'"})
	assert.Contains(t, out, "**Status:** ❌ Error")

	out = m.Fix(&models.FixResult{Success: true})
	assert.Contains(t, out, "No fixes suggested.")

	out = m.Fix(&models.FixResult{Success: true, Suggestions: []models.FixSuggestion{
		{FilePath: "a.py", Line: 2, Description: "Fix it", Original: "x = 1", Replacement: "x = 2", Confidence: 0.85},
	}})
	assert.Contains(t, out, "## 🔧 Fix #1")
	assert.Contains(t, out, "**Confidence:** 85%")
	assert.Contains(t, out, "```diff\n- x = 1\n+ x = 2\n```")
}
