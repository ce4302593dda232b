package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbuddy-ai/devbuddy/internal/licensing"
	"github.com/devbuddy-ai/devbuddy/models"
)

func sampleResults() []*models.ReviewResult {
	return []*models.ReviewResult{
		{
			FilePath: "app.py",
			Success:  true,
			Issues: []models.Issue{
				{Level: models.LevelStyle, Line: 12, Message: "Line too long"},
				{Level: models.LevelBug, Line: 5, Message: "Potentially dangerous eval() usage", Suggestion: "Avoid eval"},
			},
		},
		{
			FilePath: "lib/util.js",
			Success:  true,
			Issues: []models.Issue{
				{Level: models.LevelWarning, Line: 3, Message: "Use of var"},
			},
		},
		{FilePath: "broken.go", Success: false, Error: "boom"},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(t *testing.T, a *App) *App {
	t.Helper()
	m, _ := a.Update(tea.WindowSizeMsg{Width: 200, Height: 60})
	return m.(*App)
}

func TestNewIssuesModelOrdersBySeverity(t *testing.T) {
	m := NewIssuesModel(sampleResults())
	require.Len(t, m.rows, 3)
	assert.Equal(t, models.LevelBug, m.rows[0].issue.Level)
	assert.Equal(t, models.LevelWarning, m.rows[1].issue.Level)
	assert.Equal(t, models.LevelStyle, m.rows[2].issue.Level)
}

func TestIssuesCursorClamps(t *testing.T) {
	var m tea.Model = NewIssuesModel(sampleResults())
	for range 10 {
		m, _ = m.Update(key("j"))
	}
	file, is, ok := m.(IssuesModel).Selected()
	require.True(t, ok)
	assert.Equal(t, "app.py", file)
	assert.Equal(t, 12, is.Line)

	for range 10 {
		m, _ = m.Update(key("k"))
	}
	_, is, _ = m.(IssuesModel).Selected()
	assert.Equal(t, models.LevelBug, is.Level)
}

func TestIssuesFilter(t *testing.T) {
	var m tea.Model = NewIssuesModel(sampleResults())
	m, _ = m.Update(key("w"))
	im := m.(IssuesModel)
	require.Len(t, im.visible(), 1)
	_, is, ok := im.Selected()
	require.True(t, ok)
	assert.Equal(t, "Use of var", is.Message)

	m, _ = m.Update(key("i"))
	_, _, ok = m.(IssuesModel).Selected()
	assert.False(t, ok)

	m, _ = m.Update(key("0"))
	assert.Len(t, m.(IssuesModel).visible(), 3)
}

func TestAppViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Loading...", NewApp(nil, nil).View())
}

func TestAppTabsAndViews(t *testing.T) {
	a := sized(t, NewApp(sampleResults(), nil))

	out := a.View()
	assert.Contains(t, out, "devbuddy")
	assert.Contains(t, out, "Reviewed Files (3)")
	assert.Contains(t, out, "failed")

	m, _ := a.Update(key("2"))
	a = m.(*App)
	assert.Equal(t, TabIssues, a.activeTab)
	out = a.View()
	assert.Contains(t, out, "Potentially dangerous eval() usage")
	assert.Contains(t, out, "Suggestion: Avoid eval")

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyTab})
	a = m.(*App)
	assert.Equal(t, TabUsage, a.activeTab)
	assert.Contains(t, a.View(), "No license data")

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabSummary, m.(*App).activeTab)
}

func TestAppUsageTab(t *testing.T) {
	usage := &licensing.Summary{
		Plan:         licensing.PlanPro,
		Month:        "2026-10",
		Reviews:      "3 / 500",
		TestGens:     "0 / 200",
		Fixes:        "1 / 200",
		MaxFileLines: "2000",
		Features:     map[string]bool{"pr_review": true},
	}
	a := sized(t, NewApp(nil, usage))
	m, _ := a.Update(key("3"))
	out := m.(*App).View()
	assert.Contains(t, out, "3 / 500")
	assert.Contains(t, out, "pr_review")
}

func TestAppQuit(t *testing.T) {
	a := NewApp(nil, nil)
	_, cmd := a.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
