package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/devbuddy-ai/devbuddy/models"
)

type issueRow struct {
	file  string
	issue models.Issue
}

// IssuesModel lists every issue across the reviewed files with a level
// filter and a detail panel for the row under the cursor.
type IssuesModel struct {
	rows   []issueRow
	width  int
	height int
	cursor int
	filter models.Level // "" shows all levels
}

// NewIssuesModel flattens results into rows ordered by severity, then file
// and line.
func NewIssuesModel(results []*models.ReviewResult) IssuesModel {
	var rows []issueRow
	for _, r := range results {
		for _, is := range r.Issues {
			rows = append(rows, issueRow{file: r.FilePath, issue: is})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		wi, wj := rows[i].issue.Level.Weight(), rows[j].issue.Level.Weight()
		if wi != wj {
			return wi > wj
		}
		if rows[i].file != rows[j].file {
			return rows[i].file < rows[j].file
		}
		return rows[i].issue.Line < rows[j].issue.Line
	})
	return IssuesModel{rows: rows}
}

func (m IssuesModel) Init() tea.Cmd { return nil }

func (m IssuesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "j", "down":
			m.cursor++
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			m.cursor = len(m.visible()) - 1
		case "b":
			m.setFilter(models.LevelBug)
		case "w":
			m.setFilter(models.LevelWarning)
		case "s":
			m.setFilter(models.LevelStyle)
		case "i":
			m.setFilter(models.LevelInfo)
		case "0":
			m.setFilter("")
		}
	}
	m = m.clampCursor()
	return m, nil
}

func (m *IssuesModel) setFilter(level models.Level) {
	m.filter = level
	m.cursor = 0
}

func (m *IssuesModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m IssuesModel) visible() []issueRow {
	if m.filter == "" {
		return m.rows
	}
	out := make([]issueRow, 0, len(m.rows))
	for _, r := range m.rows {
		if r.issue.Level == m.filter {
			out = append(out, r)
		}
	}
	return out
}

// Selected returns the row under the cursor.
func (m IssuesModel) Selected() (string, models.Issue, bool) {
	rows := m.visible()
	if len(rows) == 0 {
		return "", models.Issue{}, false
	}
	r := rows[m.cursor]
	return r.file, r.issue, true
}

func (m IssuesModel) View() string {
	rows := m.visible()

	lineLimit := m.height - 16
	if lineLimit < 5 {
		lineLimit = 5
	}
	start := 0
	if m.cursor >= lineLimit {
		start = m.cursor - lineLimit + 1
	}

	body := ""
	for i := start; i < len(rows) && i < start+lineLimit; i++ {
		body += m.renderRow(i, rows[i])
	}
	if body == "" {
		body = dimStyle.Render("No issues at this level.\n")
	}

	counts := make(map[models.Level]int, len(models.Levels))
	for _, r := range m.rows {
		counts[r.issue.Level]++
	}
	filterBar := lipgloss.JoinHorizontal(lipgloss.Left,
		m.filterChip("All", "", len(m.rows), "0"),
		" ",
		m.filterChip("Bugs", models.LevelBug, counts[models.LevelBug], "b"),
		" ",
		m.filterChip("Warnings", models.LevelWarning, counts[models.LevelWarning], "w"),
		" ",
		m.filterChip("Style", models.LevelStyle, counts[models.LevelStyle], "s"),
		" ",
		m.filterChip("Info", models.LevelInfo, counts[models.LevelInfo], "i"),
	)

	width := max(20, m.width-2)
	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Issues"),
				filterBar,
				"",
				dimStyle.Render("Level      File                              Line   Message"),
				body,
				dimStyle.Render("j/k navigate  b bugs  w warnings  s style  i info  0 all"),
			),
		),
		m.renderDetail(width),
	)
}

func (m IssuesModel) renderDetail(width int) string {
	file, is, ok := m.Selected()
	if !ok {
		return ""
	}
	lines := []string{
		panelHeaderStyle.Render(fmt.Sprintf("%s:%d", file, is.Line)),
		levelStyle(is.Level).Render("[" + strings.ToUpper(is.Level.String()) + "]") + " " + is.Message,
	}
	if is.CodeSnippet != "" {
		lines = append(lines, "", dimStyle.Render(is.CodeSnippet))
	}
	if is.Suggestion != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(green).Render("Suggestion: "+is.Suggestion))
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m IssuesModel) renderRow(idx int, r issueRow) string {
	cursor := " "
	if idx == m.cursor {
		cursor = "▌"
	}
	lineNo := ""
	if r.issue.Line > 0 {
		lineNo = fmt.Sprintf("%d", r.issue.Line)
	}
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Width(2).Foreground(accent).Render(cursor),
		lipgloss.NewStyle().Width(10).Render(levelStyle(r.issue.Level).Render(strings.ToUpper(r.issue.Level.String()))),
		lipgloss.NewStyle().Width(34).Foreground(slate).Render(truncate(r.file, 32)),
		lipgloss.NewStyle().Width(7).Foreground(slate).Render(lineNo),
		lipgloss.NewStyle().Foreground(ink).Render(truncate(r.issue.Message, max(10, m.width-60))),
	)
	if idx == m.cursor {
		return selectedRowStyle.Width(max(20, m.width-6)).Render(row) + "\n"
	}
	return row + "\n"
}

func (m IssuesModel) filterChip(label string, value models.Level, count int, key string) string {
	text := fmt.Sprintf("%s %d", label, count)
	if m.filter == value {
		return activeTabStyle.Render(text)
	}
	return tabStyle.Render(text + " [" + key + "]")
}

func (m IssuesModel) clampCursor() IssuesModel {
	total := len(m.visible())
	if total == 0 {
		m.cursor = 0
		return m
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= total {
		m.cursor = total - 1
	}
	return m
}
