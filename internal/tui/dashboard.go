package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/devbuddy-ai/devbuddy/models"
)

// DashboardModel shows issue totals and one row per reviewed file.
type DashboardModel struct {
	results []*models.ReviewResult
	width   int
	height  int
	offset  int
}

// NewDashboardModel creates a DashboardModel.
func NewDashboardModel(results []*models.ReviewResult) DashboardModel {
	return DashboardModel{results: results}
}

func (d DashboardModel) Init() tea.Cmd { return nil }

func (d DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "j", "down":
			if d.offset < len(d.results)-1 {
				d.offset++
			}
		case "k", "up":
			if d.offset > 0 {
				d.offset--
			}
		}
	}
	return d, nil
}

func (d *DashboardModel) SetSize(w, h int) {
	d.width = w
	d.height = h
}

func (d DashboardModel) totals() map[models.Level]int {
	counts := make(map[models.Level]int, len(models.Levels))
	for _, r := range d.results {
		for level, n := range models.CountByLevel(r.Issues) {
			counts[level] += n
		}
	}
	return counts
}

func (d DashboardModel) View() string {
	counts := d.totals()

	cardW := 16
	if d.width >= 100 {
		cardW = 20
	}
	cards := make([]string, 0, len(models.Levels))
	for _, level := range models.Levels {
		cards = append(cards, renderCounter(level.String(), counts[level], levelStyle(level), cardW))
	}
	summary := lipgloss.JoinHorizontal(lipgloss.Top, cards...)

	lineLimit := d.height - 12
	if lineLimit < 5 {
		lineLimit = 5
	}
	rows := ""
	shown := 0
	for _, r := range d.results[min(d.offset, len(d.results)):] {
		if shown >= lineLimit {
			break
		}
		status := badge("ok", green)
		if !r.Success {
			status = badge("failed", red)
		} else if len(r.Issues) == 0 {
			status = mutedBadgeStyle.Render("clean")
		}
		c := models.CountByLevel(r.Issues)
		tally := fmt.Sprintf("B:%d W:%d S:%d I:%d",
			c[models.LevelBug], c[models.LevelWarning], c[models.LevelStyle], c[models.LevelInfo])
		rows += lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(42).Foreground(ink).Render(truncate(r.FilePath, 40)),
			lipgloss.NewStyle().Width(12).Render(status),
			dimStyle.Render(tally),
		) + "\n"
		shown++
	}
	if len(d.results) == 0 {
		rows = dimStyle.Render("Nothing reviewed. Run: devbuddy review <path>\n")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(0, 1).Render(summary),
		panelStyle.Width(max(20, d.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render(fmt.Sprintf("Reviewed Files (%d)", len(d.results))),
				dimStyle.Render("File                                      Status      Issues"),
				rows,
			),
		),
	)
}

func renderCounter(label string, count int, style lipgloss.Style, width int) string {
	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			style.Bold(true).Render(fmt.Sprintf("%d", count)),
			dimStyle.Render(strings.ToUpper(label)),
		),
	) + "  "
}

// truncate keeps the tail of s, which is the informative end of a path.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
