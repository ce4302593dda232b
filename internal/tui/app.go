package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/devbuddy-ai/devbuddy/internal/licensing"
	"github.com/devbuddy-ai/devbuddy/models"
)

// Tab represents a TUI navigation tab.
type Tab int

const (
	TabSummary Tab = iota
	TabIssues
	TabUsage
)

var tabNames = []string{"Summary", "Issues", "Usage"}
var tabTinyNames = []string{"S", "I", "U"}

// App is the root bubbletea model for browsing review results.
type App struct {
	width     int
	height    int
	activeTab Tab
	dashboard DashboardModel
	issues    IssuesModel
	usage     *licensing.Summary
}

// NewApp creates the TUI application. usage may be nil.
func NewApp(results []*models.ReviewResult, usage *licensing.Summary) *App {
	return &App{
		dashboard: NewDashboardModel(results),
		issues:    NewIssuesModel(results),
		usage:     usage,
	}
}

// Run starts the bubbletea program and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		a.issues.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentW := max(20, msg.Width-2)
		contentH := max(8, msg.Height-7)
		a.dashboard.SetSize(contentW, contentH)
		a.issues.SetSize(contentW, contentH)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return a, tea.Quit
		case "1":
			a.activeTab = TabSummary
			return a, nil
		case "2":
			a.activeTab = TabIssues
			return a, nil
		case "3":
			a.activeTab = TabUsage
			return a, nil
		case "tab":
			a.activeTab = (a.activeTab + 1) % Tab(len(tabNames))
			return a, nil
		case "shift+tab":
			a.activeTab--
			if a.activeTab < 0 {
				a.activeTab = Tab(len(tabNames) - 1)
			}
			return a, nil
		}
	}

	var cmd tea.Cmd
	switch a.activeTab {
	case TabSummary:
		var next tea.Model
		next, cmd = a.dashboard.Update(msg)
		a.dashboard = next.(DashboardModel)
	case TabIssues:
		var next tea.Model
		next, cmd = a.issues.Update(msg)
		a.issues = next.(IssuesModel)
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	var content string
	switch a.activeTab {
	case TabSummary:
		content = a.dashboard.View()
	case TabIssues:
		content = a.issues.View()
	case TabUsage:
		content = renderUsage(a.usage, max(20, a.width-4))
	}

	contentBox := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		MaxHeight(max(1, a.height-4)).
		Render(content)

	status := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slateDim).
		Render("tab next  shift+tab prev  1-3 jump  q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		a.renderTabs(),
		contentBox,
		status,
	)
}

func (a *App) renderHeader() string {
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("devbuddy"),
		"  ",
		dimStyle.Render("AI code review results"),
		"  ",
		mutedBadgeStyle.Render(" "+tabNames[a.activeTab]+" "),
	)
	return lipgloss.NewStyle().
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(line).
		Width(a.width).
		Padding(0, 1).
		Render(row)
}

func (a *App) renderTabs() string {
	rendered := a.renderTabLabels(tabNames)
	if lipgloss.Width(rendered) > max(10, a.width-2) {
		rendered = a.renderTabLabels(tabTinyNames)
	}
	return lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slate).
		Render(rendered)
}

func (a *App) renderTabLabels(labels []string) string {
	parts := make([]string, 0, len(labels))
	for i, name := range labels {
		label := fmt.Sprintf("%d:%s", i+1, name)
		if Tab(i) == a.activeTab {
			parts = append(parts, lipgloss.NewStyle().Bold(true).Foreground(accent).Render(label))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
		if i < len(labels)-1 {
			parts = append(parts, dimStyle.Render("  ·  "))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
