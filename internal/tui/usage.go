package tui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

func renderUsage(s *licensing.Summary, width int) string {
	if s == nil {
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Usage"),
				"",
				dimStyle.Render("No license data. Run: devbuddy license status"),
			),
		)
	}

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(18).Foreground(slate).Render(label),
			lipgloss.NewStyle().Foreground(ink).Render(value),
		)
	}
	lines := []string{
		panelHeaderStyle.Render("Usage " + s.Month),
		"",
		row("Plan", string(s.Plan)),
		row("Reviews", s.Reviews),
		row("Test generations", s.TestGens),
		row("Fixes", s.Fixes),
		row("Max file lines", s.MaxFileLines),
		"",
		panelHeaderStyle.Render("Features"),
	}

	names := make([]string, 0, len(s.Features))
	for name := range s.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mark := dimStyle.Render("no")
		if s.Features[name] {
			mark = lipgloss.NewStyle().Foreground(green).Render("yes")
		}
		lines = append(lines, row(name, mark))
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
