package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#14B8A6"))
	labelStyle   = lipgloss.NewStyle().Width(20).Foreground(lipgloss.Color("#94A3B8"))
)

func field(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}
