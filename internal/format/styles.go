package format

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/devbuddy-ai/devbuddy/models"
)

var (
	red    = lipgloss.Color("#EF4444")
	yellow = lipgloss.Color("#F59E0B")
	blue   = lipgloss.Color("#38BDF8")
	green  = lipgloss.Color("#22C55E")
	slate  = lipgloss.Color("#94A3B8")
	accent = lipgloss.Color("#14B8A6")

	bugStyle     = lipgloss.NewStyle().Bold(true).Foreground(red)
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(yellow)
	styleStyle   = lipgloss.NewStyle().Foreground(blue)
	infoStyle    = lipgloss.NewStyle().Foreground(slate)

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	pathStyle    = lipgloss.NewStyle().Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(green)
	removedStyle = lipgloss.NewStyle().Foreground(red)
	mutedStyle   = lipgloss.NewStyle().Foreground(slate)
)

// LevelStyle returns the colour used for an issue level.
func LevelStyle(l models.Level) lipgloss.Style {
	switch l {
	case models.LevelBug:
		return bugStyle
	case models.LevelWarning:
		return warningStyle
	case models.LevelStyle:
		return styleStyle
	default:
		return infoStyle
	}
}
