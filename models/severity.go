package models

import "strings"

// Level is the severity of an Issue. Ordered bug > warning > style > info.
type Level string

const (
	LevelBug     Level = "bug"
	LevelWarning Level = "warning"
	LevelStyle   Level = "style"
	LevelInfo    Level = "info"
)

// Levels lists every level from most to least severe.
var Levels = []Level{LevelBug, LevelWarning, LevelStyle, LevelInfo}

// Weight returns a numeric weight for sorting (higher = more severe).
func (l Level) Weight() int {
	switch l {
	case LevelBug:
		return 4
	case LevelWarning:
		return 3
	case LevelStyle:
		return 2
	case LevelInfo:
		return 1
	default:
		return 0
	}
}

func (l Level) String() string {
	return string(l)
}

// ParseLevel normalises a level name produced by a model or a config file.
// Unknown names fall back to info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bug", "error", "critical", "high":
		return LevelBug
	case "warning", "warn", "medium":
		return LevelWarning
	case "style", "low":
		return LevelStyle
	default:
		return LevelInfo
	}
}

// MapSeverity normalises external-tool severity vocabulary to a Level.
// Every input maps to one of the four levels.
func MapSeverity(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "error", "fatal", "critical", "high", "bug":
		return LevelBug
	case "warning", "warn", "medium", "moderate":
		return LevelWarning
	case "style", "convention", "refactor":
		return LevelStyle
	default:
		// note, help, info, low and anything unrecognised.
		return LevelInfo
	}
}

// MinWeight returns the lowest Level weight admitted by a review severity
// threshold: high keeps bugs only, medium keeps style and above, low keeps all.
func MinWeight(threshold string) int {
	switch strings.ToLower(threshold) {
	case "high":
		return 4
	case "low":
		return 1
	default:
		return 2
	}
}
