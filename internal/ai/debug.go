package ai

import (
	"log/slog"
	"os"
	"strings"
)

// parseAIDebugEnv reads DEVBUDDY_DEBUG_AI and returns (debugEnabled, promptsEnabled).
// Valid values:
//
//	"all" or "1" or "true" - enable both debug and prompts
//	"prompts" - enable only prompts
//	"none" or "0" or "false" or "" - disable all
func parseAIDebugEnv() (debug bool, prompts bool) {
	switch strings.TrimSpace(strings.ToLower(os.Getenv("DEVBUDDY_DEBUG_AI"))) {
	case "all", "1", "true":
		return true, true
	case "prompts":
		return false, true
	default:
		return false, false
	}
}

// debugFlags carries the per-client debug switches.
type debugFlags struct {
	debug   bool
	prompts bool
}

func newDebugFlags() debugFlags {
	d, p := parseAIDebugEnv()
	return debugFlags{debug: d, prompts: p}
}

func (d debugFlags) request(provider, model string, promptChars int) {
	if d.debug {
		slog.Debug("AI request", "provider", provider, "model", model, "prompt_chars", promptChars)
	}
}

func (d debugFlags) exchange(provider, prompt, response string) {
	if d.prompts {
		slog.Debug("AI prompt", "provider", provider, "prompt", prompt)
		slog.Debug("AI response", "provider", provider, "response", response)
	}
}
