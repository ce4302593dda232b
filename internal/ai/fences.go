package ai

import "strings"

// StripCodeFences returns the body of the first markdown code block in a
// model response, normalising CRLF to LF. Text outside the block is
// dropped. A response without fences is returned trimmed; an unclosed
// fence runs to the end of the response.
func StripCodeFences(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(s, "\n")

	start := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			start = i
			break
		}
	}
	if start < 0 {
		return strings.TrimSpace(s)
	}

	contentStart := start + 1
	end := len(lines)
	for i := len(lines) - 1; i >= contentStart; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[contentStart:end], "\n"))
}
