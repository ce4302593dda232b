package fixer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// Field prefixes of the line-oriented suggestion protocol.
const (
	fieldFile        = "FILE:"
	fieldLine        = "LINE:"
	fieldDescription = "DESCRIPTION:"
	fieldOriginal    = "ORIGINAL:"
	fieldReplacement = "REPLACEMENT:"
	fieldConfidence  = "CONFIDENCE:"
)

// ParseSuggestions reads FILE/LINE/DESCRIPTION/ORIGINAL/REPLACEMENT blocks
// from a model response. A FILE line starts a new block. Blocks without a
// DESCRIPTION, ORIGINAL or REPLACEMENT line are dropped; an empty value
// still counts, so an empty replacement deletes the original. FILE defaults to
// defaultPath and LINE to 1. Values are single lines; unrecognised lines
// are ignored.
func ParseSuggestions(response, defaultPath string) []models.FixSuggestion {
	var (
		out     []models.FixSuggestion
		current map[string]string
	)
	flush := func() {
		if current == nil {
			return
		}
		if s, ok := buildSuggestion(current, defaultPath); ok {
			out = append(out, s)
		}
	}

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, fieldFile) {
			flush()
			current = map[string]string{fieldFile: value(line, fieldFile)}
			continue
		}
		for _, f := range []string{fieldLine, fieldDescription, fieldOriginal, fieldReplacement, fieldConfidence} {
			if strings.HasPrefix(line, f) {
				if current == nil {
					current = map[string]string{}
				}
				current[f] = value(line, f)
				break
			}
		}
	}
	flush()
	return out
}

func value(line, field string) string {
	return strings.TrimSpace(line[len(field):])
}

func buildSuggestion(fields map[string]string, defaultPath string) (models.FixSuggestion, bool) {
	for _, f := range []string{fieldDescription, fieldOriginal, fieldReplacement} {
		if _, ok := fields[f]; !ok {
			return models.FixSuggestion{}, false
		}
	}
	path := fields[fieldFile]
	if path == "" {
		path = defaultPath
	}
	line, err := strconv.Atoi(fields[fieldLine])
	if err != nil {
		line = 1
	}
	desc := fields[fieldDescription]
	return models.FixSuggestion{
		FilePath:    path,
		Line:        line,
		Description: desc,
		Original:    fields[fieldOriginal],
		Replacement: fields[fieldReplacement],
		Confidence:  Confidence(desc, fields[fieldConfidence]),
		Category:    Categorize(desc),
	}, true
}

// FormatSuggestion renders s in the protocol ParseSuggestions reads.
func FormatSuggestion(s models.FixSuggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", fieldFile, s.FilePath)
	fmt.Fprintf(&b, "%s %d\n", fieldLine, s.Line)
	fmt.Fprintf(&b, "%s %s\n", fieldDescription, s.Description)
	fmt.Fprintf(&b, "%s %s\n", fieldOriginal, s.Original)
	fmt.Fprintf(&b, "%s %s\n", fieldReplacement, s.Replacement)
	fmt.Fprintf(&b, "%s %s\n", fieldConfidence, strconv.FormatFloat(s.Confidence, 'f', -1, 64))
	return b.String()
}

var confidenceWords = []struct {
	re    *regexp.Regexp
	score float64
}{
	{regexp.MustCompile(`\b(critical|must|definitely)\b`), 0.9},
	{regexp.MustCompile(`\b(likely|probably|should)\b`), 0.7},
	{regexp.MustCompile(`\b(might|could|consider)\b`), 0.5},
}

const defaultConfidence = 0.6

// Confidence uses explicit when it parses to a number in [0, 1], otherwise
// guesses from the wording of the description.
func Confidence(description, explicit string) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(explicit), 64); err == nil && v >= 0 && v <= 1 {
		return v
	}
	d := strings.ToLower(description)
	for _, w := range confidenceWords {
		if w.re.MatchString(d) {
			return w.score
		}
	}
	return defaultConfidence
}

// Ordered by precedence: the first matching category wins.
var categoryWords = []struct {
	re       *regexp.Regexp
	category models.Category
}{
	{regexp.MustCompile(`secur|vulnerab|inject|xss|csrf|sanitiz|password|secret|credential|unsafe|auth`), models.CategorySecurity},
	{regexp.MustCompile(`perform|slow|fast|optimi|efficien|memory|leak|complexity|cache|n\+1`), models.CategoryPerformance},
	{regexp.MustCompile(`style|naming|format|readab|convention|lint|pep ?8|indent|whitespace`), models.CategoryStyle},
	{regexp.MustCompile(`bug|error|fix|crash|incorrect|wrong|fail|exception|off-by-one|typo|missing|null|none`), models.CategoryBug},
}

// Categorize tags a suggestion from keywords in its description.
func Categorize(description string) models.Category {
	d := strings.ToLower(description)
	for _, c := range categoryWords {
		if c.re.MatchString(d) {
			return c.category
		}
	}
	return models.CategoryUnknown
}
