package analyzer

import (
	"regexp"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// lineRule is one entry of a line-oriented pattern table. A rule fires
// on every line its predicate accepts.
type lineRule struct {
	pattern *regexp.Regexp
	// unless suppresses the rule on lines it matches.
	unless *regexp.Regexp
	// match, when set, replaces pattern as the predicate.
	match      func(line string) bool
	level      models.Level
	message    string
	suggestion string
}

func (r lineRule) fires(line string) bool {
	if r.match != nil {
		if !r.match(line) {
			return false
		}
	} else if !r.pattern.MatchString(line) {
		return false
	}
	return r.unless == nil || !r.unless.MatchString(line)
}

// scanLines applies rules to each trimmed line of code in order. Issues
// are ordered by line, then by rule table position.
func scanLines(code string, rules []lineRule) []models.Issue {
	var issues []models.Issue
	for i, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		for _, r := range rules {
			if r.fires(line) {
				issues = append(issues, models.Issue{
					Level:      r.level,
					Line:       i + 1,
					Message:    r.message,
					Suggestion: r.suggestion,
				})
			}
		}
	}
	return issues
}

// todoPattern is shared by every language's rule table.
var todoPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|XXX)\b`)

var todoRule = lineRule{
	pattern:    todoPattern,
	level:      models.LevelInfo,
	message:    "TODO/FIXME comment found",
	suggestion: "Address the TODO/FIXME before merging",
}

// uniqueMatches returns capture group 1 of every match of re in code,
// de-duplicated, in first-seen order.
func uniqueMatches(re *regexp.Regexp, code string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(code, -1) {
		if len(m) < 2 || m[1] == "" || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}

func dedupe(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
