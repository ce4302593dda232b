package format

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/devbuddy-ai/devbuddy/models"
)

// JSON renders machine-readable documents tagged with tool, type and
// generation time.
type JSON struct {
	Now func() time.Time
}

type envelope struct {
	Tool        string `json:"tool"`
	Type        string `json:"type"`
	GeneratedAt string `json:"generated_at"`
}

type reviewDoc struct {
	envelope
	FilesReviewed int                    `json:"files_reviewed"`
	Results       []*models.ReviewResult `json:"results"`
	Summary       map[models.Level]int   `json:"summary"`
}

type testGenDoc struct {
	envelope
	*models.GenerationResult
}

type fixDoc struct {
	envelope
	SuggestionCount int `json:"suggestion_count"`
	*models.FixResult
}

func (j *JSON) envelope(kind string) envelope {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	return envelope{Tool: ToolName, Type: kind, GeneratedAt: now().Format(time.RFC3339)}
}

func (j *JSON) Review(results []*models.ReviewResult) string {
	if results == nil {
		results = []*models.ReviewResult{}
	}
	summary := make(map[models.Level]int, len(models.Levels))
	for _, l := range models.Levels {
		summary[l] = 0
	}
	for l, n := range totals(results) {
		summary[l] = n
	}
	return encode(reviewDoc{
		envelope:      j.envelope("code_review"),
		FilesReviewed: len(results),
		Results:       results,
		Summary:       summary,
	})
}

func (j *JSON) TestGen(r *models.GenerationResult) string {
	return encode(testGenDoc{envelope: j.envelope("test_generation"), GenerationResult: r})
}

func (j *JSON) Fix(r *models.FixResult) string {
	return encode(fixDoc{
		envelope:        j.envelope("fix_suggestions"),
		SuggestionCount: len(r.Suggestions),
		FixResult:       r,
	})
}

func encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return `{"error": ` + quote(err.Error()) + `}`
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
