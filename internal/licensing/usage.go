package licensing

import "context"

// Kind names a metered operation.
type Kind string

const (
	KindReview  Kind = "review"
	KindTestGen Kind = "testgen"
	KindFix     Kind = "fix"

	kindFileLines Kind = "file_lines"
)

// Kinds lists the metered operations.
func Kinds() []Kind { return []Kind{KindReview, KindTestGen, KindFix} }

func (k Kind) limit(l Limits) int {
	switch k {
	case KindReview:
		return l.ReviewsPerMonth
	case KindTestGen:
		return l.TestGenPerMonth
	case KindFix:
		return l.FixPerMonth
	case kindFileLines:
		return l.MaxFileLines
	}
	return Unlimited
}

func (k Kind) label() string {
	switch k {
	case KindTestGen:
		return "test generation"
	case KindFix:
		return "fix suggestion"
	}
	return string(k)
}

func (k Kind) upgradeHint() string {
	if k == KindReview {
		return "Upgrade to Pro for more reviews."
	}
	return "Upgrade to Pro for more."
}

// Ledger is the narrow view the orchestrators need: gate an operation,
// then meter it once it succeeded.
type Ledger interface {
	CheckLimit(ctx context.Context, kind Kind) error
	RecordUsage(ctx context.Context, kind Kind) error
}

// Usage holds one month of counters.
type Usage struct {
	Month    string `json:"month"`
	Reviews  int    `json:"reviews"`
	TestGens int    `json:"testgens"`
	Fixes    int    `json:"fixes"`
}

// Count returns the counter for kind.
func (u Usage) Count(kind Kind) int {
	switch kind {
	case KindReview:
		return u.Reviews
	case KindTestGen:
		return u.TestGens
	case KindFix:
		return u.Fixes
	}
	return 0
}

func (u *Usage) set(kind Kind, n int) {
	switch kind {
	case KindReview:
		u.Reviews = n
	case KindTestGen:
		u.TestGens = n
	case KindFix:
		u.Fixes = n
	}
}

// Summary is the printable usage report for the current plan.
type Summary struct {
	Plan         Plan            `json:"plan"`
	Month        string          `json:"month"`
	Reviews      string          `json:"reviews"`
	TestGens     string          `json:"testgens"`
	Fixes        string          `json:"fixes"`
	MaxFileLines string          `json:"max_file_lines"`
	Features     map[string]bool `json:"features"`
}

func formatLimit(used, limit int) string {
	if limit == Unlimited {
		return itoa(used) + " / unlimited"
	}
	return itoa(used) + " / " + itoa(limit)
}
