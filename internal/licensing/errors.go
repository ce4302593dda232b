package licensing

import (
	"errors"
	"fmt"
)

var (
	// ErrUsageLimit is the sentinel behind every *LimitError.
	ErrUsageLimit = errors.New("usage limit reached")
	ErrInvalidKey = errors.New("invalid license key")
)

// LimitError reports an exhausted quota with a message fit for the user.
type LimitError struct {
	Kind  Kind
	Used  int
	Limit int
}

func (e *LimitError) Error() string {
	if e.Kind == kindFileLines {
		return fmt.Sprintf("File too large: %d lines (max: %d). Upgrade to Pro for larger files.", e.Used, e.Limit)
	}
	return fmt.Sprintf("Monthly %s limit reached: %d/%d. %s", e.Kind.label(), e.Used, e.Limit, e.Kind.upgradeHint())
}

func (e *LimitError) Unwrap() error { return ErrUsageLimit }
