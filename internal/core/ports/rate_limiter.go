package ports

import (
	"context"
	"math"
	"time"
)

// ActionClass names an admission-control policy.
type ActionClass string

const (
	ActionMessaging ActionClass = "messaging"
	ActionDispute   ActionClass = "dispute"
)

// RateLimitDecision is the outcome of a single admission check.
type RateLimitDecision struct {
	Allowed bool
	Limit   int
	// Remaining is the number of further actions admitted in the current window (>=0).
	Remaining int
	// ResetAt is when the current window ends.
	ResetAt time.Time
	// RetryAfter is zero when Allowed.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d RateLimitDecision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// RateLimiter admits or rejects actions per (action class, subject).
// Implementations MUST be safe for concurrent use.
type RateLimiter interface {
	Check(ctx context.Context, action ActionClass, subjectID string) (RateLimitDecision, error)
}
