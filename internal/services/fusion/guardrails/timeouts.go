// Package guardrails holds the time budgets and the day lease for fusion runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is the budget bundle for one participant-day unit
// zero disables that level
type Timeouts struct {
	// Unit caps the whole unit including every read
	Unit time.Duration
	// Read caps one stream read
	Read time.Duration
}

// ForUnit returns a context bounded by the unit budget without extending the parent
func ForUnit(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Unit)
}

// ForRead returns a context for one read bounded by Read and the unit remainder
func ForRead(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Read)
}

// Remaining is the time left on ctx, zero when there is no deadline or it passed
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
