// Package guardrails holds time budgets and run leases for extract jobs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for one job run
// zero values mean no extra timeout at that level
type Timeouts struct {
	// Job is the overall budget for map, shuffle, reduce and sink writes
	Job time.Duration

	// Sink caps one batch write to one sink, retries included
	Sink time.Duration
}

// WithJob returns a context limited by the job budget without extending any parent deadline
func WithJob(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Job)
}

// ForSink returns a sub context for one sink write bounded by Sink and the remaining parent budget
func ForSink(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Sink)
}

// Remaining returns the time until the deadline on ctx, zero when none is set or it already passed
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout picks the tighter of d and the parent remainder; it never extends the parent
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
