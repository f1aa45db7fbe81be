// Package retry provides a single retry/backoff policy shared by every
// broker call site.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes a bounded retry loop with exponential backoff. The zero
// value is not usable; construct with the fields set or use a preset.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration // cap on a single backoff sleep; 0 means no cap
	Jitter      time.Duration // up to this much is added to each sleep

	// Retryable reports whether an error is worth another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool
}

// Transport is the bounded budget for transient network failures.
var Transport = Policy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
	Jitter:      250 * time.Millisecond,
}

// Do calls fn until it succeeds, a non-retryable error occurs, attempts are
// exhausted, or the context is cancelled. It returns nil on the first
// success, otherwise the last error. Sleeps between attempts respect ctx.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var err error
	delay := p.BaseDelay

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		// Don't sleep after the last failed attempt.
		if attempt < p.MaxAttempts-1 {
			sleep := delay
			if p.MaxDelay > 0 && sleep > p.MaxDelay {
				sleep = p.MaxDelay
			}
			if p.Jitter > 0 {
				sleep += time.Duration(rand.Int63n(int64(p.Jitter)))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
			delay *= 2
		}
	}

	return err
}
