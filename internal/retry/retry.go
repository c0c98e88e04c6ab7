// Package retry implements the short-backoff retry policy for
// transient container-tool invocations (§7: "retry transient
// container-tool invocations up to three times with short backoff").
// It is deliberately built on the standard library: the policy is a
// handful of lines around time.Sleep and nothing in the examined
// dependency corpus offers a retry helper narrow enough to be worth
// adopting over it.
package retry

import (
	"context"
	"time"
)

// Policy is a fixed number of attempts with linearly increasing
// backoff between them.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// Default is the §7 policy: three attempts, 200ms/400ms backoff.
func Default() Policy {
	return Policy{Attempts: 3, Backoff: 200 * time.Millisecond}
}

// Do runs fn up to p.Attempts times, sleeping p.Backoff*attempt
// between tries, and returns the last error if every attempt failed.
// It stops early if ctx is cancelled.
func Do(ctx context.Context, p Policy, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}
		select {
		case <-time.After(p.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
