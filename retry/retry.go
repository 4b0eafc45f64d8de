// Package retry provides the exponential-backoff combinator shared by the
// embedder and LLM client: a fallible operation is retried a bounded number
// of times with a growing delay, and any error the operation marks as
// Permanent is surfaced immediately instead of being retried.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a retry combinator: at most MaxAttempts calls to the
// operation, with exponential backoff starting at BaseDelay and never
// exceeding Cap between attempts. PerAttemptTimeout, when non-zero, bounds
// each individual attempt (§5's per-attempt deadline); exceeding it counts
// as a retryable failure for that attempt rather than failing the whole
// call.
type Policy struct {
	MaxAttempts       uint
	BaseDelay         time.Duration
	Cap               time.Duration
	PerAttemptTimeout time.Duration
}

// DefaultPolicy matches the retry policy named throughout the spec for both
// the embedder and the LLM client: 3 attempts, base 4s, cap 10s, and the
// default 30s per-attempt deadline for the remote call itself.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 4 * time.Second, Cap: 10 * time.Second, PerAttemptTimeout: 30 * time.Second}
}

// Permanent marks err as non-retryable. The combinator surfaces it
// immediately instead of continuing to retry; used for 4xx-class responses
// that retrying cannot fix.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn under the given policy. fn receives the ctx passed to Do, or a
// child of it bounded by PerAttemptTimeout when that is set; a deadline on
// ctx bounds the whole retry loop, not just a single attempt.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.BaseDelay
	b.MaxInterval = policy.Cap
	b.Multiplier = 2
	b.RandomizationFactor = 0

	maxTries := policy.MaxAttempts
	if maxTries == 0 {
		maxTries = 3
	}

	return backoff.Retry(ctx, func() (T, error) {
		attemptCtx := ctx
		if policy.PerAttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, policy.PerAttemptTimeout)
			defer cancel()
		}
		return fn(attemptCtx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
}
