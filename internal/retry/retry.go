// Package retry provides an explicit retry policy applied at repository and
// upstream call sites.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	jitterPercent    = 25
)

// Policy describes how a boundary call is retried. The zero value performs a
// single attempt and retries nothing.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Timeout bounds each attempt. Zero leaves the caller's context as is.
	Timeout time.Duration
	// Retryable reports whether an error is transient. Nil means never retry.
	Retryable func(error) bool
}

// WithRetryable returns a copy of the policy using the given predicate.
func (p Policy) WithRetryable(fn func(error) bool) Policy {
	p.Retryable = fn
	return p
}

// WithTimeout returns a copy of the policy with a per-attempt timeout.
func (p Policy) WithTimeout(d time.Duration) Policy {
	p.Timeout = d
	return p
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. The last error is returned as fn produced it.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}

		// The caller's own cancellation is final.
		if ctx.Err() != nil {
			return err
		}

		if p.Retryable != nil && p.Retryable(err) {
			return goretry.RetryableError(err)
		}

		return err
	})
}

// backoff builds a fresh backoff per call, go-retry backoffs are stateful.
func (p Policy) backoff() goretry.Backoff { //nolint:ireturn // go-retry composes backoffs as interfaces
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}

	b := goretry.NewExponential(base)
	b = goretry.WithJitterPercent(jitterPercent, b)
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}

	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}

	return goretry.WithMaxRetries(retries, b)
}

// Transient reports whether err is a timeout. Packages combine it with their
// own classification to build a Retryable predicate.
func Transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeout interface{ Timeout() bool }

	return errors.As(err, &timeout) && timeout.Timeout()
}

// Any combines predicates, an error is retryable if any of them says so.
func Any(preds ...func(error) bool) func(error) bool {
	return func(err error) bool {
		for _, pred := range preds {
			if pred(err) {
				return true
			}
		}
		return false
	}
}
