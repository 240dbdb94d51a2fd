// Package retry implements the two backoff policies wrapped around
// retryable store operations: exponential backoff with jitter for
// optimistic-lock and write conflicts, and bounded uniform jitter for
// deadlocks. Each policy retries exactly one error kind; everything
// else aborts on first sight.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/example/archon/internal/core/txn"
)

const (
	// DefaultMaxRetries bounds total invocations of the wrapped
	// operation for both policies.
	DefaultMaxRetries = 3
	// DefaultBaseDelay seeds the exponential conflict backoff.
	DefaultBaseDelay = 100 * time.Millisecond

	conflictJitter = 100 * time.Millisecond
	deadlockJitter = time.Second
)

// Policy holds the retry budget and backoff parameters. The zero value
// is not usable; construct with DefaultPolicy and adjust.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// DefaultPolicy returns the standard 3-attempt policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		sleep:      time.Sleep,
	}
}

func (p Policy) wait(d time.Duration) {
	if p.sleep != nil {
		p.sleep(d)
	} else {
		time.Sleep(d)
	}
}

// OnConflict invokes op until it succeeds, fails with a non-conflict
// error, or the budget is exhausted. Conflicts back off with
// baseDelay * 2^attempt plus up to 100ms of jitter so colliding writers
// spread out instead of re-colliding in lockstep. The wrapped operation
// must be safe to invoke repeatedly with identical inputs; after the
// last attempt the last conflict error is returned unchanged.
func OnConflict[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	return run(ctx, p, op, isConflict, func(p Policy, attempt int) time.Duration {
		return p.BaseDelay*(1<<attempt) + rand.N(conflictJitter)
	})
}

// OnDeadlock invokes op until it succeeds, fails with a non-deadlock
// error, or the budget is exhausted. Deadlocks are resolved by breaking
// timing symmetry, so the delay is pure uniform jitter in [0, 1s)
// rather than exponential spacing.
func OnDeadlock[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	return run(ctx, p, op, isDeadlock, func(Policy, int) time.Duration {
		return rand.N(deadlockJitter)
	})
}

func isConflict(err error) bool {
	return errors.Is(err, txn.ErrVersionConflict) || errors.Is(err, txn.ErrTxConflict)
}

func isDeadlock(err error) bool {
	return errors.Is(err, txn.ErrDeadlock)
}

func run[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), retryable func(error) bool, delay func(Policy, int) time.Duration) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < p.MaxRetries; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}
		if attempt < p.MaxRetries-1 {
			p.wait(delay(p, attempt))
		}
	}
	return zero, lastErr
}
