package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts is the default number of attempts before giving up.
	DefaultMaxAttempts = 3

	// DefaultInitialDelay is the default delay before the first retry.
	DefaultInitialDelay = 1 * time.Second

	// DefaultBackoffFactor is the default multiplier applied to the delay
	// after each attempt.
	DefaultBackoffFactor = 2.0

	// DefaultMaxDelay caps the delay between attempts.
	DefaultMaxDelay = 30 * time.Second
)

// Retrier retries an operation with exponential backoff and jitter.
//
// Only errors classified as retryable by Retryable are attempted again;
// everything else is returned immediately. When a failed attempt carries
// a server-suggested delay (see RetryAfterHint), that delay replaces the
// computed backoff for the next attempt.
type Retrier struct {
	// OnRetry, if set, is called before each retry sleep with the attempt
	// number that just failed, the sleep duration, and the error.
	OnRetry func(attempt int, delay time.Duration, err error)

	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration

	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
}

// NewRetrier creates a Retrier with the default backoff schedule:
// 3 attempts, 1s initial delay, doubling each attempt, capped at 30s.
func NewRetrier() *Retrier {
	return &Retrier{
		MaxAttempts:   DefaultMaxAttempts,
		InitialDelay:  DefaultInitialDelay,
		BackoffFactor: DefaultBackoffFactor,
		MaxDelay:      DefaultMaxDelay,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts
// the attempt budget, or the context is canceled.
//
// The delay before each retry is the current backoff multiplied by a
// random factor in [0.5, 1.5), so concurrent callers do not retry in
// lockstep.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	delay := r.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == r.MaxAttempts {
			break
		}

		wait := jitter(delay)
		if hint := RetryAfterHint(lastErr); hint > 0 {
			wait = hint
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, wait, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * r.BackoffFactor)
		if delay > r.MaxDelay {
			delay = r.MaxDelay
		}
	}

	// Record how many retries were burned so callers can report it.
	var comm *CommunicationError
	if errors.As(lastErr, &comm) {
		comm.RetryCount = r.MaxAttempts - 1
	}
	return lastErr
}

func jitter(delay time.Duration) time.Duration {
	return time.Duration(float64(delay) * (0.5 + rand.Float64()))
}
