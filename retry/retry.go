package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"structgen/logging"
)

// ExhaustedError is returned when every attempt failed with a retryable
// error. It carries the failure of the final attempt.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

// Unwrap exposes the final attempt's error.
func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Classifier decides whether a failure is worth retrying. Fatal failures
// abort immediately without consuming further attempts.
type Classifier func(err error) bool

// IsTransient is the default Classifier. It retries errors that declare
// themselves retryable (Retryable() bool, e.g. *model.TransportError) and
// attempt timeouts; everything else is fatal.
func IsTransient(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Policy is a bounded-retry executor with exponential backoff. The zero
// value is not usable; construct with NewPolicy.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	classify    Classifier
	logger      logging.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// PolicyOptions configure a Policy.
type PolicyOptions struct {
	// MaxAttempts bounds the total number of attempts (not just retries).
	MaxAttempts int
	// BaseDelay seeds the exponential backoff: the delay before attempt i+1
	// after a retryable failure of attempt i (0-indexed) is BaseDelay * 2^i.
	BaseDelay time.Duration
	// Timeout bounds each individual attempt. Exceeding it counts as a
	// retryable transport failure. Zero disables the per-attempt bound.
	Timeout time.Duration
	// Classify overrides the default retryable/fatal decision.
	Classify Classifier
	// Logger receives per-attempt debug logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewPolicy constructs a Policy.
func NewPolicy(optFns ...func(o *PolicyOptions)) *Policy {
	opts := PolicyOptions{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Classify:    IsTransient,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Policy{
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		timeout:     opts.Timeout,
		classify:    opts.Classify,
		logger:      opts.Logger,
		sleep:       sleepCtx,
	}
}

// Execute runs op under the policy. Fatal failures are returned as-is on
// the first occurrence; retryable failures are retried with exponential
// backoff until the attempt budget is spent, then wrapped in
// *ExhaustedError. Cancellation is honored between attempts: an in-flight
// attempt is allowed to finish or time out, and no further attempt or
// backoff delay is started afterwards.
func Execute[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := runAttempt(ctx, p.timeout, op)
		if err == nil {
			return result, nil
		}
		if !p.classify(err) {
			p.logger.Debug("retry.fatal", "attempt", attempt, "error", err.Error())
			return zero, err
		}
		lastErr = err
		p.logger.Debug("retry.attempt_failed", "attempt", attempt, "error", err.Error())

		// No delay after the final attempt.
		if attempt == p.maxAttempts-1 {
			break
		}
		delay := p.baseDelay << uint(attempt)
		if err := p.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: p.maxAttempts, LastErr: lastErr}
}

// runAttempt runs op once under the per-attempt timeout.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
