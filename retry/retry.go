// Package retry runs an operation with exponential backoff until it
// succeeds, fails permanently, or the context ends.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Sentinel errors.
var (
	// ErrNotRetryable stops the loop after a permanent failure.
	ErrNotRetryable = errors.New("retry: error is not retryable")

	// ErrExhausted is returned when every attempt failed.
	ErrExhausted = errors.New("retry: attempts exhausted")
)

// Config controls the retry loop. The zero value retries 3 times
// starting at 50ms with a 2x multiplier, capped at 5s.
type Config struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the delay before the second try.
	Backoff time.Duration
	// MaxBackoff caps the delay between tries.
	MaxBackoff time.Duration
	// Multiplier grows the delay after each try.
	Multiplier float64
	// Jitter randomizes each delay by up to this fraction (0 to 1).
	Jitter float64
	// Classify decides whether an error is worth another try.
	// Nil means Retryable.
	Classify func(error) bool
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 50 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		c.Jitter = 0
	}
	if c.Classify == nil {
		c.Classify = Retryable
	}
	return c
}

func (c Config) delay(attempt int) time.Duration {
	d := float64(c.Backoff) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	if c.Jitter > 0 {
		span := d * c.Jitter
		d = d - span + rand.Float64()*2*span
	}
	return time.Duration(d)
}

// Error reports a failed retry loop.
type Error struct {
	// Cause is the error from the last attempt.
	Cause error
	// Attempts is the number of tries made.
	Attempts int
	// Reason is ErrExhausted, ErrNotRetryable, or a context error.
	Reason error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts (%v): %v", e.Attempts, e.Reason, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	return errors.Is(e.Reason, target) || errors.Is(e.Cause, target)
}

// Do runs fn until it succeeds or the loop gives up.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return &Error{Cause: lastErr, Attempts: attempt, Reason: err}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !cfg.Classify(lastErr) {
			return &Error{Cause: lastErr, Attempts: attempt + 1, Reason: ErrNotRetryable}
		}
		if attempt == cfg.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return &Error{Cause: lastErr, Attempts: attempt + 1, Reason: ctx.Err()}
		case <-time.After(cfg.delay(attempt)):
		}
	}
	return &Error{Cause: lastErr, Attempts: cfg.Attempts, Reason: ErrExhausted}
}

// DoValue runs fn until it succeeds and returns its result.
func DoValue[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

// Retryable is the default error classifier. Errors carrying a
// Retryable() bool method decide for themselves; anything else is
// treated as transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotRetryable) {
		return false
	}
	var marked interface{ Retryable() bool }
	if errors.As(err, &marked) {
		return marked.Retryable()
	}
	return true
}

// MarkPermanent wraps err so the default classifier stops retrying.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return markedError{cause: err, retryable: false}
}

// MarkTransient wraps err so the default classifier keeps retrying.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return markedError{cause: err, retryable: true}
}

type markedError struct {
	cause     error
	retryable bool
}

func (e markedError) Error() string   { return e.cause.Error() }
func (e markedError) Unwrap() error   { return e.cause }
func (e markedError) Retryable() bool { return e.retryable }
