package transport

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/coachpo/tradernet/errs"
)

// RetryOption tunes Retry.
type RetryOption func(*retrySettings)

type retrySettings struct {
	maxTries   uint
	maxElapsed time.Duration
	initial    time.Duration
}

// WithMaxTries caps the number of attempts including the first one.
func WithMaxTries(n uint) RetryOption {
	return func(s *retrySettings) {
		if n > 0 {
			s.maxTries = n
		}
	}
}

// WithMaxElapsed bounds the total time spent retrying.
func WithMaxElapsed(d time.Duration) RetryOption {
	return func(s *retrySettings) {
		if d > 0 {
			s.maxElapsed = d
		}
	}
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) RetryOption {
	return func(s *retrySettings) {
		if d > 0 {
			s.initial = d
		}
	}
}

// Retry runs fn with exponential backoff. Only transport failures without a
// status or with a 5xx status are retried; every other error is returned as is.
// The client never calls Retry on its own.
func Retry[T any](ctx context.Context, fn func(context.Context) (T, error), opts ...RetryOption) (T, error) {
	settings := retrySettings{maxTries: 3, maxElapsed: time.Minute, initial: 500 * time.Millisecond}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = settings.initial

	operation := func() (T, error) {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		if !Retryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(settings.maxTries),
		backoff.WithMaxElapsedTime(settings.maxElapsed),
	)
}

// Retryable reports whether err is a transient transport failure.
func Retryable(err error) bool {
	var e *errs.E
	if !errors.As(err, &e) || e.Code != errs.CodeTransport {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return e.HTTP == 0 || e.HTTP >= 500
}
