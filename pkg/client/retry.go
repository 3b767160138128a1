package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// HTTPError carries a non-2xx server response through the retry policy.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
}

// ErrMalformedResponse marks a success reply whose body could not be
// decoded. The request already reached the server, so retrying cannot
// produce a different answer.
var ErrMalformedResponse = errors.New("malformed server response")

// RetryPolicy is an explicit backoff policy: attempts, base delay and a
// retryable-error predicate, instead of ad hoc retry closures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Retryable  func(error) bool
}

// DefaultRetryPolicy retries transient failures (5xx, 429, network errors)
// up to 3 times with capped exponential backoff. Client errors (4xx) fail
// immediately; cancellation is never retried.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Retryable:  isTransient,
	}
}

func isTransient(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= 500 || httpErr.Status == 429
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	// No HTTP status at all: network-level failure
	return true
}

// Do runs fn with the policy. The last error is returned once retries are
// exhausted; context cancellation aborts immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) || attempt == p.MaxRetries {
			return lastErr
		}

		if err := p.sleep(ctx, attempt); err != nil {
			return err
		}
	}

	return lastErr
}

func (p RetryPolicy) sleep(ctx context.Context, attempt int) error {
	delay := p.BaseDelay * time.Duration(1<<attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if delay > 0 {
		jitter := time.Duration(rand.Int63n(int64(delay/2) + 1))
		delay += jitter
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
