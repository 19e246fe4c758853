// Package retry provides the single retry-with-backoff utility shared by
// every external call site (recognition, formatting, analysis, translation,
// rasterization).
package retry

import (
	"context"
	"time"
)

// Do invokes fn up to attempts times, sleeping a fixed delay between
// attempts. It returns the first successful result, or the last error once
// the attempts are exhausted. Context cancellation is honored between
// attempts; an in-flight fn is never interrupted.
func Do[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
