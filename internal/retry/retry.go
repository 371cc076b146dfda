// Package retry wraps fallible synchronous calls (generation-provider
// requests and the like) with bounded exponential backoff. It is not
// used by the asynchronous job flows, which fail fast on dispatch and
// rely on the external worker's own retry behavior.
package retry

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// Config bounds a retried call. MaxRetries counts retries, not total
// attempts: MaxRetries=3 means at most 4 invocations.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	JitterMax  time.Duration
}

// DefaultConfig matches the tuning used for generation-provider calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		JitterMax:  250 * time.Millisecond,
	}
}

// Delay returns the backoff before retry attempt n (0-indexed):
// min(base*2^n + uniform[0,jitterMax), maxDelay).
func (c Config) Delay(attempt int) time.Duration {
	d := c.BaseDelay << uint(attempt)
	if c.JitterMax > 0 {
		d += time.Duration(rand.Int63n(int64(c.JitterMax)))
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do invokes fn until it succeeds, the retry budget is exhausted, or ctx
// is done. Intermediate errors are logged; only the last one is returned.
func Do[T any](ctx context.Context, op string, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}
		delay := cfg.Delay(attempt)
		log.Printf("[retry] %s attempt %d/%d failed: %v (next in %v)", op, attempt+1, cfg.MaxRetries+1, err, delay)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
