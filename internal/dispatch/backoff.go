package dispatch

import (
	"math/rand"
	"time"
)

// Backoff computes retry delays: exponential in the retry count, capped,
// with random jitter added to spread concurrent retries apart.
type Backoff struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// jitter returns a random fraction in [0, 1). Overridable in tests.
	jitter func() float64
}

// DefaultBackoff returns the production policy: 60s base, capped at 600s.
func DefaultBackoff() Backoff {
	return Backoff{
		BaseDelay: 60 * time.Second,
		MaxDelay:  600 * time.Second,
	}
}

// Delay returns the wait before retry number retryCount (0-based: the first
// retry waits BaseDelay plus jitter). The computed delay is
// min(MaxDelay, BaseDelay * 2^retryCount) and the jitter added on top is
// uniformly drawn from [0, delay).
func (b Backoff) Delay(retryCount int) time.Duration {
	if b.BaseDelay <= 0 {
		b.BaseDelay = 60 * time.Second
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = 600 * time.Second
	}

	delay := b.BaseDelay
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= b.MaxDelay {
			delay = b.MaxDelay
			break
		}
	}
	if delay > b.MaxDelay {
		delay = b.MaxDelay
	}

	jitterFn := b.jitter
	if jitterFn == nil {
		jitterFn = rand.Float64
	}

	return delay + time.Duration(jitterFn()*float64(delay))
}
