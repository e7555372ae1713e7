package app

import (
	"math/rand"
	"time"
)

// DefaultBackoffMax caps the retry delay when the remote asks for backoff but
// no RetryBackoffMax is configured.
const DefaultBackoffMax = 60 * time.Second

// backoffJitter is the relative jitter applied to each delay (±20%).
const backoffJitter = 0.2

// backoff implements exponential backoff with jitter.
// It computes delays; the scheduler's timer does the waiting.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	rand    func() float64
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
		rand:    rand.Float64,
	}
}

// Next returns the current delay with jitter and doubles it for next time.
func (b *backoff) Next() time.Duration {
	jitter := float64(b.current) * backoffJitter * (b.rand()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *backoff) Current() time.Duration {
	return b.current
}
