package push

import "time"

// backoff spaces out reconnection attempts, doubling the delay up to a cap.
type backoff struct {
	current  time.Duration
	initial  time.Duration
	maxDelay time.Duration
}

func newBackoff(initial, maxDelay time.Duration) *backoff {
	return &backoff{
		current:  initial,
		initial:  initial,
		maxDelay: maxDelay,
	}
}

// Next returns the current delay and advances to the next value.
func (b *backoff) Next() time.Duration {
	current := b.current
	b.current = min(2*b.current, b.maxDelay)
	return current
}

// Reset returns the backoff to the initial delay.
func (b *backoff) Reset() {
	b.current = b.initial
}
