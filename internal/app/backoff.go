package app

import (
	"context"
	"time"
)

// Default connection settings.
const (
	DefaultIOTimeout        = 5 * time.Second
	DefaultReconnectBackoff = 10 * time.Second
)

// fixedBackoff spaces connect attempts by a constant delay. A positive
// maxRetries bounds the retries that follow the first attempt; zero retries
// forever.
type fixedBackoff struct {
	delay      time.Duration
	maxRetries int
	attempts   int
}

// newFixedBackoff creates a backoff with the given delay and retry ceiling.
func newFixedBackoff(delay time.Duration, maxRetries int) *fixedBackoff {
	return &fixedBackoff{delay: delay, maxRetries: maxRetries}
}

// Next records an attempt and returns its 1-based number.
func (b *fixedBackoff) Next() int {
	b.attempts++
	return b.attempts
}

// Exhausted reports whether the first attempt and all maxRetries retries
// have been used.
func (b *fixedBackoff) Exhausted() bool {
	return b.maxRetries > 0 && b.attempts > b.maxRetries
}

// Wait sleeps for the delay or until ctx is done.
func (b *fixedBackoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Delay returns the constant delay.
func (b *fixedBackoff) Delay() time.Duration {
	return b.delay
}
