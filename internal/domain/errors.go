package domain

import "errors"

// Domain errors represent error conditions of the embeddable agent.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("scaleship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("scaleship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("scaleship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("scaleship: invalid configuration")

	// ErrRetriesExhausted is returned when a configured connect retry ceiling is reached.
	ErrRetriesExhausted = errors.New("scaleship: connect retries exhausted")
)
