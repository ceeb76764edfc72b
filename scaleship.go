// Package scaleship polls a scale terminal until the context is canceled.
// It is the blocking counterpart of pkg/scaleship for callers that do not
// need lifecycle control.
//
// Example usage:
//
//	cfg := scaleship.DefaultConfig()
//	cfg.Host = "192.0.2.10"
//	if err := scaleship.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
package scaleship

import (
	"context"

	agent "github.com/cpro-iot/scaleship/pkg/scaleship"
)

// Config holds the agent configuration.
type Config = agent.Config

// Option configures the agent.
type Option = agent.Option

// DefaultConfig returns a Config with default values. Host must be set.
func DefaultConfig() Config {
	return agent.DefaultConfig()
}

// Run polls the configured scale until ctx is canceled or a connect retry
// ceiling is exceeded. Cancellation is a clean shutdown and returns nil.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	a, err := agent.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	return a.Stop()
}
