package scaleship

import (
	"context"

	"github.com/cpro-iot/scaleship/pkg/log"
)

// Plugin extends an agent with functionality that runs beside the poll
// loop. Plugins are initialized in registration order on Start and shut
// down in reverse order on Stop.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. ctx is canceled when the agent stops.
	// An error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// PluginConfig describes the agent to plugins.
type PluginConfig struct {
	Target   string
	Topic    string
	Protocol string
	Logger   log.Logger
}
