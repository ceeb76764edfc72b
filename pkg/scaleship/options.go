package scaleship

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cpro-iot/scaleship/internal/ports"
	"github.com/cpro-iot/scaleship/pkg/log"
)

// Publisher forwards readings to a broker. Every publish.Publisher
// satisfies it.
type Publisher = ports.Publisher

// Dialer opens TCP connections to the scale. *net.Dialer satisfies it.
type Dialer = ports.Dialer

// Option configures optional behavior of an agent.
type Option func(*options)

type options struct {
	logger       log.Logger
	publisher    Publisher
	dialer       Dialer
	eventHandler EventHandler
	plugins      []Plugin
	registerer   prometheus.Registerer
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPublisher forwards every reading to p. Without it readings are
// only logged.
func WithPublisher(p Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithDialer replaces the TCP dialer, e.g. to route through a proxy.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithEventHandler sets a handler for agent events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the agent starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetrics registers the agent's Prometheus metrics on reg. New panics if
// reg already holds them.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
