package publish

import (
	"context"
	"time"

	"github.com/cpro-iot/scaleship/pkg/frame"
	"github.com/cpro-iot/scaleship/pkg/log"
)

// Publisher forwards readings to a broker. Implementations are safe for
// concurrent use.
type Publisher interface {
	// Publish sends one reading to topic. It returns once the broker
	// accepted the message, ctx is done or the publish timeout expired.
	Publish(ctx context.Context, topic string, rec frame.Record) error

	// Close flushes pending messages and disconnects.
	Close() error
}

// Default broker settings.
const (
	DefaultConnectTimeout = 25 * time.Second
	DefaultKeepAlive      = 30 * time.Second
	DefaultReconnectWait  = 10 * time.Second
	DefaultPublishTimeout = 10 * time.Second

	// DefaultQoS delivers MQTT messages at least once.
	DefaultQoS byte = 1
)

// Options configures a broker connection. Zero values select the defaults.
type Options struct {
	Logger log.Logger

	// ClientID identifies the connection to the broker. Defaults to
	// "scaleship-<uuid>".
	ClientID string

	ConnectTimeout time.Duration
	KeepAlive      time.Duration
	ReconnectWait  time.Duration
	PublishTimeout time.Duration

	// QoS is the MQTT quality of service, nil selects DefaultQoS. Use
	// QoSLevel to pick one. Ignored by NATS.
	QoS *byte
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.NewNoopLogger()
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = DefaultKeepAlive
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = DefaultReconnectWait
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = DefaultPublishTimeout
	}
	if o.QoS == nil {
		o.QoS = QoSLevel(DefaultQoS)
	}
	if o.ClientID == "" {
		o.ClientID = newClientID()
	}
	return o
}

// QoSLevel returns q for Options.QoS.
func QoSLevel(q byte) *byte {
	return &q
}
