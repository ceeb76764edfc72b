package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cpro-iot/scaleship/pkg/frame"
	"github.com/cpro-iot/scaleship/pkg/log"
)

// ErrBrokerTimeout is returned when the broker did not acknowledge a
// connect or publish in time.
var ErrBrokerTimeout = errors.New("broker did not respond in time")

// disconnectQuiesce is how long Close waits for in-flight work, in ms.
const disconnectQuiesce = 250

// mqttClient is the subset of mqtt.Client used by MQTTPublisher.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes readings on MQTT topics.
type MQTTPublisher struct {
	client mqttClient
	opts   Options
	logger log.Logger
}

// DialMQTT connects to an MQTT broker, e.g. "tcp://host:1883". The client
// uses a clean session and reconnects automatically.
func DialMQTT(ctx context.Context, broker string, opts Options) (*MQTTPublisher, error) {
	opts = opts.withDefaults()
	if *opts.QoS > 2 {
		return nil, fmt.Errorf("mqtt qos %d: must be 0, 1 or 2", *opts.QoS)
	}
	logger := opts.Logger.With(log.String("broker", broker))

	co := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetConnectTimeout(opts.ConnectTimeout).
		SetMaxReconnectInterval(opts.ReconnectWait).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("broker connected", log.String("client_id", opts.ClientID))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("broker connection lost", log.Err(err))
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			logger.Info("broker reconnecting")
		})

	client := mqtt.NewClient(co)
	if err := waitToken(ctx, client.Connect(), opts.ConnectTimeout); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect mqtt %s: %w", broker, err)
	}
	return newMQTTPublisher(client, opts), nil
}

func newMQTTPublisher(client mqttClient, opts Options) *MQTTPublisher {
	opts = opts.withDefaults()
	return &MQTTPublisher{client: client, opts: opts, logger: opts.Logger}
}

// Publish sends rec to topic at the configured QoS and waits for the
// broker's acknowledgement.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, rec frame.Record) error {
	payload, err := Marshal(rec)
	if err != nil {
		return err
	}
	token := p.client.Publish(topic, *p.opts.QoS, false, payload)
	if err := waitToken(ctx, token, p.opts.PublishTimeout); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Debug("message published", log.String("topic", topic), log.Int("bytes", len(payload)))
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(disconnectQuiesce)
	return nil
}

// waitToken blocks until token completes, ctx is done or timeout expires.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrBrokerTimeout
		}
		return ctx.Err()
	}
}
