package publish

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/cpro-iot/scaleship/pkg/frame"
	"github.com/cpro-iot/scaleship/pkg/log"
)

// NATSPublisher publishes readings on NATS subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	opts   Options
	logger log.Logger
}

// DialNATS connects to a NATS server. The connection reconnects forever
// once established.
func DialNATS(url string, opts Options) (*NATSPublisher, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.With(log.String("broker", url))

	nc, err := nats.Connect(url,
		nats.Name(opts.ClientID),
		nats.Timeout(opts.ConnectTimeout),
		nats.PingInterval(opts.KeepAlive),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("broker disconnected", log.Err(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("broker reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("broker error", log.Err(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	logger.Info("broker connected", log.String("client_id", opts.ClientID))
	return NewNATSPublisher(nc, opts), nil
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(nc *nats.Conn, opts Options) *NATSPublisher {
	opts = opts.withDefaults()
	return &NATSPublisher{nc: nc, opts: opts, logger: opts.Logger}
}

// Publish sends rec to subject topic and waits for the server to
// acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, rec frame.Record) error {
	payload, err := Marshal(rec)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.PublishTimeout)
	defer cancel()
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", topic, err)
	}
	p.logger.Debug("message published", log.String("topic", topic), log.Int("bytes", len(payload)))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
