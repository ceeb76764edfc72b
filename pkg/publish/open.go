package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cpro-iot/scaleship/internal/domain"
)

// ErrUnsupportedScheme is returned for broker URLs naming an unknown transport.
var ErrUnsupportedScheme = errors.New("unsupported broker scheme")

// Broker kinds.
const (
	KindNATS = "nats"
	KindMQTT = "mqtt"
)

// ParseBroker resolves a broker address to its kind and the URL the client
// library expects. A bare host:port is MQTT over tcp.
func ParseBroker(raw string) (kind, brokerURL string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("empty broker address")
	}
	if !strings.Contains(raw, "://") {
		raw = "tcp://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse broker %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("broker %q has no host", raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "nats", "tls":
		return KindNATS, u.String(), nil
	case "mqtt":
		u.Scheme = "tcp"
		return KindMQTT, u.String(), nil
	case "tcp", "ssl", "ws", "wss":
		return KindMQTT, u.String(), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Open connects to the broker named by rawURL. Every failure is a config
// fault: the agent cannot start without the broker it was told to use.
func Open(ctx context.Context, rawURL string, opts Options) (Publisher, error) {
	kind, brokerURL, err := ParseBroker(rawURL)
	if err != nil {
		return nil, domain.NewFault(domain.ConfigFault, "broker", err)
	}

	var pub Publisher
	switch kind {
	case KindNATS:
		pub, err = DialNATS(brokerURL, opts)
	default:
		pub, err = DialMQTT(ctx, brokerURL, opts)
	}
	if err != nil {
		return nil, domain.NewFault(domain.ConfigFault, "broker", err)
	}
	return pub, nil
}
