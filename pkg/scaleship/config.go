package scaleship

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cpro-iot/scaleship/internal/app"
	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/pkg/frame"
)

// Default configuration values.
const (
	DefaultPort             = 1234
	DefaultInterval         = app.DefaultInterval
	DefaultIOTimeout        = app.DefaultIOTimeout
	DefaultReconnectBackoff = app.DefaultReconnectBackoff
	DefaultProtocol         = "v64"

	// maxTerminatorBytes bounds TerminatorBytes to catch typos.
	maxTerminatorBytes = 16
)

// Config holds the settings of one scale agent.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// Host is the scale terminal's host name or IP address. Required.
	Host string

	// Port is the terminal's TCP port.
	Port int

	// Interval is slept before every poll request.
	Interval time.Duration

	// IOTimeout bounds every dial, write and read.
	IOTimeout time.Duration

	// ReconnectBackoff is the constant delay between failed dial attempts.
	ReconnectBackoff time.Duration

	// MaxRetries stops the agent once a failed dial has been retried that
	// many times in a row. Zero retries forever.
	MaxRetries int

	// Protocol names the frame layout, "v64" or "v63".
	Protocol string

	// TerminatorBytes overrides the number of bytes drained after every
	// frame. Nil keeps the protocol default; zero drains nothing.
	TerminatorBytes *int

	// Topic receives published readings. Defaults to Target().
	Topic string
}

// DefaultConfig returns a Config with default values. Host must be set.
func DefaultConfig() Config {
	return Config{
		Port:             DefaultPort,
		Interval:         DefaultInterval,
		IOTimeout:        DefaultIOTimeout,
		ReconnectBackoff: DefaultReconnectBackoff,
		Protocol:         DefaultProtocol,
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	c.Host = strings.TrimSpace(c.Host)
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = DefaultIOTimeout
	}
	if c.ReconnectBackoff == 0 {
		c.ReconnectBackoff = DefaultReconnectBackoff
	}
	if c.Protocol == "" {
		c.Protocol = DefaultProtocol
	}
	if c.Topic == "" {
		c.Topic = c.Target()
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", domain.ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidConfig, c.Port)
	}
	if c.Interval < 0 || c.IOTimeout < 0 || c.ReconnectBackoff < 0 {
		return fmt.Errorf("%w: durations must not be negative", domain.ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", domain.ErrInvalidConfig)
	}
	if n := c.TerminatorBytes; n != nil && (*n < 0 || *n > maxTerminatorBytes) {
		return fmt.Errorf("%w: terminator bytes must be between 0 and %d", domain.ErrInvalidConfig, maxTerminatorBytes)
	}
	if _, err := c.FrameProtocol(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

// Target returns the scale address as host:port.
func (c Config) Target() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// FrameProtocol resolves Protocol and applies the terminator override.
func (c Config) FrameProtocol() (frame.Protocol, error) {
	p, err := frame.ProtocolByName(c.Protocol)
	if err != nil {
		return frame.Protocol{}, err
	}
	if c.TerminatorBytes != nil {
		p = p.WithTerminatorLen(*c.TerminatorBytes)
	}
	return p, nil
}
