package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/pkg/publish"
	"github.com/cpro-iot/scaleship/pkg/scaleship"
)

// Config holds CLI configuration for scaleship.
type Config struct {
	Host string
	Port int

	Interval         time.Duration
	IOTimeout        time.Duration
	ReconnectBackoff time.Duration
	MaxRetries       int

	Protocol string
	// TerminatorBytes is nil unless set; zero means the scale sends none.
	TerminatorBytes *int

	Broker string
	Topic  string

	LogLevel    string
	MetricsAddr string

	WatchConfig        bool
	ExitOnConfigChange bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:             scaleship.DefaultPort,
		Interval:         scaleship.DefaultInterval,
		IOTimeout:        scaleship.DefaultIOTimeout,
		ReconnectBackoff: scaleship.DefaultReconnectBackoff,
		Protocol:         scaleship.DefaultProtocol,
		LogLevel:         "info",
	}
}

// Validate checks the CLI-only settings and the agent settings.
func (c *Config) Validate() error {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", domain.ErrInvalidConfig)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Broker != "" {
		if _, _, err := publish.ParseBroker(c.Broker); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
	}
	lib := c.Library()
	lib.SetDefaults()
	return lib.Validate()
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return lvl, nil
}

// Library converts the CLI configuration to the agent configuration.
func (c *Config) Library() scaleship.Config {
	return scaleship.Config{
		Host:             c.Host,
		Port:             c.Port,
		Interval:         c.Interval,
		IOTimeout:        c.IOTimeout,
		ReconnectBackoff: c.ReconnectBackoff,
		MaxRetries:       c.MaxRetries,
		Protocol:         c.Protocol,
		TerminatorBytes:  c.TerminatorBytes,
		Topic:            c.Topic,
	}
}

// ParseInterval accepts a Go duration ("1.5s") or a bare number of
// milliseconds ("1500").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// IntervalValue is a pflag.Value parsed with ParseInterval.
type IntervalValue struct {
	dst *time.Duration
}

// NewIntervalValue binds an IntervalValue to dst.
func NewIntervalValue(dst *time.Duration) *IntervalValue {
	return &IntervalValue{dst: dst}
}

func (v *IntervalValue) String() string {
	if v.dst == nil {
		return "0s"
	}
	return v.dst.String()
}

func (v *IntervalValue) Set(s string) error {
	d, err := ParseInterval(s)
	if err != nil {
		return err
	}
	*v.dst = d
	return nil
}

func (v *IntervalValue) Type() string { return "duration" }

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an optional int, zero included, if flag not changed.
func (s *configSetter) setIntPtr(flag string, value *int, dst **int) {
	if value == nil || s.changed[flag] {
		return
	}
	v := *value
	*dst = &v
}

// setIntPtrFromString parses an optional int, zero included.
func (s *configSetter) setIntPtrFromString(flag, value string, dst **int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = &i
	return nil
}

// setDuration parses and sets a duration if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setInterval is setDuration with ParseInterval.
func (s *configSetter) setInterval(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := ParseInterval(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
