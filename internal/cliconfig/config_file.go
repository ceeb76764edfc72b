package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	Interval           string `toml:"interval"`
	IOTimeout          string `toml:"io_timeout"`
	ReconnectBackoff   string `toml:"reconnect_backoff"`
	MaxRetries         int    `toml:"max_retries"`
	Protocol           string `toml:"protocol"`
	TerminatorBytes    *int   `toml:"terminator_bytes"`
	Broker             string `toml:"broker"`
	Topic              string `toml:"topic"`
	LogLevel           string `toml:"log_level"`
	MetricsAddr        string `toml:"metrics_addr"`
	WatchConfig        *bool  `toml:"watch_config"`
	ExitOnConfigChange *bool  `toml:"exit_on_config_change"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.scaleship/config.toml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".scaleship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	s.setString("protocol", fc.Protocol, &cfg.Protocol)
	s.setString("broker", fc.Broker, &cfg.Broker)
	s.setString("topic", fc.Topic, &cfg.Topic)
	s.setString("log", fc.LogLevel, &cfg.LogLevel)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setInterval("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("io-timeout", fc.IOTimeout, &cfg.IOTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-backoff", fc.ReconnectBackoff, &cfg.ReconnectBackoff); err != nil {
		return err
	}

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)
	s.setIntPtr("terminator-bytes", fc.TerminatorBytes, &cfg.TerminatorBytes)

	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)
	s.setBool("exit-on-config-change", fc.ExitOnConfigChange, &cfg.ExitOnConfigChange)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
