package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (SCALESHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv("SCALESHIP_HOST"), &cfg.Host)
	s.setString("protocol", os.Getenv("SCALESHIP_PROTOCOL"), &cfg.Protocol)
	s.setString("broker", os.Getenv("SCALESHIP_BROKER"), &cfg.Broker)
	s.setString("topic", os.Getenv("SCALESHIP_TOPIC"), &cfg.Topic)
	s.setString("log", os.Getenv("SCALESHIP_LOG"), &cfg.LogLevel)
	s.setString("metrics-addr", os.Getenv("SCALESHIP_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setInterval("interval", os.Getenv("SCALESHIP_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("io-timeout", os.Getenv("SCALESHIP_IO_TIMEOUT"), &cfg.IOTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-backoff", os.Getenv("SCALESHIP_RECONNECT_BACKOFF"), &cfg.ReconnectBackoff); err != nil {
		return err
	}

	if err := s.setIntFromString("port", os.Getenv("SCALESHIP_PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("max-retries", os.Getenv("SCALESHIP_MAX_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}
	if err := s.setIntPtrFromString("terminator-bytes", os.Getenv("SCALESHIP_TERMINATOR_BYTES"), &cfg.TerminatorBytes); err != nil {
		return err
	}

	s.setBoolFromString("watch-config", os.Getenv("SCALESHIP_WATCH_CONFIG"), &cfg.WatchConfig)
	s.setBoolFromString("exit-on-config-change", os.Getenv("SCALESHIP_EXIT_ON_CONFIG_CHANGE"), &cfg.ExitOnConfigChange)

	return nil
}
