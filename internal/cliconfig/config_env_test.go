package cliconfig

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"SCALESHIP_HOST":              "scale.local",
				"SCALESHIP_PORT":              "4001",
				"SCALESHIP_INTERVAL":          "2500",
				"SCALESHIP_IO_TIMEOUT":        "3s",
				"SCALESHIP_RECONNECT_BACKOFF": "7s",
				"SCALESHIP_MAX_RETRIES":       "5",
				"SCALESHIP_PROTOCOL":          "v63",
				"SCALESHIP_TERMINATOR_BYTES":  "4",
				"SCALESHIP_BROKER":            "mqtt://broker:1883",
				"SCALESHIP_TOPIC":             "scales/1",
				"SCALESHIP_LOG":               "debug",
				"SCALESHIP_METRICS_ADDR":      ":9100",
				"SCALESHIP_WATCH_CONFIG":      "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Host:             "scale.local",
				Port:             4001,
				Interval:         2500 * time.Millisecond,
				IOTimeout:        3 * time.Second,
				ReconnectBackoff: 7 * time.Second,
				MaxRetries:       5,
				Protocol:         "v63",
				TerminatorBytes:  intPtr(4),
				Broker:           "mqtt://broker:1883",
				Topic:            "scales/1",
				LogLevel:         "debug",
				MetricsAddr:      ":9100",
				WatchConfig:      true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"SCALESHIP_HOST": "env-host",
				"SCALESHIP_PORT": "4001",
			},
			changed:  map[string]bool{"host": true},
			initial:  Config{Host: "flag-host"},
			expected: Config{Host: "flag-host", Port: 4001},
		},
		{
			name:     "returns error for invalid duration",
			envVars:  map[string]string{"SCALESHIP_IO_TIMEOUT": "not-a-duration"},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name:     "returns error for invalid interval",
			envVars:  map[string]string{"SCALESHIP_INTERVAL": "often"},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name:     "returns error for invalid port",
			envVars:  map[string]string{"SCALESHIP_PORT": "eighty"},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name:     "bool accepts 1",
			envVars:  map[string]string{"SCALESHIP_EXIT_ON_CONFIG_CHANGE": "1"},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{ExitOnConfigChange: true},
		},
		{
			name:     "zero terminator is kept",
			envVars:  map[string]string{"SCALESHIP_TERMINATOR_BYTES": "0"},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{TerminatorBytes: intPtr(0)},
		},
		{
			name:     "terminator flag wins",
			envVars:  map[string]string{"SCALESHIP_TERMINATOR_BYTES": "0"},
			changed:  map[string]bool{"terminator-bytes": true},
			initial:  Config{TerminatorBytes: intPtr(4)},
			expected: Config{TerminatorBytes: intPtr(4)},
		},
		{
			name:     "non-positive ints are ignored",
			envVars:  map[string]string{"SCALESHIP_MAX_RETRIES": "0"},
			changed:  map[string]bool{},
			initial:  Config{MaxRetries: 3},
			expected: Config{MaxRetries: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestConfigPrecedence(t *testing.T) {
	// defaults < file < env < flags
	cfg := DefaultConfig()
	cfg.Topic = "flag-topic"
	changed := map[string]bool{"topic": true}

	fc := FileConfig{
		Host:     "file-host",
		Port:     5000,
		Protocol: "v63",
		Topic:    "file-topic",
	}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SCALESHIP_HOST", "env-host")
	t.Setenv("SCALESHIP_TOPIC", "env-topic")
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "env-host" {
		t.Errorf("Host = %q, want env-host", cfg.Host)
	}
	if cfg.Port != 5000 || cfg.Protocol != "v63" {
		t.Errorf("Port = %d, Protocol = %q; want file values", cfg.Port, cfg.Protocol)
	}
	if cfg.Topic != "flag-topic" {
		t.Errorf("Topic = %q, want flag-topic", cfg.Topic)
	}
	if cfg.Interval != DefaultConfig().Interval {
		t.Errorf("Interval = %v, want default", cfg.Interval)
	}
}
