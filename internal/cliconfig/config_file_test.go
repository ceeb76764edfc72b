package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Host:             "scale.local",
				Port:             4001,
				Interval:         "5s",
				IOTimeout:        "2s",
				ReconnectBackoff: "1m",
				MaxRetries:       3,
				Protocol:         "v63",
				TerminatorBytes:  intPtr(4),
				Broker:           "nats://broker:4222",
				Topic:            "scales/line-1",
				LogLevel:         "warn",
				MetricsAddr:      "127.0.0.1:9100",
				WatchConfig:      &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Host:             "scale.local",
				Port:             4001,
				Interval:         5 * time.Second,
				IOTimeout:        2 * time.Second,
				ReconnectBackoff: time.Minute,
				MaxRetries:       3,
				Protocol:         "v63",
				TerminatorBytes:  intPtr(4),
				Broker:           "nats://broker:4222",
				Topic:            "scales/line-1",
				LogLevel:         "warn",
				MetricsAddr:      "127.0.0.1:9100",
				WatchConfig:      true,
			},
		},
		{
			name:       "respects changed flags",
			fileConfig: FileConfig{Host: "file-host", Topic: "file-topic"},
			changed:    map[string]bool{"host": true},
			initial:    Config{Host: "flag-host", Topic: "flag-topic"},
			expected: Config{
				Host:  "flag-host", // unchanged because flag was set
				Topic: "file-topic",
			},
		},
		{
			name:       "interval accepts milliseconds",
			fileConfig: FileConfig{Interval: "750"},
			changed:    map[string]bool{},
			initial:    Config{},
			expected:   Config{Interval: 750 * time.Millisecond},
		},
		{
			name:       "explicit false overrides true",
			fileConfig: FileConfig{ExitOnConfigChange: &falseVal},
			changed:    map[string]bool{},
			initial:    Config{ExitOnConfigChange: true},
			expected:   Config{ExitOnConfigChange: false},
		},
		{
			name:       "zero terminator overrides",
			fileConfig: FileConfig{TerminatorBytes: intPtr(0)},
			changed:    map[string]bool{},
			initial:    Config{TerminatorBytes: intPtr(2)},
			expected:   Config{TerminatorBytes: intPtr(0)},
		},
		{
			name:       "empty values keep initial",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    Config{Host: "kept", Port: 1234},
			expected:   Config{Host: "kept", Port: 1234},
		},
		{
			name:       "returns error for invalid interval",
			fileConfig: FileConfig{Interval: "sometimes"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "returns error for invalid io timeout",
			fileConfig: FileConfig{IOTimeout: "1500"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
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

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
host = "192.0.2.10"
port = 1234
interval = "10s"
protocol = "v64"
broker = "mqtt://broker:1883"
topic = "scales/dock"
terminator_bytes = 0
watch_config = true
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Host != "192.0.2.10" {
		t.Errorf("Host = %v, want 192.0.2.10", fc.Host)
	}
	if fc.Port != 1234 {
		t.Errorf("Port = %v, want 1234", fc.Port)
	}
	if fc.Interval != "10s" {
		t.Errorf("Interval = %v, want 10s", fc.Interval)
	}
	if fc.Broker != "mqtt://broker:1883" || fc.Topic != "scales/dock" {
		t.Errorf("Broker = %v, Topic = %v", fc.Broker, fc.Topic)
	}
	if fc.TerminatorBytes == nil || *fc.TerminatorBytes != 0 {
		t.Errorf("TerminatorBytes = %v, want explicit 0", fc.TerminatorBytes)
	}
	if fc.WatchConfig == nil || !*fc.WatchConfig {
		t.Errorf("WatchConfig = %v, want true", fc.WatchConfig)
	}
	if fc.ExitOnConfigChange != nil {
		t.Errorf("ExitOnConfigChange = %v, want unset", fc.ExitOnConfigChange)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
host = "scale"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.HasSuffix(path, filepath.Join(".scaleship", "config.toml")) {
		t.Errorf("DefaultConfigPath() = %v, want ~/.scaleship/config.toml", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
