package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
teletask:
  host: "192.168.1.50"
  port: 55957
  keepalive_interval: 10
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
history:
  enabled: true
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Teletask.Host != "192.168.1.50" {
		t.Errorf("Teletask.Host = %q, want %q", cfg.Teletask.Host, "192.168.1.50")
	}

	if cfg.History.Path != "/tmp/test.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	// Defaults fill sections the file omits.
	if cfg.Teletask.TopicPrefix != "teletask" {
		t.Errorf("Teletask.TopicPrefix = %q, want default", cfg.Teletask.TopicPrefix)
	}
}

// TestLoad_MirrorsTopicPrefix verifies the MQTT section inherits the
// topic prefix, keeping the client's status topics in the bridge tree.
func TestLoad_MirrorsTopicPrefix(t *testing.T) {
	content := `
teletask:
  host: "192.168.1.50"
  topic_prefix: "house"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.TopicPrefix != "house" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "house")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
teletask:
  host: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty teletask.host, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	validTeletask := TeletaskConfig{Host: "192.168.1.50", Port: 55957, KeepAliveInterval: 10}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{QoS: 1, Broker: MQTTBrokerConfig{Host: "localhost"}, Enabled: true},
				History:  HistoryConfig{Enabled: true, Path: "/data/teletask.db"},
			},
			wantErr: false,
		},
		{
			name: "missing host",
			config: &Config{
				Teletask: TeletaskConfig{Port: 55957, KeepAliveInterval: 10},
			},
			wantErr: true,
		},
		{
			name: "invalid port low",
			config: &Config{
				Teletask: TeletaskConfig{Host: "x", Port: 0, KeepAliveInterval: 10},
			},
			wantErr: true,
		},
		{
			name: "invalid port high",
			config: &Config{
				Teletask: TeletaskConfig{Host: "x", Port: 70000, KeepAliveInterval: 10},
			},
			wantErr: true,
		},
		{
			name: "keepalive too small",
			config: &Config{
				Teletask: TeletaskConfig{Host: "x", Port: 55957, KeepAliveInterval: 0},
			},
			wantErr: true,
		},
		{
			name: "valid devices",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{QoS: 1},
				Devices: []DeviceConfig{
					{Type: "switch", Name: "hall", Address: 1},
					{Type: "light", Name: "living", Address: 4, BrightnessAddress: 2},
					{Type: "dimmer", Name: "spots", Address: 6},
				},
			},
			wantErr: false,
		},
		{
			name: "unknown device type",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{QoS: 1},
				Devices:  []DeviceConfig{{Type: "thermostat", Name: "x", Address: 1}},
			},
			wantErr: true,
		},
		{
			name: "device missing name",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{QoS: 1},
				Devices:  []DeviceConfig{{Type: "switch", Address: 1}},
			},
			wantErr: true,
		},
		{
			name: "brightness address on non-light",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{QoS: 1},
				Devices:  []DeviceConfig{{Type: "switch", Name: "x", Address: 1, BrightnessAddress: 2}},
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{QoS: 3},
			},
			wantErr: true,
		},
		{
			name: "mqtt enabled without broker host",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{Enabled: true, QoS: 1},
			},
			wantErr: true,
		},
		{
			name: "history enabled without path",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{QoS: 1},
				History:  HistoryConfig{Enabled: true},
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without token",
			config: &Config{
				Teletask: validTeletask,
				MQTT:     MQTTConfig{QoS: 1},
				InfluxDB: InfluxDBConfig{Enabled: true, URL: "http://localhost:8086"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetDurations(t *testing.T) {
	cfg := &Config{
		Teletask: TeletaskConfig{
			ConnectTimeout:    10,
			ReadTimeout:       30,
			WriteTimeout:      5,
			KeepAliveInterval: 10,
			SyncDelayMS:       50,
		},
	}

	if got := cfg.GetConnectTimeout().Seconds(); got != 10 {
		t.Errorf("GetConnectTimeout() = %v, want 10", got)
	}
	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 5 {
		t.Errorf("GetWriteTimeout() = %v, want 5", got)
	}
	if got := cfg.GetKeepAliveInterval().Seconds(); got != 10 {
		t.Errorf("GetKeepAliveInterval() = %v, want 10", got)
	}
	if got := cfg.GetSyncDelay().Milliseconds(); got != 50 {
		t.Errorf("GetSyncDelay() = %v, want 50", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("TELETASK_HOST", "10.0.0.5")
	t.Setenv("TELETASK_PORT", "55958")
	t.Setenv("TELETASK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("TELETASK_MQTT_USERNAME", "testuser")
	t.Setenv("TELETASK_MQTT_PASSWORD", "testpass")
	t.Setenv("TELETASK_HISTORY_PATH", "/custom/path.db")
	t.Setenv("TELETASK_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Teletask.Host != "10.0.0.5" {
		t.Errorf("Teletask.Host = %q, want %q", cfg.Teletask.Host, "10.0.0.5")
	}

	if cfg.Teletask.Port != 55958 {
		t.Errorf("Teletask.Port = %d, want 55958", cfg.Teletask.Port)
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.History.Path != "/custom/path.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/custom/path.db")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Teletask.Port != 55957 {
		t.Errorf("defaultConfig Teletask.Port = %d, want 55957", cfg.Teletask.Port)
	}

	if cfg.Teletask.KeepAliveInterval != 10 {
		t.Errorf("defaultConfig Teletask.KeepAliveInterval = %d, want 10", cfg.Teletask.KeepAliveInterval)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.History.Path == "" {
		t.Error("defaultConfig should have non-empty History.Path")
	}
}
