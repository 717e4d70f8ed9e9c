package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Teletask bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Teletask TeletaskConfig `yaml:"teletask"`
	Devices  []DeviceConfig `yaml:"devices"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	History  HistoryConfig  `yaml:"history"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TeletaskConfig contains connection settings for the central unit.
type TeletaskConfig struct {
	// Host is the IP or hostname of the central unit.
	Host string `yaml:"host"`

	// Port is the DoIP TCP port. Default: 55957.
	Port int `yaml:"port"`

	// ConnectTimeout bounds the TCP dial, in seconds. Default: 10.
	ConnectTimeout int `yaml:"connect_timeout"`

	// ReadTimeout is the receive loop's per-read deadline, in seconds.
	// Default: 30.
	ReadTimeout int `yaml:"read_timeout"`

	// WriteTimeout bounds each frame write, in seconds. Default: 5.
	WriteTimeout int `yaml:"write_timeout"`

	// KeepAliveInterval is the keep-alive period, in seconds. Default: 10.
	KeepAliveInterval int `yaml:"keepalive_interval"`

	// TopicPrefix is the root of the MQTT topic tree. Default: "teletask".
	TopicPrefix string `yaml:"topic_prefix"`

	// SyncOnStart enables the startup state sync for registered devices.
	SyncOnStart bool `yaml:"sync_on_start"`

	// SyncDelayMS is the pause between sync reads, in milliseconds.
	// Default: 50.
	SyncDelayMS int `yaml:"sync_delay_ms"`
}

// DeviceConfig declares one device to register with the bridge.
type DeviceConfig struct {
	// Type is the device class: "switch", "light" or "dimmer".
	Type string `yaml:"type"`

	// Name is a human-readable label used in logs.
	Name string `yaml:"name"`

	// Address is the device number on the central unit.
	Address int `yaml:"address"`

	// BrightnessAddress is the dimmer number paired with a light.
	// Only meaningful for type "light"; 0 means not dimmable.
	BrightnessAddress int `yaml:"brightness_address"`

	// Invert flips the on/off wire values for reversed wiring.
	Invert bool `yaml:"invert"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix mirrors teletask.topic_prefix so the client scopes
	// its status and LWT topics to the same tree as the bridge.
	// Populated by Load, not read from this section.
	TopicPrefix string `yaml:"-"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// HistoryConfig contains SQLite event history settings.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// WALMode enables write-ahead logging.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the SQLite busy timeout, in seconds.
	BusyTimeout int `yaml:"busy_timeout"`

	// RetentionDays bounds how long events are kept. 0 disables pruning.
	RetentionDays int `yaml:"retention_days"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TELETASK_SECTION_KEY
// For example: TELETASK_HOST, TELETASK_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// One topic tree for everything: the MQTT client's status topics
	// follow the bridge prefix.
	cfg.MQTT.TopicPrefix = cfg.Teletask.TopicPrefix

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Teletask: TeletaskConfig{
			Port:              55957,
			ConnectTimeout:    10,
			ReadTimeout:       30,
			WriteTimeout:      5,
			KeepAliveInterval: 10,
			TopicPrefix:       "teletask",
			SyncOnStart:       true,
			SyncDelayMS:       50,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "teletask-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		History: HistoryConfig{
			Enabled:     true,
			Path:        "./data/teletask.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TELETASK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Central unit
	if v := os.Getenv("TELETASK_HOST"); v != "" {
		cfg.Teletask.Host = v
	}
	if v := os.Getenv("TELETASK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Teletask.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("TELETASK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TELETASK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TELETASK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// History
	if v := os.Getenv("TELETASK_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// InfluxDB
	if v := os.Getenv("TELETASK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Central unit validation
	if c.Teletask.Host == "" {
		errs = append(errs, "teletask.host is required (set TELETASK_HOST environment variable)")
	}
	if c.Teletask.Port < 1 || c.Teletask.Port > 65535 {
		errs = append(errs, "teletask.port must be between 1 and 65535")
	}
	if c.Teletask.KeepAliveInterval < 1 {
		errs = append(errs, "teletask.keepalive_interval must be at least 1 second")
	}

	// Device validation
	for i, dev := range c.Devices {
		switch dev.Type {
		case "switch", "light", "dimmer":
		default:
			errs = append(errs, fmt.Sprintf("devices[%d].type must be switch, light or dimmer", i))
		}
		if dev.Name == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].name is required", i))
		}
		if dev.Address < 1 {
			errs = append(errs, fmt.Sprintf("devices[%d].address must be at least 1", i))
		}
		if dev.BrightnessAddress != 0 && dev.Type != "light" {
			errs = append(errs, fmt.Sprintf("devices[%d].brightness_address is only valid for lights", i))
		}
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	// History validation
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set TELETASK_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the central unit connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Teletask.ConnectTimeout) * time.Second
}

// GetReadTimeout returns the receive loop read deadline as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Teletask.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the frame write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Teletask.WriteTimeout) * time.Second
}

// GetKeepAliveInterval returns the keep-alive period as a Duration.
func (c *Config) GetKeepAliveInterval() time.Duration {
	return time.Duration(c.Teletask.KeepAliveInterval) * time.Second
}

// GetSyncDelay returns the pause between startup sync reads as a Duration.
func (c *Config) GetSyncDelay() time.Duration {
	return time.Duration(c.Teletask.SyncDelayMS) * time.Millisecond
}
