// Teletask Bridge - DoIP to MQTT gateway
//
// This is the main entry point for the Teletask bridge daemon.
// The bridge connects to a Teletask central unit over DoIP (TCP),
// mirrors bus events onto retained MQTT state topics, and translates
// MQTT command messages into bus commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/greyfold/teletask-bridge/internal/bridges/doip"
	"github.com/greyfold/teletask-bridge/internal/device"
	"github.com/greyfold/teletask-bridge/internal/infrastructure/config"
	"github.com/greyfold/teletask-bridge/internal/infrastructure/history"
	"github.com/greyfold/teletask-bridge/internal/infrastructure/influxdb"
	"github.com/greyfold/teletask-bridge/internal/infrastructure/logging"
	"github.com/greyfold/teletask-bridge/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// historyPruneInterval is how often the retention loop removes expired
// event history rows.
const historyPruneInterval = time.Hour

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Teletask bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open event history (optional)
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History)
		if err != nil {
			return fmt.Errorf("opening event history: %w", err)
		}
		defer func() {
			log.Info("closing event history")
			if closeErr := store.Close(); closeErr != nil {
				log.Error("error closing event history", "error", closeErr)
			}
		}()
		log.Info("event history opened", "path", cfg.History.Path)

		if cfg.History.RetentionDays > 0 {
			retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
			retentionLog := log.With("component", "history")
			go store.RunRetention(ctx, retention, historyPruneInterval, func(removed int64, err error) {
				if err != nil {
					retentionLog.Error("event history prune failed", "error", err)
					return
				}
				if removed > 0 {
					retentionLog.Info("pruned event history", "removed", removed)
				}
			})
			log.Info("event history retention enabled", "days", cfg.History.RetentionDays)
		}
	} else {
		log.Info("event history disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to the central unit
	conn, err := doip.Connect(ctx, doip.ClientConfig{
		Host:           cfg.Teletask.Host,
		Port:           cfg.Teletask.Port,
		ConnectTimeout: cfg.GetConnectTimeout(),
		ReadTimeout:    cfg.GetReadTimeout(),
		WriteTimeout:   cfg.GetWriteTimeout(),
		Logger:         log.With("component", "doip"),
	})
	if err != nil {
		return fmt.Errorf("connecting to central unit: %w", err)
	}
	defer func() {
		log.Info("closing central unit connection")
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("error closing central unit connection", "error", closeErr)
		}
	}()
	log.Info("central unit connected",
		"host", cfg.Teletask.Host,
		"port", cfg.Teletask.Port,
	)

	// Device registry routes inbound events and enumerates sync targets
	registry := device.NewRegistry(log.With("component", "registry"))

	// Build the bridge; devices hold its queue as their command sender
	bridge, err := doip.NewBridge(doip.BridgeOptions{
		Connection:        conn,
		MQTT:              bridgeMQTT(mqttClient),
		Router:            registry,
		Syncer:            registry,
		History:           bridgeHistory(store),
		Telemetry:         bridgeTelemetry(influxClient),
		TopicPrefix:       cfg.Teletask.TopicPrefix,
		KeepAliveInterval: cfg.GetKeepAliveInterval(),
		SyncOnStart:       cfg.Teletask.SyncOnStart,
		SyncDelay:         cfg.GetSyncDelay(),
		Logger:            log.With("component", "bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	// Register configured devices before Start so the state sync sees them
	if err := registerDevices(registry, bridge.Queue(), cfg.Devices); err != nil {
		return fmt.Errorf("registering devices: %w", err)
	}
	log.Info("devices registered", "configured", len(cfg.Devices), "registrations", registry.Count())

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, store, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Bridge (drains queue, publishes offline)
	// 2. Central unit connection
	// 3. MQTT (if enabled)
	// 4. InfluxDB (if enabled)
	// 5. Event history (if enabled)

	log.Info("Teletask bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TELETASK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TELETASK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// registerDevices builds each configured device and registers it under
// all addresses it listens on.
func registerDevices(registry *device.Registry, sender device.CommandSender, devices []config.DeviceConfig) error {
	for _, dc := range devices {
		var dev device.Device
		switch dc.Type {
		case "switch":
			dev = device.NewSwitch(sender, device.SwitchOptions{
				Name:    dc.Name,
				Address: dc.Address,
				Invert:  dc.Invert,
			})
		case "light":
			dev = device.NewLight(sender, device.LightOptions{
				Name:              dc.Name,
				Address:           dc.Address,
				BrightnessAddress: dc.BrightnessAddress,
				Invert:            dc.Invert,
			})
		case "dimmer":
			dev = device.NewDimmer(sender, device.DimmerOptions{
				Name:    dc.Name,
				Address: dc.Address,
			})
		default:
			return fmt.Errorf("unknown device type %q for %q", dc.Type, dc.Name)
		}

		if err := registry.RegisterDevice(dev); err != nil {
			return fmt.Errorf("registering %q: %w", dc.Name, err)
		}
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - store: Event history to check (may be nil if disabled)
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, store *history.Store, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if store != nil {
		if err := store.HealthCheck(ctx); err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// DoIP health is verified during Connect; the receive loop keeps the
	// connection observable via conn.Stats().

	return nil
}

// bridgeMQTT adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The only friction is the Subscribe handler type:
// the infrastructure client takes a named MessageHandler, the bridge a
// plain func. A typed nil must not leak into the interface, hence the
// nil check here.
func bridgeMQTT(client *mqtt.Client) doip.MQTTClient {
	if client == nil {
		return nil
	}
	return &mqttBridgeAdapter{client: client}
}

type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements doip.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements doip.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.client.Subscribe(topic, qos, handler)
}

// IsConnected implements doip.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// bridgeHistory avoids handing the bridge a typed-nil EventRecorder.
func bridgeHistory(store *history.Store) doip.EventRecorder {
	if store == nil {
		return nil
	}
	return store
}

// bridgeTelemetry avoids handing the bridge a typed-nil TelemetryWriter.
func bridgeTelemetry(client *influxdb.Client) doip.TelemetryWriter {
	if client == nil {
		return nil
	}
	return client
}
