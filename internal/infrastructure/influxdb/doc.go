// Package influxdb provides InfluxDB connectivity for the Teletask bridge.
//
// It wraps the official influxdb-client-go v2 library with bridge-specific
// patterns for connection management, telemetry writing, and health
// monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Bus events (state reports from the central unit)
//   - Bridge throughput counters (queue depth, drop rates)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "home",
//	    Bucket: "teletask",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a bus event
//	client.WriteBusEvent("relay", 12, 255)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead when the bus is chatty.
package influxdb
