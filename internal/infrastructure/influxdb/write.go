package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteBusEvent records one Teletask bus event as a time-series point.
//
// This is the primary telemetry method: every state report the bridge
// receives can be written here for dashboards and long-term analysis.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - function: Function tag of the device ("relay", "dimmer", ...)
//   - address: Device number on the central unit
//   - state: Raw state value as reported on the wire
//
// Example:
//
//	client.WriteBusEvent("relay", 12, 255)
//	client.WriteBusEvent("dimmer", 3, 80)
func (c *Client) WriteBusEvent(function string, address, state int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bus_events",
		map[string]string{
			"function": function,
			"address":  strconv.Itoa(address),
		},
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeStats records bridge throughput counters.
//
// Intended for periodic sampling of the dispatch queue and connection
// statistics so queue depth and drop rates are visible over time.
//
// Parameters:
//   - processed: Total items the dispatch queue has consumed
//   - failures: Dropped events, failed writes and panicking listeners
func (c *Client) WriteBridgeStats(processed, failures uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_stats",
		nil,
		map[string]interface{}{
			"processed": processed,
			"failures":  failures,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
