package mqtt

import "fmt"

// Topic layout for the Teletask bridge.
//
// Device traffic uses the flat scheme: {prefix}/{category}/{function}/{address}
// where function is the Teletask function tag ("relay", "dimmer", ...) and
// address is the decimal device number on the central unit.
const (
	// DefaultTopicPrefix is the base for all bridge topics when no
	// prefix is configured.
	DefaultTopicPrefix = "teletask"
)

// Topics provides builders for the bridge's MQTT topics, rooted at a
// configurable prefix. Using these helpers ensures consistent topic
// naming across the codebase.
//
//	topics := mqtt.NewTopics("teletask")
//	stateTopic := topics.DeviceState("relay", "12")
//	// Returns: "teletask/state/relay/12"
type Topics struct {
	// Prefix is the topic tree root. Empty falls back to
	// DefaultTopicPrefix.
	Prefix string
}

// NewTopics returns topic builders rooted at prefix. An empty prefix
// selects the default.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// DeviceState returns the topic for device state updates.
//
// Example: teletask/state/relay/12
func (t Topics) DeviceState(function, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", t.prefix(), function, address)
}

// DeviceCommand returns the topic consumers publish device commands to.
//
// Example: teletask/command/relay/12
func (t Topics) DeviceCommand(function, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", t.prefix(), function, address)
}

// BridgeStatus returns the bridge availability topic.
//
// Example: teletask/bridge/status
func (t Topics) BridgeStatus() string {
	return fmt.Sprintf("%s/bridge/status", t.prefix())
}

// SystemStatus returns the MQTT client status topic used for the LWT.
//
// Example: teletask/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// AllDeviceStates returns a pattern matching all device state updates.
//
// Pattern: teletask/state/+/+
func (t Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+/+", t.prefix())
}

// AllDeviceCommands returns a pattern matching all device commands.
//
// Pattern: teletask/command/+/+
func (t Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+/+", t.prefix())
}

// AllTopics returns a pattern matching every bridge topic.
// Use with caution - this receives ALL traffic.
//
// Pattern: teletask/#
func (t Topics) AllTopics() string {
	return t.prefix() + "/#"
}
