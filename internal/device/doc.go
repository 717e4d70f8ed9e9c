// Package device models Teletask devices on top of the DoIP bridge.
//
// Devices (Switch, Light, Dimmer) never touch the wire directly. Each
// device attribute is backed by a remote value: a small state cell
// that converts between the domain representation (on/off, percent)
// and the raw wire value, tracks the last known payload, and submits
// commands through the dispatch queue via the CommandSender capability.
//
// Inbound state flows the other way: the registry routes each bus
// event to the device registered under the event's (function, address)
// key, the device applies the raw value to its remote value, and
// update callbacks fire only when the payload actually changed.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple
// goroutines.
package device
