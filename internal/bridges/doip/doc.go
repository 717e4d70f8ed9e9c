// Package doip implements the Teletask DoIP protocol bridge.
//
// This package provides connectivity to Teletask home automation
// centrals (MICROS, NANOS, PICOS) over their DoIP TCP interface. It
// translates between the bridge's internal representation and the
// central unit's comma-separated ASCII frame protocol.
//
// # Architecture
//
// The bridge sits between the MQTT bus and the central unit:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│   MQTT Broker   │   MQTT   │   DoIP Bridge   │   TCP
//	│                 │◄────────►│   (this pkg)    │◄────────► Central Unit
//	└─────────────────┘          └─────────────────┘
//
// # Key Responsibilities
//
//   - Maintain the TCP connection to the central unit
//   - Encode outbound commands (Get, Set, Log, GroupGet) as wire frames
//   - Extract event reports from the unframed inbound byte stream
//   - Serialize all bus traffic through a single dispatch queue
//   - Keep the connection alive with periodic keep-alive frames
//   - Translate MQTT command messages to bus commands and bus events
//     to MQTT state messages
//
// # Wire Format
//
// Frames are ASCII decimal fields, each followed by a comma:
//
//	s,<length>,<command>,<payload...>,<checksum>,
//
// The length field covers the payload plus the length, command and
// checksum bytes. The checksum is the modulo-256 sum of every payload
// field plus the start marker (2), the length and the command byte;
// the start marker is never transmitted. Inbound event reports are
// nine-field runs beginning 2,9,16.
//
// # Ordering
//
// All outbound commands, inbound events and keep-alives flow through
// one FIFO dispatch queue with a single consumer. Submission order is
// dispatch order, and device callbacks never run concurrently with
// command writes.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple
// goroutines unless noted otherwise (FrameScanner is single-caller).
package doip
