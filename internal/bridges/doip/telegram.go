package doip

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind is the command byte of an outbound frame.
type CommandKind int

// Command kinds accepted by the central unit.
const (
	// CommandLog registers the caller for event reports on a function class.
	CommandLog CommandKind = 3

	// CommandGet requests the current state of a single address.
	CommandGet CommandKind = 6

	// CommandSet changes the state of a single address.
	CommandSet CommandKind = 7

	// CommandGroupGet requests state for an address within a group scan.
	// Same field layout as CommandGet, different command byte.
	CommandGroupGet CommandKind = 9

	// CommandKeepAlive is the periodic no-op that keeps the central unit
	// from dropping an idle connection.
	CommandKeepAlive CommandKind = 11
)

// eventReportCommand is the command byte of inbound event reports.
// It is never sent, only matched by the frame scanner.
const eventReportCommand = 16

// Wire-level constants.
const (
	// startMarker participates in the checksum but is never transmitted.
	startMarker = 2

	// centralAddress is the fixed bus address of the central unit itself,
	// used as the first payload field of Get and Set frames.
	centralAddress = 1

	// frameOverhead is added to the payload length to form the length
	// field: the length byte, the command byte and the checksum byte.
	frameOverhead = 3
)

// Setting values for CommandSet.
const (
	SettingOff    = 0
	SettingToggle = 103
	SettingOn     = 255
)

// Command is an outbound intent for the central unit. Commands are
// value types; construct them with the New* helpers and treat them as
// immutable once submitted.
type Command struct {
	Kind     CommandKind
	Function Function
	Address  int

	// Setting is the target value for Set commands. HasSetting
	// distinguishes "set to zero" from "activate without a value"
	// (moods and flags are triggered address-only).
	Setting    int
	HasSetting bool
}

// NewLog builds a Log command registering for event reports on a
// function class.
func NewLog(function Function) Command {
	return Command{Kind: CommandLog, Function: function}
}

// NewGet builds a Get command requesting the state of one address.
func NewGet(function Function, address int) Command {
	return Command{Kind: CommandGet, Function: function, Address: address}
}

// NewGroupGet builds a GroupGet command for one address. Callers
// scanning a range submit one command per address.
func NewGroupGet(function Function, address int) Command {
	return Command{Kind: CommandGroupGet, Function: function, Address: address}
}

// NewSet builds a Set command with an explicit setting value.
func NewSet(function Function, address, setting int) Command {
	return Command{Kind: CommandSet, Function: function, Address: address, Setting: setting, HasSetting: true}
}

// NewActivate builds a Set command without a setting value, used for
// function classes that are triggered rather than assigned.
func NewActivate(function Function, address int) Command {
	return Command{Kind: CommandSet, Function: function, Address: address}
}

// NewKeepAlive builds the periodic keep-alive command.
func NewKeepAlive() Command {
	return Command{Kind: CommandKeepAlive}
}

// Validate checks that the command can be encoded as a wire frame.
// It is called synchronously on submit so malformed commands fail at
// the call site, not in the consumer.
func (c Command) Validate() error {
	switch c.Kind {
	case CommandKeepAlive:
		return nil
	case CommandLog:
		if c.Function == 0 {
			return fmt.Errorf("%w: log requires a function", ErrInvalidCommand)
		}
		return nil
	case CommandGet, CommandGroupGet:
		if c.Function == 0 {
			return fmt.Errorf("%w: get requires a function", ErrInvalidCommand)
		}
		if c.Address <= 0 {
			return fmt.Errorf("%w: get requires an address", ErrInvalidCommand)
		}
		return nil
	case CommandSet:
		if c.Function == 0 {
			return fmt.Errorf("%w: set requires a function", ErrInvalidCommand)
		}
		if c.HasSetting && c.Address <= 0 {
			return fmt.Errorf("%w: set with a setting requires an address", ErrInvalidCommand)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown command kind %d", ErrInvalidCommand, c.Kind)
	}
}

// payload returns the payload fields for the command, excluding the
// length, command and checksum bytes.
func (c Command) payload() []int {
	switch c.Kind {
	case CommandKeepAlive:
		return nil
	case CommandLog:
		return []int{int(c.Function), 1}
	case CommandGet, CommandGroupGet:
		return []int{centralAddress, int(c.Function), 0, c.Address}
	case CommandSet:
		fields := []int{centralAddress, int(c.Function)}
		if c.HasSetting {
			fields = append(fields, 0, c.Address, c.Setting)
		}
		return fields
	default:
		return nil
	}
}

// Encode renders the command as an ASCII frame ready for the socket:
//
//	s,<length>,<command>,<payload...>,<checksum>,
//
// Every field including the trailing checksum is followed by a comma.
func (c Command) Encode() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	payload := c.payload()
	length := len(payload) + frameOverhead
	sum := checksum(payload, length, int(c.Kind))

	var b strings.Builder
	b.WriteString("s,")
	b.WriteString(strconv.Itoa(length))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(int(c.Kind)))
	b.WriteByte(',')
	for _, field := range payload {
		b.WriteString(strconv.Itoa(field))
		b.WriteByte(',')
	}
	b.WriteString(strconv.Itoa(sum))
	b.WriteByte(',')
	return b.String(), nil
}

// checksum computes the frame checksum: the sum of all payload fields
// plus the start marker, length and command bytes, modulo 256. The
// start marker is part of the sum even though it never appears on the
// wire.
func checksum(payload []int, length, command int) int {
	sum := startMarker + length + command
	for _, field := range payload {
		sum += field
	}
	return sum % 256
}

// String describes the command for logs.
func (c Command) String() string {
	switch c.Kind {
	case CommandKeepAlive:
		return "keepalive"
	case CommandLog:
		return fmt.Sprintf("log %s", c.Function)
	case CommandGet:
		return fmt.Sprintf("get %s/%d", c.Function, c.Address)
	case CommandGroupGet:
		return fmt.Sprintf("groupget %s/%d", c.Function, c.Address)
	case CommandSet:
		if c.HasSetting {
			return fmt.Sprintf("set %s/%d=%d", c.Function, c.Address, c.Setting)
		}
		return fmt.Sprintf("set %s", c.Function)
	default:
		return fmt.Sprintf("command(%d)", c.Kind)
	}
}
