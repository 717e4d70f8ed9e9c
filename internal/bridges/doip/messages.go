package doip

import (
	"encoding/json"
	"fmt"
	"time"
)

// Actions accepted on command topics.
const (
	ActionOn     = "on"
	ActionOff    = "off"
	ActionToggle = "toggle"
	ActionSet    = "set"
	ActionGet    = "get"
)

// CommandMessage is the JSON payload of a command topic message.
type CommandMessage struct {
	// Action is one of on, off, toggle, set, get.
	Action string `json:"action"`

	// Value is the raw wire value for the set action (0-255).
	Value *int `json:"value,omitempty"`
}

// ParseCommandMessage decodes and validates a command payload.
func ParseCommandMessage(payload []byte) (CommandMessage, error) {
	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return CommandMessage{}, fmt.Errorf("doip: parsing command payload: %w", err)
	}

	switch msg.Action {
	case ActionOn, ActionOff, ActionToggle, ActionGet:
		return msg, nil
	case ActionSet:
		if msg.Value == nil {
			return CommandMessage{}, fmt.Errorf("doip: set action requires a value")
		}
		if *msg.Value < 0 || *msg.Value > 255 {
			return CommandMessage{}, fmt.Errorf("doip: set value %d out of range 0-255", *msg.Value)
		}
		return msg, nil
	case "":
		return CommandMessage{}, fmt.Errorf("doip: command payload missing action")
	default:
		return CommandMessage{}, fmt.Errorf("doip: unknown action %q", msg.Action)
	}
}

// StateMessage is the JSON payload published on state topics for each
// bus event.
type StateMessage struct {
	Function  string `json:"function"`
	Address   int    `json:"address"`
	State     int    `json:"state"`
	Timestamp string `json:"timestamp"`
}

// NewStateMessage builds the state payload for an event.
func NewStateMessage(event Event) StateMessage {
	return StateMessage{
		Function:  event.Function.String(),
		Address:   event.Address,
		State:     event.State,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Encode renders the message as JSON.
func (m StateMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("doip: encoding state payload: %w", err)
	}
	return data, nil
}
