package device

import "github.com/greyfold/teletask-bridge/internal/bridges/doip"

// Switch is a relay-backed on/off device.
type Switch struct {
	updateNotifier
	name  string
	relay *SwitchValue
}

// SwitchOptions configures a Switch.
type SwitchOptions struct {
	// Name identifies the device in logs and callbacks. Required.
	Name string

	// Address is the relay's bus address. Required.
	Address int

	// Invert flips the wire encoding for normally-closed contacts.
	Invert bool
}

// NewSwitch builds a switch on a relay address.
func NewSwitch(sender CommandSender, opts SwitchOptions) *Switch {
	s := &Switch{name: opts.Name}
	s.relay = NewSwitchValue(sender, doip.FunctionRelay, opts.Address, opts.Name, opts.Invert, s.notifyUpdated)
	return s
}

// Name returns the device name.
func (s *Switch) Name() string { return s.name }

// Function returns the relay class.
func (s *Switch) Function() doip.Function { return doip.FunctionRelay }

// Do performs an action on the switch.
func (s *Switch) Do(action Action) error {
	switch action.(type) {
	case TurnOn:
		return s.relay.On()
	case TurnOff:
		return s.relay.Off()
	case Toggle:
		return s.relay.Toggle()
	default:
		return ErrUnsupportedAction
	}
}

// IsOn returns the switch state; the second return is false until the
// state is known.
func (s *Switch) IsOn() (bool, bool) {
	return s.relay.IsOn()
}

// ApplyRemoteState records a bus-reported relay value.
func (s *Switch) ApplyRemoteState(raw int) {
	s.relay.Apply(raw)
}

// StateAddresses lists the relay address for the startup sync.
func (s *Switch) StateAddresses() []int {
	return s.relay.StateAddresses()
}

// RequestState queues a read of the relay state.
func (s *Switch) RequestState() error {
	return s.relay.RequestState()
}
