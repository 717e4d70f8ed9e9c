package device

import "github.com/greyfold/teletask-bridge/internal/bridges/doip"

// Light is a relay-switched light with an optional dimmer channel.
type Light struct {
	updateNotifier
	name       string
	relay      *SwitchValue
	brightness *ScalingValue
}

// LightOptions configures a Light.
type LightOptions struct {
	// Name identifies the device in logs and callbacks. Required.
	Name string

	// Address is the relay's bus address. Required.
	Address int

	// BrightnessAddress is the dimmer's bus address. Zero means the
	// light is not dimmable.
	BrightnessAddress int

	// Invert flips the relay's wire encoding.
	Invert bool
}

// NewLight builds a light on a relay address, optionally dimmable.
func NewLight(sender CommandSender, opts LightOptions) *Light {
	l := &Light{name: opts.Name}
	l.relay = NewSwitchValue(sender, doip.FunctionRelay, opts.Address, opts.Name, opts.Invert, l.notifyUpdated)
	if opts.BrightnessAddress > 0 {
		l.brightness = NewScalingValue(sender, doip.FunctionDimmer, opts.BrightnessAddress, opts.Name, l.notifyUpdated)
	}
	return l
}

// Name returns the device name.
func (l *Light) Name() string { return l.name }

// Function returns the relay class carrying the light's primary state.
func (l *Light) Function() doip.Function { return doip.FunctionRelay }

// Dimmable reports whether the light has a brightness channel.
func (l *Light) Dimmable() bool { return l.brightness != nil }

// Do performs an action on the light.
func (l *Light) Do(action Action) error {
	switch a := action.(type) {
	case TurnOn:
		return l.relay.On()
	case TurnOff:
		return l.relay.Off()
	case Toggle:
		return l.relay.Toggle()
	case SetLevel:
		if l.brightness == nil {
			return ErrUnsupportedAction
		}
		return l.brightness.SetPercent(a.Percent)
	default:
		return ErrUnsupportedAction
	}
}

// IsOn returns the relay state; the second return is false until the
// state is known.
func (l *Light) IsOn() (bool, bool) {
	return l.relay.IsOn()
}

// Brightness returns the dimmer percentage. The second return is false
// for non-dimmable lights and until the state is known.
func (l *Light) Brightness() (int, bool) {
	if l.brightness == nil {
		return 0, false
	}
	return l.brightness.Percent()
}

// ApplyRemoteState records a bus-reported relay value. Brightness
// reports route separately when the dimmer channel is registered under
// its own key.
func (l *Light) ApplyRemoteState(raw int) {
	l.relay.Apply(raw)
}

// ApplyBrightness records a bus-reported dimmer value.
func (l *Light) ApplyBrightness(raw int) {
	if l.brightness != nil {
		l.brightness.Apply(raw)
	}
}

// BrightnessReceiver returns a Device view routing to the dimmer
// channel, for registering the light under its dimmer address too.
// Returns nil for non-dimmable lights.
func (l *Light) BrightnessReceiver() Device {
	if l.brightness == nil {
		return nil
	}
	return &brightnessReceiver{light: l}
}

// StateAddresses lists the relay address for the startup sync; the
// dimmer address is covered by the brightness receiver.
func (l *Light) StateAddresses() []int {
	return l.relay.StateAddresses()
}

// RequestState queues a read of the relay state.
func (l *Light) RequestState() error {
	return l.relay.RequestState()
}

// brightnessReceiver adapts a light's dimmer channel to the Device
// interface so the registry can route dimmer events to it.
type brightnessReceiver struct {
	light *Light
}

func (r *brightnessReceiver) Name() string            { return r.light.name }
func (r *brightnessReceiver) Function() doip.Function { return doip.FunctionDimmer }
func (r *brightnessReceiver) Do(action Action) error  { return r.light.Do(action) }
func (r *brightnessReceiver) ApplyRemoteState(raw int) {
	r.light.ApplyBrightness(raw)
}
func (r *brightnessReceiver) StateAddresses() []int {
	return r.light.brightness.StateAddresses()
}
