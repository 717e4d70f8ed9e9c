package device

import "github.com/greyfold/teletask-bridge/internal/bridges/doip"

// Dimmer is a standalone dimmer channel without a relay.
type Dimmer struct {
	updateNotifier
	name       string
	brightness *ScalingValue
}

// DimmerOptions configures a Dimmer.
type DimmerOptions struct {
	// Name identifies the device in logs and callbacks. Required.
	Name string

	// Address is the dimmer's bus address. Required.
	Address int
}

// NewDimmer builds a dimmer on a dimmer address.
func NewDimmer(sender CommandSender, opts DimmerOptions) *Dimmer {
	d := &Dimmer{name: opts.Name}
	d.brightness = NewScalingValue(sender, doip.FunctionDimmer, opts.Address, opts.Name, d.notifyUpdated)
	return d
}

// Name returns the device name.
func (d *Dimmer) Name() string { return d.name }

// Function returns the dimmer class.
func (d *Dimmer) Function() doip.Function { return doip.FunctionDimmer }

// Do performs an action. TurnOn drives the dimmer to full, TurnOff to
// zero; Toggle has no wire meaning for dimmers.
func (d *Dimmer) Do(action Action) error {
	switch a := action.(type) {
	case TurnOn:
		return d.brightness.SetPercent(maxPercent)
	case TurnOff:
		return d.brightness.SetPercent(minPercent)
	case SetLevel:
		return d.brightness.SetPercent(a.Percent)
	default:
		return ErrUnsupportedAction
	}
}

// Brightness returns the dimmer percentage; the second return is false
// until the state is known.
func (d *Dimmer) Brightness() (int, bool) {
	return d.brightness.Percent()
}

// ApplyRemoteState records a bus-reported dimmer value.
func (d *Dimmer) ApplyRemoteState(raw int) {
	d.brightness.Apply(raw)
}

// StateAddresses lists the dimmer address for the startup sync.
func (d *Dimmer) StateAddresses() []int {
	return d.brightness.StateAddresses()
}

// RequestState queues a read of the dimmer state.
func (d *Dimmer) RequestState() error {
	return d.brightness.RequestState()
}
