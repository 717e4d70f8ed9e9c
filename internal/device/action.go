package device

// Action is a closed set of device operations. Using a variant type
// instead of action strings means an unsupported action is a compile
// error at the call site and a typed error at the device.
type Action interface {
	isAction()
}

// TurnOn switches a device on.
type TurnOn struct{}

// TurnOff switches a device off.
type TurnOff struct{}

// Toggle flips a device's binary state on the central unit.
type Toggle struct{}

// SetLevel sets a dimmable device to a percentage.
type SetLevel struct {
	Percent int
}

func (TurnOn) isAction()   {}
func (TurnOff) isAction()  {}
func (Toggle) isAction()   {}
func (SetLevel) isAction() {}
