package device

import "github.com/greyfold/teletask-bridge/internal/bridges/doip"

// SwitchValue is a remote value holding a binary state. The wire
// encodes on as 255 and off as 0; Invert flips that for contacts wired
// the other way around.
type SwitchValue struct {
	RemoteValue
	invert bool
}

// NewSwitchValue builds a binary remote value on a function class and
// address.
func NewSwitchValue(sender CommandSender, function doip.Function, address int, owner string, invert bool, onChange func()) *SwitchValue {
	return &SwitchValue{
		RemoteValue: newRemoteValue(sender, function, address, owner, onChange),
		invert:      invert,
	}
}

// On switches the value on.
func (v *SwitchValue) On() error {
	return v.set(v.wireFor(true))
}

// Off switches the value off.
func (v *SwitchValue) Off() error {
	return v.set(v.wireFor(false))
}

// Toggle asks the central unit to flip the state. Local state is not
// touched; the resulting state arrives as an event report.
func (v *SwitchValue) Toggle() error {
	return v.submitSetting(doip.SettingToggle)
}

// IsOn returns the binary state. The second return is false until a
// payload is known.
func (v *SwitchValue) IsOn() (bool, bool) {
	raw, known := v.Payload()
	if !known {
		return false, false
	}
	return raw == v.wireFor(true), true
}

func (v *SwitchValue) wireFor(on bool) int {
	if on != v.invert {
		return doip.SettingOn
	}
	return doip.SettingOff
}
