package device

import (
	"fmt"

	"github.com/greyfold/teletask-bridge/internal/bridges/doip"
)

// Scaling range bounds.
const (
	minPercent = 0
	maxPercent = 100
)

// ScalingValue is a remote value holding a percentage. Teletask
// dimmers take 0-100 directly on the wire, so the conversion is a
// range check rather than a rescale.
type ScalingValue struct {
	RemoteValue
}

// NewScalingValue builds a percentage remote value on a function class
// and address.
func NewScalingValue(sender CommandSender, function doip.Function, address int, owner string, onChange func()) *ScalingValue {
	return &ScalingValue{
		RemoteValue: newRemoteValue(sender, function, address, owner, onChange),
	}
}

// SetPercent writes a percentage. Values outside 0-100 are rejected
// with ErrIllegalValue before anything is queued.
func (v *ScalingValue) SetPercent(percent int) error {
	if percent < minPercent || percent > maxPercent {
		return fmt.Errorf("%w: %d%% outside %d-%d", ErrIllegalValue, percent, minPercent, maxPercent)
	}
	return v.set(percent)
}

// Percent returns the current percentage. The second return is false
// until a payload is known. Reported payloads above 100 are clamped;
// some centrals report 255 for fully-on dimmers.
func (v *ScalingValue) Percent() (int, bool) {
	raw, known := v.Payload()
	if !known {
		return 0, false
	}
	if raw > maxPercent {
		raw = maxPercent
	}
	if raw < minPercent {
		raw = minPercent
	}
	return raw, true
}

// ensure the capability interface lines up with the queue.
var _ CommandSender = (*doip.DispatchQueue)(nil)
