package device

import (
	"fmt"
	"sync"

	"github.com/greyfold/teletask-bridge/internal/bridges/doip"
)

// CommandSender is the only capability remote values hold on the bus:
// queueing an outbound command. Satisfied by *doip.DispatchQueue.
type CommandSender interface {
	Submit(cmd doip.Command) error
}

// RemoteValue is the state cell behind one device attribute. It keeps
// the last known wire payload, detects changes, and writes new values
// through the command sender.
//
// Writes are optimistic: the local payload and the change callback
// update before the wire write is issued, and a failed write is not
// rolled back. The next state sync or event report resynchronizes.
type RemoteValue struct {
	sender   CommandSender
	function doip.Function
	address  int
	owner    string

	mu         sync.Mutex
	payload    int
	hasPayload bool

	onChange func()
}

// newRemoteValue builds the shared cell; the typed wrappers own the
// domain conversion.
func newRemoteValue(sender CommandSender, function doip.Function, address int, owner string, onChange func()) RemoteValue {
	return RemoteValue{
		sender:   sender,
		function: function,
		address:  address,
		owner:    owner,
		onChange: onChange,
	}
}

// Initialized reports whether the value has a bus address.
func (v *RemoteValue) Initialized() bool {
	return v.address > 0
}

// Function returns the value's function class.
func (v *RemoteValue) Function() doip.Function {
	return v.function
}

// Address returns the value's bus address, zero when absent.
func (v *RemoteValue) Address() int {
	return v.address
}

// Payload returns the last known wire payload. The second return is
// false until the first Apply or set.
func (v *RemoteValue) Payload() (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.payload, v.hasPayload
}

// Apply records a payload reported by the bus. It returns true when
// the value changed; the first payload always counts as a change so
// observers learn the initial state. The change callback fires outside
// the lock.
func (v *RemoteValue) Apply(raw int) bool {
	v.mu.Lock()
	changed := !v.hasPayload || v.payload != raw
	v.payload = raw
	v.hasPayload = true
	v.mu.Unlock()

	if changed && v.onChange != nil {
		v.onChange()
	}
	return changed
}

// RequestState queues a Get for the value's address.
func (v *RemoteValue) RequestState() error {
	if !v.Initialized() {
		return fmt.Errorf("%w: %s", ErrNotInitialized, v.owner)
	}
	return v.sender.Submit(doip.NewGet(v.function, v.address))
}

// StateAddresses returns the addresses the startup sync should query
// for this value: the configured address, or nothing when absent.
func (v *RemoteValue) StateAddresses() []int {
	if !v.Initialized() {
		return nil
	}
	return []int{v.address}
}

// set updates the local payload optimistically and issues the wire
// write. A changed payload fires the callback before the write; a
// rejected write is returned but the local state stands.
func (v *RemoteValue) set(wire int) error {
	if !v.Initialized() {
		return fmt.Errorf("%w: %s", ErrNotInitialized, v.owner)
	}

	v.mu.Lock()
	changed := !v.hasPayload || v.payload != wire
	v.payload = wire
	v.hasPayload = true
	v.mu.Unlock()

	if changed && v.onChange != nil {
		v.onChange()
	}

	return v.sender.Submit(doip.NewSet(v.function, v.address, wire))
}

// submitSetting issues a raw setting without touching local state,
// used for toggles where the resulting state comes back as an event.
func (v *RemoteValue) submitSetting(setting int) error {
	if !v.Initialized() {
		return fmt.Errorf("%w: %s", ErrNotInitialized, v.owner)
	}
	return v.sender.Submit(doip.NewSet(v.function, v.address, setting))
}
