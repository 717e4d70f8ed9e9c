package device

import (
	"sync"

	"github.com/greyfold/teletask-bridge/internal/bridges/doip"
)

// Device is what the registry routes events to and the sync routine
// queries.
type Device interface {
	// Name is the human-readable identifier used in logs and topics.
	Name() string

	// Function is the class the device's primary state lives on.
	Function() doip.Function

	// Do performs an action. Devices return ErrUnsupportedAction for
	// actions outside their capability.
	Do(action Action) error

	// ApplyRemoteState records a raw value reported by the bus for the
	// device's primary state.
	ApplyRemoteState(raw int)

	// StateAddresses lists the addresses the startup sync queries for
	// this device.
	StateAddresses() []int
}

// updateNotifier fans device updates out to registered observers.
// Embedded by the concrete devices.
type updateNotifier struct {
	mu        sync.Mutex
	callbacks []func()
}

// RegisterUpdateCallback adds an observer invoked after every state
// change of the device.
func (n *updateNotifier) RegisterUpdateCallback(callback func()) {
	n.mu.Lock()
	n.callbacks = append(n.callbacks, callback)
	n.mu.Unlock()
}

// notifyUpdated invokes the observers against a snapshot so callbacks
// may register further callbacks without deadlocking.
func (n *updateNotifier) notifyUpdated() {
	n.mu.Lock()
	snapshot := make([]func(), len(n.callbacks))
	copy(snapshot, n.callbacks)
	n.mu.Unlock()

	for _, callback := range snapshot {
		callback()
	}
}
