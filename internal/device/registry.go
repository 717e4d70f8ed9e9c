package device

import (
	"fmt"
	"sort"
	"sync"

	"github.com/greyfold/teletask-bridge/internal/bridges/doip"
)

// Logger is the minimal logging interface used by this package.
// Satisfied by *logging.Logger; a nil logger disables logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Key addresses one routable state channel on the bus.
type Key struct {
	Function doip.Function
	Address  int
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Function, k.Address)
}

// Registry maps (function, address) keys to devices and routes bus
// events to them. It implements doip.EventRouter and doip.StateSyncer.
type Registry struct {
	mu      sync.RWMutex
	devices map[Key]Device
	logger  Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger Logger) *Registry {
	return &Registry{
		devices: make(map[Key]Device),
		logger:  logger,
	}
}

// Register binds a device to a key. A taken key is rejected with
// ErrDuplicateDevice; the existing registration stands.
func (r *Registry) Register(function doip.Function, address int, dev Device) error {
	if dev == nil {
		return fmt.Errorf("device: registering nil device at %s/%d", function, address)
	}
	if address <= 0 {
		return fmt.Errorf("device: invalid address %d for %q", address, dev.Name())
	}

	key := Key{Function: function, Address: address}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.devices[key]; ok {
		return fmt.Errorf("%w: %s already held by %q", ErrDuplicateDevice, key, existing.Name())
	}
	r.devices[key] = dev

	if r.logger != nil {
		r.logger.Debug("device registered", "key", key.String(), "device", dev.Name())
	}
	return nil
}

// RegisterDevice binds a device under its primary function and every
// state address it exposes, plus the dimmer channel for dimmable
// lights.
func (r *Registry) RegisterDevice(dev Device) error {
	for _, address := range dev.StateAddresses() {
		if err := r.Register(dev.Function(), address, dev); err != nil {
			return err
		}
	}
	if light, ok := dev.(*Light); ok {
		if receiver := light.BrightnessReceiver(); receiver != nil {
			for _, address := range receiver.StateAddresses() {
				if err := r.Register(receiver.Function(), address, receiver); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Unregister removes the registration under a key. Returns false when
// the key was free.
func (r *Registry) Unregister(function doip.Function, address int) bool {
	key := Key{Function: function, Address: address}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[key]; !ok {
		return false
	}
	delete(r.devices, key)
	return true
}

// Get returns the device registered under a key.
func (r *Registry) Get(function doip.Function, address int) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[Key{Function: function, Address: address}]
	return dev, ok
}

// Count returns the number of registrations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Route delivers a bus event to the device registered under the
// event's key. Unknown function tags and unregistered keys are dropped
// with a debug log; an event report is informational, not a fault.
func (r *Registry) Route(event doip.Event) {
	if !event.Function.IsKnown() {
		if r.logger != nil {
			r.logger.Debug("dropping event for unknown function", "event", event.String())
		}
		return
	}

	r.mu.RLock()
	dev, ok := r.devices[Key{Function: event.Function, Address: event.Address}]
	r.mu.RUnlock()

	if !ok {
		if r.logger != nil {
			r.logger.Debug("dropping event for unregistered address", "event", event.String())
		}
		return
	}

	dev.ApplyRemoteState(event.State)
}

// SyncTargets lists every registered key for the startup state sync,
// in deterministic order.
func (r *Registry) SyncTargets() []doip.SyncTarget {
	r.mu.RLock()
	targets := make([]doip.SyncTarget, 0, len(r.devices))
	for key := range r.devices {
		targets = append(targets, doip.SyncTarget{Function: key.Function, Address: key.Address})
	}
	r.mu.RUnlock()

	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Function != targets[j].Function {
			return targets[i].Function < targets[j].Function
		}
		return targets[i].Address < targets[j].Address
	})
	return targets
}
