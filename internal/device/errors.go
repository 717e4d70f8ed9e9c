package device

import "errors"

// Package-level errors for device operations.
var (
	// ErrDuplicateDevice indicates a registration against a
	// (function, address) key that is already taken. The first
	// registration wins; the caller must unregister it explicitly.
	ErrDuplicateDevice = errors.New("device: duplicate registration")

	// ErrIllegalValue indicates a domain value outside the attribute's
	// range, such as a brightness above 100 percent.
	ErrIllegalValue = errors.New("device: illegal value")

	// ErrNotInitialized indicates an operation on a remote value with
	// no bus address configured.
	ErrNotInitialized = errors.New("device: remote value not initialized")

	// ErrUnsupportedAction indicates an action the device cannot
	// perform, such as setting a level on a plain switch.
	ErrUnsupportedAction = errors.New("device: unsupported action")
)
