package doip

import "errors"

// Package-level errors for DoIP operations.
var (
	// ErrNotConnected indicates the transport is not connected to the central unit.
	ErrNotConnected = errors.New("doip: not connected to central unit")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("doip: connection failed")

	// ErrWriteFailed indicates a frame could not be written to the socket.
	ErrWriteFailed = errors.New("doip: write failed")

	// ErrInvalidCommand indicates a command that cannot be encoded as a
	// valid frame (missing function, missing address, unknown kind).
	ErrInvalidCommand = errors.New("doip: invalid command")

	// ErrNotRunning indicates a submit against a dispatch queue that is
	// not in the running state.
	ErrNotRunning = errors.New("doip: dispatch queue not running")

	// ErrAlreadyRunning indicates a start against a queue that is already running.
	ErrAlreadyRunning = errors.New("doip: dispatch queue already running")

	// ErrClosed indicates an operation on a closed client.
	ErrClosed = errors.New("doip: client closed")
)
