package backend

import "errors"

// Common errors returned by backends.
var (
	// ErrInterrupted is returned by Read after Interrupt.
	ErrInterrupted = errors.New("backend read interrupted")

	// ErrClosed is returned when using a closed handle.
	ErrClosed = errors.New("backend handle is closed")

	// ErrUnsupported is returned when a backend is not available on this platform.
	ErrUnsupported = errors.New("backend not supported on this platform")

	// ErrUnknownBackend is returned by ByName for an unrecognized name.
	ErrUnknownBackend = errors.New("unknown backend")
)
