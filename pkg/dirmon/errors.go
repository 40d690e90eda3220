package dirmon

import "errors"

// Common errors returned by dirmon.
var (
	// ErrInvalidPath is returned when a path is not an existing directory.
	ErrInvalidPath = errors.New("not a valid directory")

	// ErrOperationAborted is delivered to a wait that was interrupted because
	// its monitor was destroyed.
	ErrOperationAborted = errors.New("operation aborted")

	// ErrBackendFailure wraps a terminal backend error. No further events are
	// produced by that monitor.
	ErrBackendFailure = errors.New("backend failure")

	// ErrUnknownMonitor is returned for a handle that is not registered with
	// the service, including one that was already destroyed.
	ErrUnknownMonitor = errors.New("unknown monitor")

	// ErrServiceClosed is returned when using a closed service.
	ErrServiceClosed = errors.New("service is closed")

	// ErrNilHandler is returned by AsyncMonitor for a nil handler.
	ErrNilHandler = errors.New("nil handler")

	// ErrNilScheduler is returned by NewService without a scheduler.
	ErrNilScheduler = errors.New("nil scheduler")

	errAlreadyDestroyed = errors.New("monitor already destroyed")
)
