package scheduler

import "errors"

// Common errors returned by the scheduler package.
var (
	// ErrQueueClosed is returned when pushing to a closed queue.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrLoopClosed is returned when posting to a loop that is shutting down.
	ErrLoopClosed = errors.New("loop is closed")

	// ErrLoopRunning is returned when Run is called on a loop that is already running.
	ErrLoopRunning = errors.New("loop already running")

	// ErrNilTask is returned when a nil task is submitted.
	ErrNilTask = errors.New("nil task")
)
