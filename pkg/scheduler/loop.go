package scheduler

import (
	"context"
	"sync"

	"github.com/0xmhha/dirmon/pkg/logger"
)

// Loop is a cooperative single-goroutine scheduler.
//
// Tasks posted with Post run in FIFO order on the goroutine that calls Run,
// never concurrently with each other. Post is safe from any goroutine.
type Loop struct {
	queue  *Queue
	logger logger.Logger

	mu    sync.Mutex
	state State
	done  chan struct{} // closed when Run returns
}

// NewLoop creates a loop in the idle state.
func NewLoop(log logger.Logger) *Loop {
	return &Loop{
		queue:  NewQueue(),
		logger: logger.Component(log, "scheduler"),
		done:   make(chan struct{}),
	}
}

// Post schedules a task to run on the loop goroutine.
//
// Tasks may be posted before Run is called; they run once the loop starts.
// Returns ErrLoopClosed once Shutdown has begun.
func (l *Loop) Post(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	if err := l.queue.Push(task); err != nil {
		return ErrLoopClosed
	}
	return nil
}

// Run executes posted tasks until Shutdown drains the loop or ctx is done.
//
// Returns nil after a Shutdown, ctx.Err() if the context ended first.
// A loop can be run only once.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case StateRunning:
		l.mu.Unlock()
		return ErrLoopRunning
	case StateTerminating, StateTerminated:
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.state = StateRunning
	l.mu.Unlock()

	l.logger.Debug("loop started")

	defer func() {
		l.queue.Close()
		if dropped := l.queue.Len(); dropped > 0 {
			l.logger.Warn("loop stopped with pending tasks", "dropped", dropped)
		}

		l.mu.Lock()
		l.state = StateTerminated
		l.mu.Unlock()
		close(l.done)

		l.logger.Debug("loop stopped")
	}()

	for {
		task, ok := l.queue.Next(ctx)
		if !ok {
			break
		}
		l.safeExecute(task)
	}

	return ctx.Err()
}

// Shutdown stops the loop from accepting new tasks and waits until the tasks
// already posted have run.
//
// Returns ctx.Err() if ctx ends before the loop has drained. Shutdown must not
// be called from a task running on the loop; post-and-return instead by using
// ShutdownAsync.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case StateIdle:
		// Never started: nothing will drain the queue.
		l.state = StateTerminated
		l.mu.Unlock()
		l.queue.Close()
		close(l.done)
		return nil
	case StateRunning:
		l.state = StateTerminating
	}
	l.mu.Unlock()

	l.queue.Close()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownAsync stops the loop from accepting new tasks without waiting for
// it to drain. It is safe to call from a task running on the loop.
func (l *Loop) ShutdownAsync() {
	l.mu.Lock()
	if l.state == StateRunning {
		l.state = StateTerminating
	}
	l.mu.Unlock()

	l.queue.Close()
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Done returns a channel closed once the loop has terminated.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// safeExecute runs a task, recovering from panics so one bad callback does
// not take the loop down.
func (l *Loop) safeExecute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()

	task()
}
