package scheduler

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO task queue.
//
// Push may be called from any goroutine. Next is meant for a single
// consumer goroutine. Once closed, the queue refuses new tasks but still
// hands out the ones already queued; Next reports false only after the
// queue has been drained.
type Queue struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool

	// wake holds at most one pending signal for the consumer.
	wake chan struct{}
}

// NewQueue creates an empty, open queue.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Push appends a task to the queue.
//
// Returns ErrQueueClosed after Close, ErrNilTask for a nil task.
func (q *Queue) Push(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Next blocks until a task is available and returns it.
//
// Returns false when the queue is closed and empty, or when ctx is done.
func (q *Queue) Next(ctx context.Context) (Task, bool) {
	for {
		q.mu.Lock()
		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks[0] = nil
			q.tasks = q.tasks[1:]
			q.mu.Unlock()
			return task, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close stops the queue from accepting new tasks. Queued tasks remain
// available to Next. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
