package dirmon

import (
	"context"
	"sync"

	"github.com/0xmhha/dirmon/pkg/logger"
	"github.com/0xmhha/dirmon/pkg/scheduler"
)

// bridge is the dedicated execution context for blocking work. One goroutine
// runs queued tasks in submission order; pump goroutines are started through
// it so shutdown can join them too.
type bridge struct {
	queue  *scheduler.Queue
	logger logger.Logger

	startOnce sync.Once
	done      chan struct{} // closed when the task goroutine exits
	pumps     sync.WaitGroup
}

func newBridge(log logger.Logger) *bridge {
	return &bridge{
		queue:  scheduler.NewQueue(),
		logger: logger.Component(log, "bridge"),
		done:   make(chan struct{}),
	}
}

// start launches the task goroutine on first use.
func (b *bridge) start() {
	b.startOnce.Do(func() {
		b.logger.Debug("bridge started")
		go b.run()
	})
}

// submit queues a task. It is safe from any goroutine.
func (b *bridge) submit(task func()) error {
	b.start()
	if err := b.queue.Push(task); err != nil {
		return ErrServiceClosed
	}
	return nil
}

// spawn runs fn on a goroutine joined by stop.
func (b *bridge) spawn(fn func()) {
	b.pumps.Add(1)
	go func() {
		defer b.pumps.Done()
		fn()
	}()
}

// pending returns the number of tasks waiting for the task goroutine.
func (b *bridge) pending() int {
	return b.queue.Len()
}

func (b *bridge) run() {
	defer close(b.done)

	for {
		task, ok := b.queue.Next(context.Background())
		if !ok {
			return
		}
		b.safeExecute(task)
	}
}

// stop refuses new tasks, lets the queued ones run, then joins the task
// goroutine and every pump. Pumps only exit once their monitor is destroyed,
// so callers destroy monitors first.
func (b *bridge) stop() {
	b.queue.Close()

	// Never started: there is no goroutine to close done.
	b.startOnce.Do(func() {
		close(b.done)
	})

	<-b.done
	b.pumps.Wait()

	b.logger.Debug("bridge stopped")
}

func (b *bridge) safeExecute(task scheduler.Task) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bridge task panicked", "panic", r)
		}
	}()

	task()
}
