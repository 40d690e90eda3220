package dirmon

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/0xmhha/dirmon/pkg/backend"
	"github.com/0xmhha/dirmon/pkg/logger"
	"github.com/0xmhha/dirmon/pkg/scheduler"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

// result is one handler invocation.
type result struct {
	err error
	ev  Event
}

// collector returns a handler that records every invocation.
func collector() (Handler, <-chan result) {
	ch := make(chan result, 16)
	return func(err error, ev Event) {
		ch <- result{err: err, ev: ev}
	}, ch
}

func receive(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for handler")
		return result{}
	}
}

func requireNoMore(t *testing.T, ch <-chan result) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("unexpected extra completion: %v %v", r.err, r.ev)
	case <-time.After(100 * time.Millisecond):
	}
}

// startLoop runs a scheduler loop for the duration of the test.
func startLoop(t *testing.T) *scheduler.Loop {
	t.Helper()

	loop := scheduler.NewLoop(logger.Noop())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = loop.Run(ctx)
	}()

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), waitTimeout)
		defer shutdownCancel()
		_ = loop.Shutdown(shutdownCtx)
		cancel()
	})
	return loop
}

// newFakeService creates a service backed by Fake handles and closes it at
// the end of the test.
func newFakeService(t *testing.T, limit int) (*Service, *backend.FakeOpener) {
	t.Helper()

	opener := &backend.FakeOpener{}
	svc, err := NewService(startLoop(t), Config{Backend: opener.Open, QueueLimit: limit}, logger.Noop())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = svc.Close()
	})
	return svc, opener
}

// newFakeState creates a monitor state with a running pump.
func newFakeState(t *testing.T, limit int) (*monitorState, *backend.Fake) {
	t.Helper()

	fake := backend.NewFake()
	state := newMonitorState(Handle{id: 1}, fake, limit, logger.Noop())

	var pumps sync.WaitGroup
	state.beginRead(func(fn func()) {
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			fn()
		}()
	})

	t.Cleanup(func() {
		_ = state.destroy()
		pumps.Wait()
	})
	return state, fake
}

// manualPoster stores posted tasks until the test runs them.
type manualPoster struct {
	mu    sync.Mutex
	tasks []func()
	err   error
}

func (p *manualPoster) Post(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *manualPoster) posted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func (p *manualPoster) runAll() {
	p.mu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

// syncBuffer is a bytes.Buffer safe for a logger writing from other
// goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
