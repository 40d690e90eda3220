package dirmon

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xmhha/dirmon/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeRunsTasksInOrder(t *testing.T) {
	b := newBridge(logger.Noop())

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, b.submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	b.stop()

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, b.pending())
}

func TestBridgeRecoversPanics(t *testing.T) {
	b := newBridge(logger.Noop())
	var ran atomic.Bool

	require.NoError(t, b.submit(func() { panic("bad task") }))
	require.NoError(t, b.submit(func() { ran.Store(true) }))
	b.stop()

	assert.True(t, ran.Load())
}

func TestBridgeRefusesAfterStop(t *testing.T) {
	b := newBridge(logger.Noop())
	b.stop()

	assert.ErrorIs(t, b.submit(func() {}), ErrServiceClosed)
}

func TestBridgeStopJoinsSpawned(t *testing.T) {
	b := newBridge(logger.Noop())
	b.start()

	release := make(chan struct{})
	var finished atomic.Bool
	b.spawn(func() {
		<-release
		finished.Store(true)
	})

	stopped := make(chan struct{})
	go func() {
		b.stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned before the spawned goroutine exited")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(waitTimeout):
		t.Fatal("stop did not return")
	}
	assert.True(t, finished.Load())
}
