package dirmon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0xmhha/dirmon/pkg/backend"
	"github.com/0xmhha/dirmon/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceRequiresScheduler(t *testing.T) {
	svc, err := NewService(nil, Config{}, logger.Noop())
	assert.ErrorIs(t, err, ErrNilScheduler)
	assert.Nil(t, svc)
}

func TestConstructIssuesDistinctHandles(t *testing.T) {
	svc, opener := newFakeService(t, 0)

	a, err := svc.Construct()
	require.NoError(t, err)
	b, err := svc.Construct()
	require.NoError(t, err)

	assert.False(t, a.IsZero())
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, svc.Len())
	assert.Len(t, opener.Handles(), 2)
}

func TestConstructBackendOpenError(t *testing.T) {
	svc, opener := newFakeService(t, 0)
	opener.Err = errors.New("no descriptors left")

	_, err := svc.Construct()
	assert.ErrorIs(t, err, ErrBackendFailure)
	assert.Equal(t, 0, svc.Len())
}

func TestServiceWatchSetPerHandle(t *testing.T) {
	svc, _ := newFakeService(t, 0)

	const monitors = 4
	handles := make([]Handle, monitors)
	for i := range handles {
		h, err := svc.Construct()
		require.NoError(t, err)
		handles[i] = h
	}

	dirs := make([][]string, monitors)
	for i := range dirs {
		for j := 0; j < 3; j++ {
			dirs[i] = append(dirs[i], t.TempDir())
		}
	}

	var wg sync.WaitGroup
	for i, h := range handles {
		wg.Add(1)
		go func(h Handle, mine []string) {
			defer wg.Done()
			for _, dir := range mine {
				assert.NoError(t, svc.AddDirectory(h, dir))
			}
			assert.NoError(t, svc.RemoveDirectory(h, mine[1]))
		}(h, dirs[i])
	}
	wg.Wait()

	for i, h := range handles {
		got, err := svc.Directories(h)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{dirs[i][0], dirs[i][2]}, got)
	}
}

func TestServiceAddDirectoryInvalidPath(t *testing.T) {
	svc, opener := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "nope")
	err = svc.AddDirectory(h, missing)
	assert.ErrorIs(t, err, ErrInvalidPath)

	got, err := svc.Directories(h)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, opener.Last().Watching(missing))
}

func TestServiceUnknownHandle(t *testing.T) {
	svc, _ := newFakeService(t, 0)
	var h Handle

	assert.ErrorIs(t, svc.AddDirectory(h, t.TempDir()), ErrUnknownMonitor)
	assert.ErrorIs(t, svc.RemoveDirectory(h, t.TempDir()), ErrUnknownMonitor)
	assert.ErrorIs(t, svc.Destroy(h), ErrUnknownMonitor)

	_, err := svc.Directories(h)
	assert.ErrorIs(t, err, ErrUnknownMonitor)

	_, err = svc.Monitor(context.Background(), h)
	assert.ErrorIs(t, err, ErrUnknownMonitor)
}

func TestDestroy(t *testing.T) {
	svc, opener := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)
	fake := opener.Last()

	require.NoError(t, svc.Destroy(h))
	assert.Equal(t, 0, svc.Len())
	assert.True(t, fake.Interrupted())
	assert.True(t, fake.Closed())

	assert.ErrorIs(t, svc.Destroy(h), ErrUnknownMonitor)
}

func TestDestroyConcurrentWithDirectoryChanges(t *testing.T) {
	for round := 0; round < 20; round++ {
		svc, _ := newFakeService(t, 0)
		h, err := svc.Construct()
		require.NoError(t, err)

		dirs := []string{t.TempDir(), t.TempDir()}
		start := make(chan struct{})
		errCh := make(chan error, 64)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(dir string) {
				defer wg.Done()
				<-start
				for {
					err := svc.AddDirectory(h, dir)
					if err == nil {
						err = svc.RemoveDirectory(h, dir)
					}
					if err != nil {
						errCh <- err
						return
					}
				}
			}(dirs[i%len(dirs)])
		}

		close(start)
		require.NoError(t, svc.Destroy(h))
		wg.Wait()
		close(errCh)

		for err := range errCh {
			assert.ErrorIs(t, err, ErrUnknownMonitor)
			assert.NotErrorIs(t, err, ErrBackendFailure)
		}
	}
}

func TestMonitorSync(t *testing.T) {
	svc, opener := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, svc.AddDirectory(h, dir))

	opener.Last().InjectCreate(dir, "f.txt")

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	ev, err := svc.Monitor(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, Event{Path: dir, Kind: Added, Name: "f.txt"}, ev)
}

func TestMonitorSyncAbortedByDestroy(t *testing.T) {
	svc, _ := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Monitor(context.Background(), h)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, svc.Destroy(h))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrOperationAborted)
	case <-time.After(waitTimeout):
		t.Fatal("Monitor was not released by Destroy")
	}
}

func TestMonitorRealBackend(t *testing.T) {
	openers := map[string]backend.Opener{
		backend.NameFsnotify: backend.OpenFsnotify,
		backend.NameAuto:     backend.Default(),
	}

	for name, open := range openers {
		t.Run(name, func(t *testing.T) {
			svc, err := NewService(startLoop(t), Config{Backend: open}, logger.Noop())
			require.NoError(t, err)
			defer svc.Close()

			h, err := svc.Construct()
			require.NoError(t, err)

			dir := t.TempDir()
			require.NoError(t, svc.AddDirectory(h, dir))

			f, err := os.Create(filepath.Join(dir, "f.txt"))
			require.NoError(t, err)
			require.NoError(t, f.Close())

			ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
			defer cancel()

			ev, err := svc.Monitor(ctx, h)
			require.NoError(t, err)
			assert.Equal(t, Event{Path: dir, Kind: Added, Name: "f.txt"}, ev)
		})
	}
}

func TestAsyncMonitorOneEventPerCall(t *testing.T) {
	svc, opener := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, svc.AddDirectory(h, dir))

	fake := opener.Last()
	fake.InjectCreate(dir, "a")
	fake.InjectCreate(dir, "b")

	handler, results := collector()
	require.NoError(t, svc.AsyncMonitor(h, handler))

	r := receive(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, "a", r.ev.Name)
	requireNoMore(t, results)

	require.NoError(t, svc.AsyncMonitor(h, handler))
	r = receive(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, "b", r.ev.Name)
	requireNoMore(t, results)
}

func TestAsyncMonitorDeliversInDetectionOrder(t *testing.T) {
	svc, opener := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, svc.AddDirectory(h, dir))

	var (
		mu    sync.Mutex
		order []string
		done  = make(chan struct{}, 2)
	)
	record := func(err error, ev Event) {
		assert.NoError(t, err)
		mu.Lock()
		order = append(order, ev.Name)
		mu.Unlock()
		done <- struct{}{}
	}

	// Both waits are queued before anything happens on disk.
	require.NoError(t, svc.AsyncMonitor(h, record))
	require.NoError(t, svc.AsyncMonitor(h, record))

	fake := opener.Last()
	fake.InjectCreate(dir, "e1")
	fake.InjectWrite(dir, "e2")

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Fatal("timed out waiting for completions")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"e1", "e2"}, order)
}

func TestAsyncMonitorDestroyWhilePending(t *testing.T) {
	svc, _ := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)

	handler, results := collector()
	require.NoError(t, svc.AsyncMonitor(h, handler))
	require.NoError(t, svc.Destroy(h))

	r := receive(t, results)
	assert.ErrorIs(t, r.err, ErrOperationAborted)
	assert.Equal(t, Event{}, r.ev)
	requireNoMore(t, results)
}

func TestAsyncMonitorAfterDestroy(t *testing.T) {
	svc, _ := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)
	require.NoError(t, svc.Destroy(h))

	handler, results := collector()
	require.NoError(t, svc.AsyncMonitor(h, handler))

	r := receive(t, results)
	assert.ErrorIs(t, r.err, ErrOperationAborted)
	requireNoMore(t, results)
}

func TestAsyncMonitorBackendFailure(t *testing.T) {
	svc, opener := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)

	boom := errors.New("boom")
	opener.Last().Fail(boom)

	handler, results := collector()
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.AsyncMonitor(h, handler))
		r := receive(t, results)
		assert.ErrorIs(t, r.err, ErrBackendFailure)
		assert.ErrorIs(t, r.err, boom)
	}
}

func TestAsyncMonitorNilHandler(t *testing.T) {
	svc, _ := newFakeService(t, 0)
	h, err := svc.Construct()
	require.NoError(t, err)

	assert.ErrorIs(t, svc.AsyncMonitor(h, nil), ErrNilHandler)
}

func TestAsyncMonitorPostsToScheduler(t *testing.T) {
	poster := &manualPoster{}
	opener := &backend.FakeOpener{}
	svc, err := NewService(poster, Config{Backend: opener.Open}, logger.Noop())
	require.NoError(t, err)
	defer svc.Close()

	h, err := svc.Construct()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, svc.AddDirectory(h, dir))
	opener.Last().InjectCreate(dir, "a")

	handler, results := collector()
	require.NoError(t, svc.AsyncMonitor(h, handler))

	// The bridge posts the completion but never runs it itself.
	require.Eventually(t, func() bool { return poster.posted() == 1 }, waitTimeout, 5*time.Millisecond)
	assert.Empty(t, results)

	poster.runAll()
	r := receive(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, "a", r.ev.Name)
}

func TestAsyncMonitorRefusedPostIsLogged(t *testing.T) {
	var buf syncBuffer
	log := logger.NewWithWriter(logger.Config{Level: "warn", Format: "text"}, &buf)

	poster := &manualPoster{err: errors.New("scheduler stopped")}
	svc, err := NewService(poster, Config{Backend: (&backend.FakeOpener{}).Open}, log)
	require.NoError(t, err)
	defer svc.Close()

	handler, results := collector()
	require.NoError(t, svc.AsyncMonitor(Handle{id: 42}, handler))

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "scheduler refused completion")
	}, waitTimeout, 5*time.Millisecond)
	assert.Contains(t, buf.String(), "monitor-42")
	assert.Empty(t, results)
}

func TestServiceClose(t *testing.T) {
	opener := &backend.FakeOpener{}
	svc, err := NewService(startLoop(t), Config{Backend: opener.Open}, logger.Noop())
	require.NoError(t, err)

	h, err := svc.Construct()
	require.NoError(t, err)
	_, err = svc.Construct()
	require.NoError(t, err)

	handler, results := collector()
	require.NoError(t, svc.AsyncMonitor(h, handler))

	require.NoError(t, svc.Close())
	assert.Equal(t, 0, svc.Len())
	for _, fake := range opener.Handles() {
		assert.True(t, fake.Closed())
	}

	r := receive(t, results)
	assert.ErrorIs(t, r.err, ErrOperationAborted)

	_, err = svc.Construct()
	assert.ErrorIs(t, err, ErrServiceClosed)
	assert.ErrorIs(t, svc.AsyncMonitor(h, handler), ErrServiceClosed)
	assert.ErrorIs(t, svc.Close(), ErrServiceClosed)

	select {
	case <-svc.bridge.done:
	default:
		t.Fatal("bridge goroutine still running after Close")
	}
}

func TestServiceCloseUnused(t *testing.T) {
	svc, err := NewService(&manualPoster{}, Config{Backend: (&backend.FakeOpener{}).Open}, logger.Noop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- svc.Close()
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Close hung on a service that never started its bridge")
	}
}
