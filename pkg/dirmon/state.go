package dirmon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/0xmhha/dirmon/pkg/backend"
	"github.com/0xmhha/dirmon/pkg/logger"
)

// monitorState is one logical watch session: a backend handle, the set of
// watched directories and the FIFO of decoded events not yet delivered.
//
// The pump goroutine is the only producer. popEvent must have at most one
// caller at a time.
type monitorState struct {
	handle  Handle
	backend backend.Handle
	logger  logger.Logger
	limit   int

	// watchMu serializes watch set changes with the matching backend call.
	watchMu sync.Mutex
	watched map[string]struct{}

	mu        sync.Mutex
	queue     []Event
	destroyed bool
	failure   error

	ready    chan struct{} // an event was queued or the backend failed
	space    chan struct{} // an event was consumed
	done     chan struct{} // closed by destroy
	pumpDone chan struct{} // closed when the pump exits; nil until beginRead
}

func newMonitorState(h Handle, bh backend.Handle, limit int, log logger.Logger) *monitorState {
	return &monitorState{
		handle:  h,
		backend: bh,
		logger:  log.With(logger.MonitorKey, h.String()),
		limit:   limit,
		watched: make(map[string]struct{}),
		ready:   make(chan struct{}, 1),
		space:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// beginRead starts the pump. spawn must run fn on its own goroutine.
func (s *monitorState) beginRead(spawn func(fn func())) {
	s.pumpDone = make(chan struct{})
	spawn(func() {
		defer close(s.pumpDone)
		s.pump()
	})
}

// addDirectory starts watching path. Adding a watched directory again is a
// no-op. Returns errAlreadyDestroyed once destroy has begun.
func (s *monitorState) addDirectory(path string) error {
	dir, err := resolveDirectory(path)
	if err != nil {
		return err
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.isDestroyed() {
		return errAlreadyDestroyed
	}
	if _, ok := s.watched[dir]; ok {
		return nil
	}
	if err := s.backend.AddWatch(dir); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendFailure, err)
	}
	s.watched[dir] = struct{}{}

	s.logger.Debug("directory added", "path", dir)
	return nil
}

// removeDirectory stops watching path. Removing an unwatched path is a no-op.
// Returns errAlreadyDestroyed once destroy has begun.
func (s *monitorState) removeDirectory(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return nil
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.isDestroyed() {
		return errAlreadyDestroyed
	}
	if _, ok := s.watched[dir]; !ok {
		return nil
	}
	if err := s.backend.RemoveWatch(dir); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendFailure, err)
	}
	delete(s.watched, dir)

	s.logger.Debug("directory removed", "path", dir)
	return nil
}

// forget drops dir from the watch set after the backend stopped watching it
// on its own.
func (s *monitorState) forget(dir string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if _, ok := s.watched[dir]; ok {
		delete(s.watched, dir)
		s.logger.Debug("backend dropped directory", "path", dir)
	}
}

// directories returns the watched directories, sorted.
func (s *monitorState) directories() []string {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	dirs := make([]string, 0, len(s.watched))
	for dir := range s.watched {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// popEvent returns the oldest queued event, blocking until one is decoded.
//
// Returns ErrOperationAborted once the state is destroyed. After a backend
// failure, queued events are still returned first, then the failure.
func (s *monitorState) popEvent(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.destroyed {
			s.mu.Unlock()
			return Event{}, ErrOperationAborted
		}
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			signal(s.space)
			return ev, nil
		}
		if s.failure != nil {
			err := s.failure
			s.mu.Unlock()
			return Event{}, err
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-s.done:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// pending returns the number of queued events.
func (s *monitorState) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// pump reads the backend until it is interrupted or fails.
func (s *monitorState) pump() {
	s.logger.Debug("pump started")
	defer s.logger.Debug("pump stopped")

	for {
		raw, err := s.backend.Read()
		if err != nil {
			if errors.Is(err, backend.ErrInterrupted) || s.isDestroyed() {
				return
			}
			s.fail(err)
			return
		}

		ev, ok := s.decode(raw)
		if !ok {
			continue
		}
		if !s.enqueue(ev) {
			return
		}
	}
}

// enqueue appends ev, waiting for room when the queue is at its limit.
// Returns false if the state was destroyed meanwhile.
func (s *monitorState) enqueue(ev Event) bool {
	for {
		s.mu.Lock()
		if s.destroyed {
			s.mu.Unlock()
			return false
		}
		if s.limit <= 0 || len(s.queue) < s.limit {
			s.queue = append(s.queue, ev)
			s.mu.Unlock()

			signal(s.ready)
			s.logger.Debug("event queued", "kind", ev.Kind, "path", ev.Path, "name", ev.Name)
			return true
		}
		s.mu.Unlock()

		select {
		case <-s.space:
		case <-s.done:
			return false
		}
	}
}

// fail records a terminal backend error and wakes the consumer.
func (s *monitorState) fail(err error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.failure = fmt.Errorf("%w: %w", ErrBackendFailure, err)
	s.mu.Unlock()

	s.logger.Error("backend failed", "error", err)
	signal(s.ready)
}

func (s *monitorState) isDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// destroy releases waiters, interrupts the backend read, waits for the pump
// and closes the backend. It must be called once; later calls return
// errAlreadyDestroyed.
func (s *monitorState) destroy() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return errAlreadyDestroyed
	}
	s.destroyed = true
	dropped := len(s.queue)
	s.queue = nil
	close(s.done)
	s.mu.Unlock()

	if err := s.backend.Interrupt(); err != nil {
		s.logger.Warn("failed to interrupt backend", "error", err)
	}
	if s.pumpDone != nil {
		<-s.pumpDone
	}

	// Watch set changes check destroyed under watchMu, so none reaches the
	// backend after it is closed.
	s.watchMu.Lock()
	closeErr := s.backend.Close()
	s.watchMu.Unlock()
	if closeErr != nil {
		return fmt.Errorf("failed to close backend: %w", closeErr)
	}

	s.logger.Debug("monitor destroyed", "dropped_events", dropped)
	return nil
}

// resolveDirectory returns the absolute form of path if it names an existing
// directory.
func resolveDirectory(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return dir, nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
