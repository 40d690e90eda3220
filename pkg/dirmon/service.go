package dirmon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/0xmhha/dirmon/pkg/backend"
	"github.com/0xmhha/dirmon/pkg/logger"
)

// Service manages monitors on behalf of one caller scheduler.
//
// All methods are safe for concurrent use. Close must be called exactly once
// when the service is no longer needed; it destroys remaining monitors,
// drains the bridge and joins its goroutines.
type Service struct {
	sched  Poster
	open   backend.Opener
	limit  int
	logger logger.Logger
	bridge *bridge

	mu       sync.RWMutex
	monitors map[Handle]*monitorState
	nextID   uint64
	closed   bool
}

// NewService creates a service that delivers AsyncMonitor results on sched.
//
// The bridge goroutine is started lazily, on the first Construct or
// AsyncMonitor call.
func NewService(sched Poster, cfg Config, log logger.Logger) (*Service, error) {
	if sched == nil {
		return nil, ErrNilScheduler
	}
	if cfg.Backend == nil {
		cfg.Backend = backend.Default()
	}
	if cfg.QueueLimit < 0 {
		cfg.QueueLimit = 0
	}

	log = logger.Component(log, "dirmon")
	s := &Service{
		sched:    sched,
		open:     cfg.Backend,
		limit:    cfg.QueueLimit,
		logger:   log,
		bridge:   newBridge(log),
		monitors: make(map[Handle]*monitorState),
	}

	log.Info("directory monitor service created", "queue_limit", cfg.QueueLimit)
	return s, nil
}

// Construct creates a monitor with no watched directories and starts reading
// its backend.
func (s *Service) Construct() (Handle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Handle{}, ErrServiceClosed
	}
	s.nextID++
	h := Handle{id: s.nextID}
	s.mu.Unlock()

	bh, err := s.open()
	if err != nil {
		return Handle{}, fmt.Errorf("%w: failed to open backend: %w", ErrBackendFailure, err)
	}

	state := newMonitorState(h, bh, s.limit, s.logger)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if closeErr := bh.Close(); closeErr != nil {
			s.logger.Warn("failed to close backend", "error", closeErr)
		}
		return Handle{}, ErrServiceClosed
	}
	// The read can only start once the state is reachable by its handle.
	s.bridge.start()
	state.beginRead(s.bridge.spawn)
	s.monitors[h] = state
	s.mu.Unlock()

	s.logger.Debug("monitor constructed", logger.MonitorKey, h.String())
	return h, nil
}

// Destroy destroys a monitor. A wait in flight on it completes with
// ErrOperationAborted. Returns ErrUnknownMonitor if h is not registered.
func (s *Service) Destroy(h Handle) error {
	// Unregister first: from here on every lookup of h fails, so no method
	// reaches the state while it is torn down.
	s.mu.Lock()
	state, ok := s.monitors[h]
	delete(s.monitors, h)
	s.mu.Unlock()
	if !ok {
		return ErrUnknownMonitor
	}

	if err := state.destroy(); err != nil {
		return monitorErr(err)
	}

	s.logger.Debug("monitor released", logger.MonitorKey, h.String())
	return nil
}

// AddDirectory starts watching path on monitor h.
//
// Returns ErrInvalidPath if path is not an existing directory. Adding a
// watched directory again succeeds without effect.
func (s *Service) AddDirectory(h Handle, path string) error {
	state, ok := s.lookup(h)
	if !ok {
		return ErrUnknownMonitor
	}
	return monitorErr(state.addDirectory(path))
}

// RemoveDirectory stops watching path on monitor h. Removing a path that is
// not watched succeeds without effect.
func (s *Service) RemoveDirectory(h Handle, path string) error {
	state, ok := s.lookup(h)
	if !ok {
		return ErrUnknownMonitor
	}
	return monitorErr(state.removeDirectory(path))
}

// Directories returns the directories monitor h watches, sorted.
func (s *Service) Directories(h Handle) ([]string, error) {
	state, ok := s.lookup(h)
	if !ok {
		return nil, ErrUnknownMonitor
	}
	return state.directories(), nil
}

// Monitor blocks the calling goroutine until monitor h has an event.
//
// Returns ErrOperationAborted if the monitor is destroyed while waiting,
// ctx.Err() if ctx ends first. Must not be used while an AsyncMonitor call
// on the same handle is outstanding.
func (s *Service) Monitor(ctx context.Context, h Handle) (Event, error) {
	state, ok := s.lookup(h)
	if !ok {
		return Event{}, ErrUnknownMonitor
	}
	return state.popEvent(ctx)
}

// AsyncMonitor schedules one wait on monitor h and returns immediately.
//
// handler runs on the service's scheduler exactly once with the next event,
// or with ErrOperationAborted if the monitor is destroyed first (including
// when h is already gone by the time the wait runs). Callers re-issue
// AsyncMonitor to receive further events. Returns ErrServiceClosed, without
// ever calling handler, once Close has begun.
//
// Waits run one at a time on the bridge: a wait blocked on a quiet monitor
// holds up waits queued behind it for other monitors.
func (s *Service) AsyncMonitor(h Handle, handler Handler) error {
	if handler == nil {
		return ErrNilHandler
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrServiceClosed
	}

	op := &monitorOperation{
		target:  h,
		resolve: s.lookup,
		sched:   s.sched,
		handler: handler,
		logger:  s.logger,
	}
	return s.bridge.submit(op.run)
}

// Len returns the number of live monitors.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.monitors)
}

// Close destroys every remaining monitor, lets queued waits complete with
// ErrOperationAborted, and joins the bridge goroutines.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	s.closed = true
	states := make([]*monitorState, 0, len(s.monitors))
	for _, state := range s.monitors {
		states = append(states, state)
	}
	s.mu.Unlock()

	var errs []error
	for _, state := range states {
		if err := state.destroy(); err != nil && !errors.Is(err, errAlreadyDestroyed) {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.monitors = make(map[Handle]*monitorState)
	s.mu.Unlock()

	s.bridge.stop()

	s.logger.Info("directory monitor service closed", "destroyed_monitors", len(states))
	return errors.Join(errs...)
}

// monitorErr reports a state destroyed under a caller as an unknown monitor.
func monitorErr(err error) error {
	if errors.Is(err, errAlreadyDestroyed) {
		return ErrUnknownMonitor
	}
	return err
}

// lookup resolves a handle to its live state.
func (s *Service) lookup(h Handle) (*monitorState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.monitors[h]
	return state, ok
}
