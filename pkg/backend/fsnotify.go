package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyHandle implements Handle on top of fsnotify.
type fsnotifyHandle struct {
	fsw *fsnotify.Watcher

	mu      sync.RWMutex
	watched map[string]struct{}
	closed  bool

	interrupt     chan struct{}
	interruptOnce sync.Once
}

// OpenFsnotify opens a portable fsnotify-based backend.
//
// fsnotify reports a path, not the watch it came from. An event whose path
// is itself a watched directory is reported as a change of that directory
// (Name empty), even when it was raised by a watched parent about its
// child. With nested watches the same change can therefore show up twice:
// once as the child's own event and once, identically, through the parent.
// The inotify backend does not have this ambiguity.
func OpenFsnotify() (Handle, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &fsnotifyHandle{
		fsw:       fsw,
		watched:   make(map[string]struct{}),
		interrupt: make(chan struct{}),
	}, nil
}

// AddWatch implements Handle.AddWatch.
func (h *fsnotifyHandle) AddWatch(dir string) error {
	dir = filepath.Clean(dir)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if _, ok := h.watched[dir]; ok {
		return nil
	}
	if err := h.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to add watch on %s: %w", dir, err)
	}
	h.watched[dir] = struct{}{}
	return nil
}

// RemoveWatch implements Handle.RemoveWatch.
func (h *fsnotifyHandle) RemoveWatch(dir string) error {
	dir = filepath.Clean(dir)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if _, ok := h.watched[dir]; !ok {
		return nil
	}
	delete(h.watched, dir)

	// The kernel drops the watch by itself when the directory disappears.
	if err := h.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return fmt.Errorf("failed to remove watch on %s: %w", dir, err)
	}
	return nil
}

// Read implements Handle.Read.
func (h *fsnotifyHandle) Read() (RawChange, error) {
	for {
		// Interrupt wins over anything already buffered.
		select {
		case <-h.interrupt:
			return RawChange{}, ErrInterrupted
		default:
		}

		select {
		case <-h.interrupt:
			return RawChange{}, ErrInterrupted

		case event, ok := <-h.fsw.Events:
			if !ok {
				return RawChange{}, ErrClosed
			}
			if change, keep := h.translate(event); keep {
				return change, nil
			}

		case err, ok := <-h.fsw.Errors:
			if !ok {
				return RawChange{}, ErrClosed
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				return RawChange{Op: OpOverflow}, nil
			}
			return RawChange{}, fmt.Errorf("fsnotify error: %w", err)
		}
	}
}

// translate converts an fsnotify event to a RawChange. Events without any
// operation bits are dropped. A path that is a watched directory maps to
// that directory itself; see OpenFsnotify.
func (h *fsnotifyHandle) translate(event fsnotify.Event) (RawChange, bool) {
	var op Op
	if event.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if event.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if event.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if event.Has(fsnotify.Rename) {
		// fsnotify reports the old name only; the new name shows up as Create.
		op |= OpRenameFrom
	}
	if event.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	if op == 0 {
		return RawChange{}, false
	}

	name := filepath.Clean(event.Name)

	h.mu.Lock()
	_, isDir := h.watched[name]
	if isDir && op.Has(OpRemove) {
		delete(h.watched, name)
	}
	h.mu.Unlock()

	if isDir {
		return RawChange{Dir: name, Op: op}, true
	}
	return RawChange{Dir: filepath.Dir(name), Name: filepath.Base(name), Op: op}, true
}

// Interrupt implements Handle.Interrupt.
func (h *fsnotifyHandle) Interrupt() error {
	h.interruptOnce.Do(func() {
		close(h.interrupt)
	})
	return nil
}

// Close implements Handle.Close.
func (h *fsnotifyHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.watched = nil
	h.mu.Unlock()

	if err := h.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}
	return nil
}
