//go:build linux

package backend

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

const inotifyWatchMask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_ATTRIB |
	unix.IN_DELETE | unix.IN_DELETE_SELF |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_MOVE_SELF |
	unix.IN_ONLYDIR

// inotifyReadBuffer fits 64 records carrying a NAME_MAX (255) name.
const inotifyReadBuffer = 64 * (unix.SizeofInotifyEvent + 255 + 1)

// inotifyHandle implements Handle directly on the linux inotify API.
//
// The blocking read is a poll(2) over the inotify descriptor and an eventfd;
// Interrupt writes to the eventfd.
type inotifyHandle struct {
	fd     int // inotify instance
	wakeFd int // eventfd used by Interrupt

	mu      sync.Mutex
	watches map[string]int // path -> watch descriptor
	paths   map[int]string // watch descriptor -> path
	closed  bool

	interrupted atomic.Bool

	// Owned by the reading goroutine.
	buf     []byte
	pending []RawChange
}

// OpenInotify opens a linux inotify backend.
func OpenInotify() (Handle, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	return &inotifyHandle{
		fd:      fd,
		wakeFd:  wakeFd,
		watches: make(map[string]int),
		paths:   make(map[int]string),
		buf:     make([]byte, inotifyReadBuffer),
	}, nil
}

// AddWatch implements Handle.AddWatch.
func (h *inotifyHandle) AddWatch(dir string) error {
	dir = filepath.Clean(dir)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if _, ok := h.watches[dir]; ok {
		return nil
	}

	wd, err := unix.InotifyAddWatch(h.fd, dir, inotifyWatchMask)
	if err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", dir, err)
	}
	h.watches[dir] = wd
	h.paths[wd] = dir
	return nil
}

// RemoveWatch implements Handle.RemoveWatch.
func (h *inotifyHandle) RemoveWatch(dir string) error {
	dir = filepath.Clean(dir)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	wd, ok := h.watches[dir]
	if !ok {
		return nil
	}
	delete(h.watches, dir)
	delete(h.paths, wd)

	// EINVAL: the kernel already dropped the watch.
	if _, err := unix.InotifyRmWatch(h.fd, uint32(wd)); err != nil && !errors.Is(err, unix.EINVAL) {
		return fmt.Errorf("inotify_rm_watch %s: %w", dir, err)
	}
	return nil
}

// Read implements Handle.Read.
func (h *inotifyHandle) Read() (RawChange, error) {
	for {
		if h.interrupted.Load() {
			return RawChange{}, ErrInterrupted
		}
		if len(h.pending) > 0 {
			change := h.pending[0]
			h.pending = h.pending[1:]
			return change, nil
		}

		fds := []unix.PollFd{
			{Fd: int32(h.fd), Events: unix.POLLIN},
			{Fd: int32(h.wakeFd), Events: unix.POLLIN},
		}
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return RawChange{}, fmt.Errorf("poll: %w", err)
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			var counter [8]byte
			_, _ = unix.Read(h.wakeFd, counter[:])
			h.interrupted.Store(true)
			return RawChange{}, ErrInterrupted
		}

		if fds[0].Revents&unix.POLLNVAL != 0 {
			return RawChange{}, ErrClosed
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(h.fd, h.buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return RawChange{}, fmt.Errorf("inotify read: %w", err)
		}
		h.pending = h.parse(h.buf[:n], h.pending[:0])
	}
}

// parse decodes inotify records from buf and appends them to out.
func (h *inotifyHandle) parse(buf []byte, out []RawChange) []RawChange {
	h.mu.Lock()
	defer h.mu.Unlock()

	for offset := 0; offset+unix.SizeofInotifyEvent <= len(buf); {
		wd := int(int32(binary.NativeEndian.Uint32(buf[offset:])))
		mask := binary.NativeEndian.Uint32(buf[offset+4:])
		cookie := binary.NativeEndian.Uint32(buf[offset+8:])
		nameLen := int(binary.NativeEndian.Uint32(buf[offset+12:]))

		start := offset + unix.SizeofInotifyEvent
		end := start + nameLen
		if end > len(buf) {
			break
		}
		name := strings.TrimRight(string(buf[start:end]), "\x00")
		offset = end

		if mask&unix.IN_Q_OVERFLOW != 0 {
			out = append(out, RawChange{Op: OpOverflow})
			continue
		}

		dir, ok := h.paths[wd]
		if !ok {
			// Records still in flight for a watch that was removed.
			continue
		}

		if mask&unix.IN_IGNORED != 0 {
			delete(h.paths, wd)
			if h.watches[dir] == wd {
				delete(h.watches, dir)
			}
			out = append(out, RawChange{Dir: dir, Op: OpIgnored})
			continue
		}

		op := inotifyOp(mask)
		if op == 0 {
			continue
		}
		out = append(out, RawChange{Dir: dir, Name: name, Op: op, Cookie: cookie})
	}

	return out
}

// inotifyOp maps an inotify mask to Op bits.
func inotifyOp(mask uint32) Op {
	var op Op
	if mask&unix.IN_CREATE != 0 {
		op |= OpCreate
	}
	if mask&unix.IN_MODIFY != 0 {
		op |= OpWrite
	}
	if mask&unix.IN_ATTRIB != 0 {
		op |= OpChmod
	}
	if mask&(unix.IN_DELETE|unix.IN_DELETE_SELF) != 0 {
		op |= OpRemove
	}
	if mask&(unix.IN_MOVED_FROM|unix.IN_MOVE_SELF) != 0 {
		op |= OpRenameFrom
	}
	if mask&unix.IN_MOVED_TO != 0 {
		op |= OpRenameTo
	}
	return op
}

// Interrupt implements Handle.Interrupt.
func (h *inotifyHandle) Interrupt() error {
	h.interrupted.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(h.wakeFd, one[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Close implements Handle.Close.
func (h *inotifyHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.watches = nil
	h.paths = nil

	err := unix.Close(h.fd)
	if wakeErr := unix.Close(h.wakeFd); err == nil {
		err = wakeErr
	}
	if err != nil {
		return fmt.Errorf("failed to close inotify handle: %w", err)
	}
	return nil
}
