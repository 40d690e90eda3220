// Package dirmon delivers directory change events without blocking the
// caller's scheduler.
//
// A Service is bound to one caller scheduler (anything with a Post method,
// such as scheduler.Loop). It owns a background bridge: a single goroutine
// that performs the blocking waits on behalf of AsyncMonitor calls and posts
// each result back onto the caller's scheduler. Each monitor reads its
// backend on a pump goroutine owned by the bridge and queues decoded events
// in detection order.
//
// Example usage:
//
//	loop := scheduler.NewLoop(log)
//	svc, err := dirmon.NewService(loop, dirmon.Config{}, log)
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	h, err := svc.Construct()
//	if err != nil {
//	    return err
//	}
//	if err := svc.AddDirectory(h, "/var/spool/incoming"); err != nil {
//	    return err
//	}
//
//	var next dirmon.Handler
//	next = func(err error, ev dirmon.Event) {
//	    if err != nil {
//	        return
//	    }
//	    fmt.Println(ev)
//	    _ = svc.AsyncMonitor(h, next) // one event per call; re-issue
//	}
//	_ = svc.AsyncMonitor(h, next)
//
//	_ = loop.Run(ctx)
//
// A monitor must have at most one wait in flight: do not mix a synchronous
// Monitor call with an outstanding AsyncMonitor on the same handle.
package dirmon

import (
	"fmt"
	"path/filepath"

	"github.com/0xmhha/dirmon/pkg/backend"
)

// Kind is the category of a change.
type Kind int

// Event kinds.
const (
	Unknown Kind = iota
	Added
	Modified
	Removed
	RenamedOld
	RenamedNew
)

// String returns the kind's lower-case name.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case RenamedOld:
		return "renamed_old"
	case RenamedNew:
		return "renamed_new"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown event kind %q", text)
	}
	*k = kind
	return nil
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := Unknown; k <= RenamedNew; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return Unknown, false
}

// Event describes one change inside a watched directory.
type Event struct {
	// Path is the watched directory.
	Path string `json:"path"`

	// Kind is what happened.
	Kind Kind `json:"kind"`

	// Name is the affected entry relative to Path. Empty when the event
	// concerns the watched directory itself.
	Name string `json:"name"`
}

// FullPath joins Path and Name.
func (e Event) FullPath() string {
	if e.Name == "" {
		return e.Path
	}
	return filepath.Join(e.Path, e.Name)
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Kind, e.FullPath())
}

// Handle identifies a monitor inside a Service. The zero Handle is never
// issued.
type Handle struct {
	id uint64
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.id == 0
}

// String implements fmt.Stringer.
func (h Handle) String() string {
	return fmt.Sprintf("monitor-%d", h.id)
}

// Handler receives the result of one AsyncMonitor call. err is nil when ev
// is a real event.
type Handler func(err error, ev Event)

// Poster is the caller's scheduler. Post must queue task for later execution
// and must be safe to call from any goroutine.
type Poster interface {
	Post(task func()) error
}

// Config contains service configuration.
type Config struct {
	// Backend opens one notification handle per monitor.
	// Default: backend.Default().
	Backend backend.Opener

	// QueueLimit caps the number of undelivered events per monitor. When the
	// cap is reached the monitor stops reading its backend until an event is
	// consumed. Zero means no cap.
	QueueLimit int
}
