// Package backend abstracts the platform facility that reports filesystem
// changes.
//
// A backend is opened into a Handle. The Handle watches directories and hands
// out raw changes through a blocking Read; Interrupt makes a blocked (or the
// next) Read return ErrInterrupted so the reading goroutine can exit.
//
// Variants:
//   - fsnotify: every platform, built on github.com/fsnotify/fsnotify
//   - inotify: linux only, talks to the kernel through golang.org/x/sys/unix
//   - Fake: in-memory, for tests
//
// The "auto" variant is fixed at build time: inotify on linux, fsnotify
// elsewhere.
package backend

import "strings"

// Op is a bit set describing what happened to a directory entry.
type Op uint32

// Raw change operations.
const (
	OpCreate     Op = 1 << iota // Entry created
	OpWrite                     // Entry content modified
	OpRemove                    // Entry deleted
	OpRenameFrom                // Entry moved away (old name)
	OpRenameTo                  // Entry moved in (new name)
	OpChmod                     // Entry metadata changed
	OpOverflow                  // Backend dropped events
	OpIgnored                   // Backend stopped watching the directory
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRenameFrom, "RENAME_FROM"},
	{OpRenameTo, "RENAME_TO"},
	{OpChmod, "CHMOD"},
	{OpOverflow, "OVERFLOW"},
	{OpIgnored, "IGNORED"},
}

// Has reports whether op contains all bits of o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// String returns the set bits joined with "|".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// RawChange is one undecoded change as reported by a backend.
type RawChange struct {
	// Dir is the watched directory the change was reported for.
	Dir string

	// Name is the affected entry relative to Dir. Empty when the change
	// concerns Dir itself.
	Name string

	// Op is what happened.
	Op Op

	// Cookie links the two halves of a rename when the backend provides it.
	Cookie uint32
}

// Handle is an open notification facility.
//
// AddWatch, RemoveWatch and Interrupt may be called concurrently with a
// blocked Read. Close must only be called once no Read is in flight.
type Handle interface {
	// AddWatch starts reporting changes for entries of dir. Adding a
	// directory twice is not an error.
	AddWatch(dir string) error

	// RemoveWatch stops reporting changes for dir. Removing a directory that
	// is not watched is a no-op.
	RemoveWatch(dir string) error

	// Read blocks until a change is available.
	//
	// Returns ErrInterrupted once Interrupt has been called, ErrClosed after
	// Close, or another error if the backend failed.
	Read() (RawChange, error)

	// Interrupt unblocks the in-flight Read, or the next one if none is in
	// flight. It is sticky: every later Read also returns ErrInterrupted.
	Interrupt() error

	// Close releases the backend resources.
	Close() error
}

// Opener opens a fresh backend Handle.
type Opener func() (Handle, error)
