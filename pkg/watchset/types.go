// Package watchset stores named sets of directories to watch.
//
// A set is a name plus a list of absolute directory paths. The CLI keeps sets
// in a BoltDB file so a recurring watch can be started by name instead of
// repeating its directories.
//
// Example usage:
//
//	store, err := watchset.Open(watchset.Config{
//	    DBPath: "~/.config/dirmon/watchsets.db",
//	}, logger.Noop())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if _, err := store.AddDirectories("spool", "/var/spool/incoming"); err != nil {
//	    log.Fatal(err)
//	}
package watchset

import "time"

// Set is a named group of directories.
type Set struct {
	// Name identifies the set (must be unique).
	Name string `json:"name"`

	// Directories are absolute, cleaned paths, sorted and without duplicates.
	Directories []string `json:"directories"`

	// Description is an optional note.
	Description string `json:"description,omitempty"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last modification timestamp.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store provides CRUD operations on watch sets.
type Store interface {
	// Create stores a new set. Directories are normalized.
	//
	// Returns ErrEmptyName or ErrNameConflict.
	Create(set *Set) error

	// Get returns the set with the given name, or ErrSetNotFound.
	Get(name string) (*Set, error)

	// AddDirectories adds dirs to a set, creating the set if needed.
	// Returns the updated set.
	AddDirectories(name string, dirs ...string) (*Set, error)

	// RemoveDirectories removes dirs from a set. Directories not in the set
	// are ignored. Returns ErrSetNotFound if the set does not exist.
	RemoveDirectories(name string, dirs ...string) (*Set, error)

	// Delete removes a set. Deleting a missing set is not an error.
	Delete(name string) error

	// List returns every set ordered by name.
	List() ([]*Set, error)

	// Close releases the store.
	Close() error
}

// Config contains store configuration.
type Config struct {
	// DBPath is the BoltDB file path. A leading ~ is expanded.
	DBPath string

	// Timeout is how long to wait for the file lock (default: 1 second).
	Timeout time.Duration
}
