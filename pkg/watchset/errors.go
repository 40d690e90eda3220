package watchset

import "errors"

// Common errors returned by watch set stores.
var (
	// ErrSetNotFound is returned when a set does not exist.
	ErrSetNotFound = errors.New("watch set not found")

	// ErrNameConflict is returned when creating a set whose name is taken.
	ErrNameConflict = errors.New("watch set name already exists")

	// ErrEmptyName is returned when a set name is empty.
	ErrEmptyName = errors.New("watch set name cannot be empty")

	// ErrInvalidSet is returned for a nil set.
	ErrInvalidSet = errors.New("invalid watch set")

	// ErrStoreClosed is returned when using a closed store.
	ErrStoreClosed = errors.New("watch set store is closed")
)
