package backend

import (
	"fmt"
	"strings"
)

// Backend names accepted by ByName.
const (
	NameAuto     = "auto"
	NameFsnotify = "fsnotify"
	NameInotify  = "inotify"
)

// Names returns every backend name ByName accepts.
func Names() []string {
	return []string{NameAuto, NameFsnotify, NameInotify}
}

// ByName returns the Opener for a backend name. An empty name or "auto"
// selects the platform default chosen at build time.
func ByName(name string) (Opener, error) {
	switch strings.ToLower(name) {
	case "", NameAuto:
		return ByName(defaultBackend)
	case NameFsnotify:
		return OpenFsnotify, nil
	case NameInotify:
		return OpenInotify, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}

// DefaultName returns the backend "auto" resolves to on this platform.
func DefaultName() string {
	return defaultBackend
}

// Default returns the Opener for the platform default backend.
func Default() Opener {
	opener, _ := ByName(defaultBackend)
	return opener
}
