//go:build !linux

package backend

// OpenInotify always fails outside linux; use OpenFsnotify instead.
func OpenInotify() (Handle, error) {
	return nil, ErrUnsupported
}
