package dirmon

import "context"

// DirMonitor binds one monitor handle to its Service.
type DirMonitor struct {
	svc    *Service
	handle Handle
}

// NewDirMonitor constructs a monitor on svc.
func NewDirMonitor(svc *Service) (*DirMonitor, error) {
	h, err := svc.Construct()
	if err != nil {
		return nil, err
	}
	return &DirMonitor{svc: svc, handle: h}, nil
}

// Handle returns the underlying monitor handle.
func (m *DirMonitor) Handle() Handle {
	return m.handle
}

// AddDirectory starts watching path.
func (m *DirMonitor) AddDirectory(path string) error {
	return m.svc.AddDirectory(m.handle, path)
}

// RemoveDirectory stops watching path.
func (m *DirMonitor) RemoveDirectory(path string) error {
	return m.svc.RemoveDirectory(m.handle, path)
}

// Directories returns the watched directories, sorted.
func (m *DirMonitor) Directories() ([]string, error) {
	return m.svc.Directories(m.handle)
}

// Monitor waits for the next event on the calling goroutine.
func (m *DirMonitor) Monitor(ctx context.Context) (Event, error) {
	return m.svc.Monitor(ctx, m.handle)
}

// AsyncMonitor schedules one wait. See Service.AsyncMonitor.
func (m *DirMonitor) AsyncMonitor(handler Handler) error {
	return m.svc.AsyncMonitor(m.handle, handler)
}

// Close destroys the monitor. A pending wait completes with
// ErrOperationAborted.
func (m *DirMonitor) Close() error {
	return m.svc.Destroy(m.handle)
}
