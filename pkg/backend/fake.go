package backend

import (
	"sync"
	"sync/atomic"
)

// Fake is an in-memory Handle for tests. Changes are injected rather than
// observed from a filesystem.
type Fake struct {
	mu      sync.Mutex
	watched map[string]struct{}
	changes []RawChange
	failure error
	addErr  error
	closed  bool

	ready         chan struct{}
	interrupt     chan struct{}
	interruptOnce sync.Once

	cookie atomic.Uint32
	reads  atomic.Int32
}

// NewFake returns an open Fake with no watches.
func NewFake() *Fake {
	return &Fake{
		watched:   make(map[string]struct{}),
		ready:     make(chan struct{}, 1),
		interrupt: make(chan struct{}),
	}
}

// AddWatch implements Handle.AddWatch.
func (f *Fake) AddWatch(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.addErr != nil {
		return f.addErr
	}
	f.watched[dir] = struct{}{}
	return nil
}

// RemoveWatch implements Handle.RemoveWatch.
func (f *Fake) RemoveWatch(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	delete(f.watched, dir)
	return nil
}

// Read implements Handle.Read.
func (f *Fake) Read() (RawChange, error) {
	f.reads.Add(1)
	for {
		select {
		case <-f.interrupt:
			return RawChange{}, ErrInterrupted
		default:
		}

		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return RawChange{}, ErrClosed
		}
		if len(f.changes) > 0 {
			change := f.changes[0]
			f.changes = f.changes[1:]
			f.mu.Unlock()
			return change, nil
		}
		if f.failure != nil {
			err := f.failure
			f.mu.Unlock()
			return RawChange{}, err
		}
		f.mu.Unlock()

		select {
		case <-f.ready:
		case <-f.interrupt:
		}
	}
}

// Interrupt implements Handle.Interrupt.
func (f *Fake) Interrupt() error {
	f.interruptOnce.Do(func() {
		close(f.interrupt)
	})
	return nil
}

// Close implements Handle.Close.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Inject queues a raw change for Read.
func (f *Fake) Inject(change RawChange) {
	f.mu.Lock()
	f.changes = append(f.changes, change)
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// InjectCreate lets a test inject a fake creation of dir/name.
func (f *Fake) InjectCreate(dir, name string) {
	f.Inject(RawChange{Dir: dir, Name: name, Op: OpCreate})
}

// InjectWrite lets a test inject a fake modification of dir/name.
func (f *Fake) InjectWrite(dir, name string) {
	f.Inject(RawChange{Dir: dir, Name: name, Op: OpWrite})
}

// InjectRemove lets a test inject a fake deletion of dir/name.
func (f *Fake) InjectRemove(dir, name string) {
	f.Inject(RawChange{Dir: dir, Name: name, Op: OpRemove})
}

// InjectRename lets a test inject both halves of a rename inside dir.
func (f *Fake) InjectRename(dir, oldName, newName string) {
	cookie := f.cookie.Add(1)
	f.Inject(RawChange{Dir: dir, Name: oldName, Op: OpRenameFrom, Cookie: cookie})
	f.Inject(RawChange{Dir: dir, Name: newName, Op: OpRenameTo, Cookie: cookie})
}

// Fail makes Read return err once the injected changes are drained.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.failure = err
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// FailAdd makes every later AddWatch return err.
func (f *Fake) FailAdd(err error) {
	f.mu.Lock()
	f.addErr = err
	f.mu.Unlock()
}

// Watching reports whether dir is currently watched.
func (f *Fake) Watching(dir string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watched[dir]
	return ok
}

// Interrupted reports whether Interrupt has been called.
func (f *Fake) Interrupted() bool {
	select {
	case <-f.interrupt:
		return true
	default:
		return false
	}
}

// Closed reports whether Close has been called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reads returns how many times Read has been entered.
func (f *Fake) Reads() int {
	return int(f.reads.Load())
}

// FakeOpener opens Fake handles and remembers them so tests can drive each
// monitor's backend.
type FakeOpener struct {
	mu      sync.Mutex
	handles []*Fake

	// Err, when set, makes Open fail.
	Err error
}

// Open opens a new Fake. It has the Opener signature.
func (o *FakeOpener) Open() (Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Err != nil {
		return nil, o.Err
	}
	f := NewFake()
	o.handles = append(o.handles, f)
	return f, nil
}

// Handles returns every Fake opened so far, oldest first.
func (o *FakeOpener) Handles() []*Fake {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Fake(nil), o.handles...)
}

// Last returns the most recently opened Fake, or nil.
func (o *FakeOpener) Last() *Fake {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.handles) == 0 {
		return nil
	}
	return o.handles[len(o.handles)-1]
}
