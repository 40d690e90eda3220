package watchset

import (
	"sort"
	"sync"
	"time"
)

// memoryStore implements Store in memory. Used by tests and when no database
// path is configured.
type memoryStore struct {
	mu     sync.RWMutex
	sets   map[string]*Set
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store {
	return &memoryStore{sets: make(map[string]*Set)}
}

func (m *memoryStore) Create(set *Set) error {
	if set == nil {
		return ErrInvalidSet
	}
	if set.Name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if _, ok := m.sets[set.Name]; ok {
		return ErrNameConflict
	}

	now := time.Now()
	set.Directories = normalize(set.Directories)
	set.CreatedAt = now
	set.UpdatedAt = now
	m.sets[set.Name] = clone(set)
	return nil
}

func (m *memoryStore) Get(name string) (*Set, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	set, ok := m.sets[name]
	if !ok {
		return nil, ErrSetNotFound
	}
	return clone(set), nil
}

func (m *memoryStore) AddDirectories(name string, dirs ...string) (*Set, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	now := time.Now()
	set, ok := m.sets[name]
	if !ok {
		set = &Set{Name: name, CreatedAt: now}
		m.sets[name] = set
	}
	set.Directories = normalize(append(set.Directories, dirs...))
	set.UpdatedAt = now
	return clone(set), nil
}

func (m *memoryStore) RemoveDirectories(name string, dirs ...string) (*Set, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	set, ok := m.sets[name]
	if !ok {
		return nil, ErrSetNotFound
	}
	set.Directories = without(set.Directories, dirs)
	set.UpdatedAt = time.Now()
	return clone(set), nil
}

func (m *memoryStore) Delete(name string) error {
	if name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.sets, name)
	return nil
}

func (m *memoryStore) List() ([]*Set, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	sets := make([]*Set, 0, len(m.sets))
	for _, set := range m.sets {
		sets = append(sets, clone(set))
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Name < sets[j].Name })
	return sets, nil
}

func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
