package registry

import "sync/atomic"

// Store holds the current registry snapshot and swaps it atomically on
// reload. Each snapshot is immutable; readers keep whatever snapshot they
// took for the duration of a request.
type Store struct {
	current atomic.Pointer[Registry]
}

// NewStore creates a store with an initial snapshot. The snapshot may be
// nil when the registry comes from a remote source that has not loaded yet.
func NewStore(reg *Registry) *Store {
	s := &Store{}
	if reg != nil {
		s.current.Store(reg)
	}
	return s
}

// Current returns the current snapshot, or nil when nothing is loaded.
func (s *Store) Current() *Registry {
	return s.current.Load()
}

// Swap replaces the current snapshot.
func (s *Store) Swap(reg *Registry) {
	s.current.Store(reg)
}
