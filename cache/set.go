package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrTypeMismatch is returned when a name is registered or looked up with
// key/value types that differ from the existing cache.
var ErrTypeMismatch = errors.New("cache type mismatch")

// entry is the type-erased view of a Lazy held by a Set.
type entry interface {
	Clear()
	Materialized() bool
}

// Set is a named collection of caches of heterogeneous types.
// The zero value is not usable; create one with NewSet.
type Set struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{entries: make(map[string]entry)}
}

// Register returns the cache registered under name, creating an
// un-materialized one from produce and key if none exists. An existing cache is
// never replaced.
func Register[K comparable, V any](s *Set, name string, produce Producer[V], key func(V) K) (*Lazy[K, V], error) {
	if c, ok, err := lookup[K, V](s, name); ok || err != nil {
		return c, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		c, ok := e.(*Lazy[K, V])
		if !ok {
			return nil, fmt.Errorf("register cache %s: %w", name, ErrTypeMismatch)
		}
		return c, nil
	}

	c := NewLazy(produce, key)
	s.entries[name] = c
	return c, nil
}

// Lookup returns the cache registered under name. It returns false when the
// name is absent or registered with different types.
func Lookup[K comparable, V any](s *Set, name string) (*Lazy[K, V], bool) {
	c, ok, err := lookup[K, V](s, name)
	return c, ok && err == nil
}

func lookup[K comparable, V any](s *Set, name string) (*Lazy[K, V], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok {
		return nil, false, nil
	}
	c, ok := e.(*Lazy[K, V])
	if !ok {
		return nil, false, fmt.Errorf("lookup cache %s: %w", name, ErrTypeMismatch)
	}
	return c, true, nil
}

// Invalidate removes the named cache and clears it, so holders of the removed
// instance reload on their next read. Absent names are ignored.
func (s *Set) Invalidate(name string) {
	s.mu.Lock()
	e, ok := s.entries[name]
	delete(s.entries, name)
	s.mu.Unlock()

	if ok {
		e.Clear()
	}
}

// InvalidateAll removes and clears every cache.
func (s *Set) InvalidateAll() {
	s.mu.Lock()
	removed := make([]entry, 0, len(s.entries))
	for _, e := range s.entries {
		removed = append(removed, e)
	}
	clear(s.entries)
	s.mu.Unlock()

	for _, e := range removed {
		e.Clear()
	}
}

// Names returns the registered cache names in sorted order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered caches.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
