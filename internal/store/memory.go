package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no value has been stored for a key.
	ErrNotFound = errors.New("no cached value for key")
)

// Producer builds a fresh value for a key. It never fails: producers convert
// their own errors into data.
type Producer[V any] func(ctx context.Context) V

// Observer is told about every GetOrRefresh lookup.
type Observer func(key string, hit bool)

// entry holds one value and the time it was last stamped.
type entry[V any] struct {
	value    V
	hasValue bool
	storedAt time.Time
}

// MemoryStore is a concurrency-safe, keyed TTL cache holding one entry per key.
// Entries are never evicted; they are overwritten on refresh.
type MemoryStore[V any] struct {
	mu sync.RWMutex

	// key: category, value: latest entry
	data map[string]entry[V]

	now      func() time.Time
	observer Observer
}

// Option configures a MemoryStore.
type Option[V any] func(*MemoryStore[V])

// WithClock replaces time.Now, mainly for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *MemoryStore[V]) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver installs a hook called with the outcome of each lookup.
func WithObserver[V any](o Observer) Option[V] {
	return func(s *MemoryStore[V]) {
		s.observer = o
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore[V any](opts ...Option[V]) *MemoryStore[V] {
	s := &MemoryStore[V]{
		data: make(map[string]entry[V]),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrRefresh returns the cached value for key if it is younger than window.
// Otherwise it calls produce, stores the result stamped with the current time
// and returns it. Concurrent refreshes of the same stale key may both run
// produce; the last write wins.
func (s *MemoryStore[V]) GetOrRefresh(ctx context.Context, key string, window time.Duration, produce Producer[V]) V {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if ok && e.hasValue && s.fresh(e, window) {
		s.observe(key, true)
		return e.value
	}
	s.observe(key, false)

	v := produce(ctx)
	s.Put(key, v)
	return v
}

// IsStale reports whether key has no entry or its entry is at least window old.
// It never modifies the store.
func (s *MemoryStore[V]) IsStale(key string, window time.Duration) bool {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	return !ok || !s.fresh(e, window)
}

// MarkRefreshed stamps key with the current time without touching its value.
func (s *MemoryStore[V]) MarkRefreshed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.data[key]
	e.storedAt = s.now()
	s.data[key] = e
}

// Put stores v for key, replacing any previous entry.
func (s *MemoryStore[V]) Put(key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = entry[V]{
		value:    v,
		hasValue: true,
		storedAt: s.now(),
	}
}

// Peek returns the stored value for key and when it was stamped.
func (s *MemoryStore[V]) Peek(key string) (V, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || !e.hasValue {
		var zero V
		return zero, e.storedAt, ErrNotFound
	}
	return e.value, e.storedAt, nil
}

// RefreshedAt returns when key was last stamped, or the zero time.
func (s *MemoryStore[V]) RefreshedAt(key string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data[key].storedAt
}

func (s *MemoryStore[V]) fresh(e entry[V], window time.Duration) bool {
	if e.storedAt.IsZero() {
		return false
	}
	return s.now().Sub(e.storedAt) < window
}

func (s *MemoryStore[V]) observe(key string, hit bool) {
	if s.observer != nil {
		s.observer(key, hit)
	}
}
