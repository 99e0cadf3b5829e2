// Package cache provides the TTL-based in-memory corpus caches. Entries
// expire lazily on read; there is no background sweep and no size-based
// eviction.
package cache

import (
	"sync"
	"time"
)

// Default TTLs per category.
const (
	DefaultPagesTTL     = 5 * time.Minute
	DefaultBlocksTTL    = 3 * time.Minute
	DefaultResultsTTL   = 1 * time.Minute
	DefaultTemplatesTTL = 10 * time.Minute
)

type entry[T any] struct {
	data      T
	writtenAt time.Time
	ttl       time.Duration
}

// Store is a single-category TTL cache. An entry is readable iff
// now <= writtenAt + ttl; stale entries are deleted on read.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a store with the given default TTL.
func NewStore[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, or ok=false on miss or expiry.
// Expired entries are purged as a side effect. Get never blocks on I/O.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}
	if s.now().After(e.writtenAt.Add(e.ttl)) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := s.entries[key]; ok && cur.writtenAt.Equal(e.writtenAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return e.data, true
}

// Set stores data under key with the store's default TTL.
func (s *Store[T]) Set(key string, data T) {
	s.SetTTL(key, data, s.ttl)
}

// SetTTL stores data under key with an explicit TTL.
func (s *Store[T]) SetTTL(key string, data T, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry[T]{data: data, writtenAt: s.now(), ttl: ttl}
	s.mu.Unlock()
}

// Delete removes a single entry.
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Clear removes every entry.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry[T])
	s.mu.Unlock()
}

// Len reports the number of entries, including not-yet-purged stale ones.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
