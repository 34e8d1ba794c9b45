package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is the minimum time between scans for expired entries.
const sweepInterval = time.Minute

// MemoryStore is an in-process CounterStore for single-replica deployments and tests.
// Expired buckets are swept on writes, at most once per sweepInterval.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

type memoryEntry struct {
	value     float64
	expiresAt time.Time
}

var _ CounterStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	v, err := s.IncrFloat(ctx, key, 1, ttl)
	return int64(v), err
}

func (s *MemoryStore) IncrFloat(_ context.Context, key string, delta float64, ttl time.Duration) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	e := s.live(key, now)
	if e == nil {
		e = &memoryEntry{}
		s.entries[key] = e
	}
	e.value += delta
	e.expiresAt = now.Add(ttl)
	return e.value, nil
}

func (s *MemoryStore) GetFloat(_ context.Context, key string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.live(key, s.now()); e != nil {
		return e.value, nil
	}
	return 0, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// live returns the unexpired entry for key, dropping it if it has expired.
// Callers hold s.mu.
func (s *MemoryStore) live(key string, now time.Time) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !now.Before(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

// sweep drops every expired entry. Callers hold s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
