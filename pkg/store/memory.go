package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node
// development setups.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]*Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[Key]*Record{}}
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, key Key) (*Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

// Save implements Store. The first record saved under a key wins.
func (s *MemoryStore) Save(_ context.Context, key Key, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[key]; exists {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records[key] = rec
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() {}
