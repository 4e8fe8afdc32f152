package certlock

import (
	"context"
	"sync"
)

// MemoryStore implements Store with a process-local map. Suitable for
// tests and single-instance deployments only: the lock state dies with
// the process and is invisible to other replicas.
type MemoryStore struct {
	mu    sync.Mutex
	locks map[string]Meta
}

// Compile-time interface compliance check
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process once-lock store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locks: make(map[string]Meta)}
}

func (s *MemoryStore) IsLocked(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.locks[key]
	return ok, nil
}

func (s *MemoryStore) TryConsume(_ context.Context, key string, meta Meta) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[key]; ok {
		return false, nil
	}
	s.locks[key] = meta
	return true, nil
}
