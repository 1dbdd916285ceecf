package dedup

import (
	"context"
	"sync"
)

// MemoryStore keeps processed identifiers in an in-process set. State is
// lost on restart; the IMAP \Seen flag then provides the only redelivery
// protection.
type MemoryStore struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (s *MemoryStore) Seen(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok, nil
}

func (s *MemoryStore) Record(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of recorded identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
