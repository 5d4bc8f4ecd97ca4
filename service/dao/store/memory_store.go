package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwcompdev/termkit/service/dao"
)

// MemoryStore is an append-only, insertion-ordered in-memory implementation of
// dao.Service. The key is obtained from the supplied keySelector function.
// Stored values are copied on the way in and on the way out, so callers can
// never mutate a stored entity.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	order       []K
	keySelector func(*T) K
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
}

// Save stores a record. Saving a key twice fails with dao.ErrReadOnly.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	clone := *v
	key := s.keySelector(&clone)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return fmt.Errorf("%w: %v", dao.ErrReadOnly, key)
	}
	s.records[key] = &clone
	s.order = append(s.order, key)
	return nil
}

// Load returns a copy of the record stored under key.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", dao.ErrNotFound, key)
	}
	clone := *v
	return &clone, nil
}

// List returns copies of all records in insertion order.
func (s *MemoryStore[K, T]) List(_ context.Context) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.order))
	for _, key := range s.order {
		clone := *s.records[key]
		out = append(out, &clone)
	}
	return out, nil
}

// Last returns a copy of the most recently stored record.
func (s *MemoryStore[K, T]) Last() (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, false
	}
	clone := *s.records[s.order[len(s.order)-1]]
	return &clone, true
}

// Len returns the number of stored records.
func (s *MemoryStore[K, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

var _ dao.Service[string, struct{}] = (*MemoryStore[string, struct{}])(nil)
