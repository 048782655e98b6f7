package records

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps records in a slice. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []StoredRecord
	closed  bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert implements Store.
func (s *MemoryStore) Insert(ctx context.Context, rec StoredRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	rec.Fields = maps.Clone(rec.Fields)
	s.records = append(s.records, rec)
	return nil
}

// FindAll implements Store.
func (s *MemoryStore) FindAll(ctx context.Context) ([]StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]StoredRecord, len(s.records))
	for i, rec := range s.records {
		rec.Fields = maps.Clone(rec.Fields)
		out[i] = rec
	}
	return out, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return "memory" }

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
