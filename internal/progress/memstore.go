package progress

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory [Store] for development and tests. Safe for
// concurrent use.
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	records []Record
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

// Add implements [Store].
func (s *MemStore) Add(_ context.Context, r Record) (Record, error) {
	if r.Student == "" {
		return Record{}, ErrNoStudent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.nextID
	s.nextID++
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.records = append(s.records, r)
	return r, nil
}

// List implements [Store].
func (s *MemStore) List(_ context.Context, student string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Insertion order is chronological; walk backwards for recent-first.
	out := make([]Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].Student == student {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}
