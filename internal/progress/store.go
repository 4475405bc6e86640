package progress

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// UpdateFunc mutates a private copy of a learner's record. Returning an
// error discards the copy.
type UpdateFunc func(p *Progress) error

// Store persists progress records.
type Store interface {
	// Get returns a snapshot of the learner's record, empty if none exists.
	Get(ctx context.Context, learnerID string) (*Progress, error)
	// Update applies fn to the current record and persists the result as a
	// single atomic unit. Errors from fn are returned unchanged and nothing
	// is written.
	Update(ctx context.Context, learnerID string, fn UpdateFunc) (*Progress, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]*Progress
	now     func() time.Time
	mu      sync.Mutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Progress),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, learnerID string) (*Progress, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.records[learnerID]; ok {
		return p.Clone(), nil
	}
	return New(learnerID), nil
}

func (s *MemoryStore) Update(_ context.Context, learnerID string, fn UpdateFunc) (*Progress, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := New(learnerID)
	if p, ok := s.records[learnerID]; ok {
		working = p.Clone()
	}
	if err := fn(working); err != nil {
		return nil, err
	}

	working.LearnerID = learnerID
	working.UpdatedAt = s.now()
	s.records[learnerID] = working
	return working.Clone(), nil
}

// Put replaces a learner's record wholesale. It exists for seeding stores
// from exported snapshots and bypasses the monotonic mutators.
func (s *MemoryStore) Put(p *Progress) error {
	if p == nil || p.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[p.LearnerID] = p.Clone()
	return nil
}
