package memory

import (
	"context"
	"sync"

	"github.com/aretw0/graft/pkg/domain"
)

// Store implements ports.JobStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.RemoteJob
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.RemoteJob),
	}
}

// Save persists the job record in memory.
func (s *Store) Save(ctx context.Context, job *domain.RemoteJob) error {
	// Copy to ensure isolation, similar to serialization
	copied := *job
	if job.Trigger != nil {
		t := *job.Trigger
		copied.Trigger = &t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[job.ID] = &copied
	return nil
}

// Load retrieves the job record from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.RemoteJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.data[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	// Copy on read so the caller can't mutate store state through the pointer
	ret := *job
	if job.Trigger != nil {
		t := *job.Trigger
		ret.Trigger = &t
	}
	return &ret, nil
}

// Delete removes the job record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored job IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
