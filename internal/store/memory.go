package store

import (
	"context"
	"sync"

	"veridoc/internal/domain"
)

// InMemoryResultStore keeps results in a map. Saving the same external ID
// twice overwrites, which gives the idempotence the sink contract asks for.
type InMemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.ProcessedResult
}

// NewInMemoryResultStore constructs an empty store.
func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{results: make(map[string]domain.ProcessedResult)}
}

func (s *InMemoryResultStore) Save(_ context.Context, result domain.ProcessedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ExternalID] = result
	return nil
}

func (s *InMemoryResultStore) FindByExternalID(_ context.Context, externalID string) (domain.ProcessedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if result, ok := s.results[externalID]; ok {
		return result, nil
	}
	return domain.ProcessedResult{}, ErrNotFound
}

func (s *InMemoryResultStore) ListByOwner(_ context.Context, owner string) ([]domain.ProcessedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ProcessedResult
	for _, result := range s.results {
		if result.Owner == owner {
			out = append(out, result)
		}
	}
	return out, nil
}
