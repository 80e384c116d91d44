package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// AllocationStore is an in-memory implementation of storage.AllocationStore.
type AllocationStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.AllocationResolution // keyed by resolution id
	order []string                                // insertion order
}

// NewAllocationStore creates a new in-memory allocation store.
func NewAllocationStore() *AllocationStore {
	return &AllocationStore{
		data: make(map[string]*domain.AllocationResolution),
	}
}

// Insert adds a new resolution. Returns ErrDuplicateKey if the id exists.
func (s *AllocationStore) Insert(_ context.Context, r *domain.AllocationResolution) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	resCopy := *r
	s.data[r.ID] = &resCopy
	s.order = append(s.order, r.ID)
	return nil
}

// GetLatest retrieves the resolution with the highest block for
// (chain, token, claimant); later inserts win ties.
func (s *AllocationStore) GetLatest(_ context.Context, chainID uint64, token, claimant common.Address) (*domain.AllocationResolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.AllocationResolution
	for _, id := range s.order {
		r := s.data[id]
		if r.ChainID != chainID || r.Token != token || r.Claimant != claimant {
			continue
		}
		if latest == nil || r.BlockNumber >= latest.BlockNumber {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	resCopy := *latest
	return &resCopy, nil
}

var _ storage.AllocationStore = (*AllocationStore)(nil)
