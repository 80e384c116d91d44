package memory

import (
	"context"
	"sync"

	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// RefreshProgressStore is an in-memory implementation of storage.RefreshProgressStore.
type RefreshProgressStore struct {
	mu       sync.RWMutex
	progress map[domain.SnapshotKey]uint64
}

// NewRefreshProgressStore creates a new in-memory refresh progress store.
func NewRefreshProgressStore() *RefreshProgressStore {
	return &RefreshProgressStore{
		progress: make(map[domain.SnapshotKey]uint64),
	}
}

// GetLastRefreshed returns the last refreshed block for key.
func (s *RefreshProgressStore) GetLastRefreshed(_ context.Context, key domain.SnapshotKey) (*storage.RefreshProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.progress[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.RefreshProgress{Key: key, BlockNumber: block}, nil
}

// SetLastRefreshed saves the last refreshed block for a key.
func (s *RefreshProgressStore) SetLastRefreshed(_ context.Context, progress *storage.RefreshProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[progress.Key] = progress.BlockNumber
	return nil
}

var _ storage.RefreshProgressStore = (*RefreshProgressStore)(nil)
