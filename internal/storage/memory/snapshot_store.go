package memory

import (
	"context"
	"sort"
	"sync"

	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ProjectSnapshot // keyed by snapshot id
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.ProjectSnapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if the id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.ProjectSnapshot) error {
	if snap == nil || snap.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Snapshots are values; nothing mutates them after assembly.
	snapCopy := *snap
	s.data[snap.ID] = &snapCopy
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, id string) (*domain.ProjectSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	snapCopy := *snap
	return &snapCopy, nil
}

// GetLatest retrieves the snapshot with the highest block for key.
func (s *SnapshotStore) GetLatest(_ context.Context, key domain.SnapshotKey) (*domain.ProjectSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.ProjectSnapshot
	for _, snap := range s.data {
		if snap.Key != key {
			continue
		}
		if latest == nil || snap.BlockNumber > latest.BlockNumber {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	snapCopy := *latest
	return &snapCopy, nil
}

// GetByBlockRange retrieves snapshots for key within [from, to] (inclusive).
func (s *SnapshotStore) GetByBlockRange(_ context.Context, key domain.SnapshotKey, from, to uint64) ([]*domain.ProjectSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProjectSnapshot
	for _, snap := range s.data {
		if snap.Key == key && snap.BlockNumber >= from && snap.BlockNumber <= to {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	// Sort by block ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].BlockNumber < result[j].BlockNumber
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
