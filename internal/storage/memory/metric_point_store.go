package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// MetricPointStore is an in-memory implementation of storage.MetricPointStore.
type MetricPointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MetricPoint // keyed by (chain_id, token, block_number)
}

// NewMetricPointStore creates a new in-memory metric point store.
func NewMetricPointStore() *MetricPointStore {
	return &MetricPointStore{
		data: make(map[string]*domain.MetricPoint),
	}
}

// pointKey generates a unique key for a metric point.
func pointKey(chainID uint64, token string, block uint64) string {
	return fmt.Sprintf("%d|%s|%d", chainID, strings.ToLower(token), block)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *MetricPointStore) InsertBulk(_ context.Context, points []*domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.Token == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.ChainID, p.Token, p.BlockNumber)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		pointCopy := *p
		s.data[pointKey(p.ChainID, p.Token, p.BlockNumber)] = &pointCopy
	}

	return nil
}

// GetByBlockRange retrieves points for key within [from, to] (inclusive).
func (s *MetricPointStore) GetByBlockRange(_ context.Context, key domain.SnapshotKey, from, to uint64) ([]*domain.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token := strings.ToLower(key.Token.Hex())
	var result []*domain.MetricPoint
	for _, p := range s.data {
		if p.ChainID == key.ChainID && strings.EqualFold(p.Token, token) &&
			p.BlockNumber >= from && p.BlockNumber <= to {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].BlockNumber < result[j].BlockNumber
	})

	return result, nil
}

var _ storage.MetricPointStore = (*MetricPointStore)(nil)
