package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// RefreshProgressStore is a PostgreSQL implementation of storage.RefreshProgressStore.
// One row per (chain_id, token) in refresh_progress.
type RefreshProgressStore struct {
	pool *Pool
}

// NewRefreshProgressStore creates a new PostgreSQL refresh progress store.
func NewRefreshProgressStore(pool *Pool) *RefreshProgressStore {
	return &RefreshProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RefreshProgressStore = (*RefreshProgressStore)(nil)

// GetLastRefreshed returns the last refreshed block for key.
func (s *RefreshProgressStore) GetLastRefreshed(ctx context.Context, key domain.SnapshotKey) (*storage.RefreshProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT block_number
		FROM refresh_progress
		WHERE chain_id = $1 AND token = $2
	`, int64(key.ChainID), addressKey(key.Token))

	var block int64
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &storage.RefreshProgress{Key: key, BlockNumber: uint64(block)}, nil
}

// SetLastRefreshed saves the last refreshed block.
// Uses upsert to handle initial insert and subsequent updates.
func (s *RefreshProgressStore) SetLastRefreshed(ctx context.Context, progress *storage.RefreshProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_progress (chain_id, token, block_number, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (chain_id, token) DO UPDATE
		SET block_number = EXCLUDED.block_number,
		    updated_at = NOW()
	`, int64(progress.Key.ChainID), addressKey(progress.Key.Token), int64(progress.BlockNumber))

	return err
}
