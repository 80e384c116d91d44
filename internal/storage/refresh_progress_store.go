package storage

import (
	"context"

	"stakelens/internal/domain"
)

// RefreshProgress is the last block a project was refreshed at.
type RefreshProgress struct {
	Key         domain.SnapshotKey
	BlockNumber uint64
}

// RefreshProgressStore persists watcher progress so a restart does not
// re-snapshot blocks it already covered.
type RefreshProgressStore interface {
	// GetLastRefreshed returns the last refreshed block for key.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastRefreshed(ctx context.Context, key domain.SnapshotKey) (*RefreshProgress, error)

	// SetLastRefreshed saves the last refreshed block for a key.
	SetLastRefreshed(ctx context.Context, progress *RefreshProgress) error
}
