// Package storage defines persistence for snapshots, metric points,
// allocation resolutions and watcher progress.
package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/domain"
)

var (
	// ErrNotFound means no record matches the lookup.
	ErrNotFound = errors.New("storage: record not found")

	// ErrDuplicateKey means a record with the same id (or the same chain,
	// token and block) is already stored. Stores never overwrite: a block's
	// snapshot is immutable once written.
	ErrDuplicateKey = errors.New("storage: record already stored")

	// ErrInvalidInput means a record is nil or lacks its key.
	ErrInvalidInput = errors.New("storage: invalid record")
)

// SnapshotStore provides access to project_snapshots storage.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if the snapshot id exists.
	Insert(ctx context.Context, s *domain.ProjectSnapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ProjectSnapshot, error)

	// GetLatest retrieves the snapshot with the highest block for key.
	// Returns ErrNotFound if none exists.
	GetLatest(ctx context.Context, key domain.SnapshotKey) (*domain.ProjectSnapshot, error)

	// GetByBlockRange retrieves snapshots for key within [from, to] (inclusive),
	// ordered by block ASC.
	GetByBlockRange(ctx context.Context, key domain.SnapshotKey, from, to uint64) ([]*domain.ProjectSnapshot, error)
}

// MetricPointStore provides access to metric_points storage.
type MetricPointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (chain_id, token, block_number).
	InsertBulk(ctx context.Context, points []*domain.MetricPoint) error

	// GetByBlockRange retrieves points for key within [from, to] (inclusive),
	// ordered by block ASC.
	GetByBlockRange(ctx context.Context, key domain.SnapshotKey, from, to uint64) ([]*domain.MetricPoint, error)
}

// AllocationStore provides access to allocation_resolutions storage.
type AllocationStore interface {
	// Insert adds a new resolution. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, r *domain.AllocationResolution) error

	// GetLatest retrieves the most recent resolution for (chain, token, claimant).
	// Returns ErrNotFound if none exists.
	GetLatest(ctx context.Context, chainID uint64, token, claimant common.Address) (*domain.AllocationResolution, error)
}
