package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// The aggregate is stored as JSONB next to its indexed key columns.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if the id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.ProjectSnapshot) (err error) {
	defer observeQuery("insert_snapshot", time.Now(), &err)

	if snap == nil || snap.ID == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO project_snapshots (
			id, chain_id, token, block_number, reference_timestamp, payload
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		snap.ID,
		int64(snap.Key.ChainID),
		addressKey(snap.Key.Token),
		int64(snap.BlockNumber),
		int64(snap.ReferenceTimestamp),
		payload,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, id string) (*domain.ProjectSnapshot, error) {
	query := `
		SELECT payload
		FROM project_snapshots
		WHERE id = $1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return snap, nil
}

// GetLatest retrieves the snapshot with the highest block for key.
func (s *SnapshotStore) GetLatest(ctx context.Context, key domain.SnapshotKey) (*domain.ProjectSnapshot, error) {
	query := `
		SELECT payload
		FROM project_snapshots
		WHERE chain_id = $1 AND token = $2
		ORDER BY block_number DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, int64(key.ChainID), addressKey(key.Token)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// GetByBlockRange retrieves snapshots for key within [from, to] (inclusive).
func (s *SnapshotStore) GetByBlockRange(ctx context.Context, key domain.SnapshotKey, from, to uint64) ([]*domain.ProjectSnapshot, error) {
	query := `
		SELECT payload
		FROM project_snapshots
		WHERE chain_id = $1 AND token = $2 AND block_number >= $3 AND block_number <= $4
		ORDER BY block_number ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(key.ChainID), addressKey(key.Token), int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("get snapshots by block range: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.ProjectSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}

// scanSnapshot decodes a payload column.
func scanSnapshot(row pgx.Row) (*domain.ProjectSnapshot, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return nil, err
	}

	var snap domain.ProjectSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
