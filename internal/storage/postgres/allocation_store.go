package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// AllocationStore implements storage.AllocationStore using PostgreSQL.
type AllocationStore struct {
	pool *Pool
}

// NewAllocationStore creates a new AllocationStore.
func NewAllocationStore(pool *Pool) *AllocationStore {
	return &AllocationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AllocationStore = (*AllocationStore)(nil)

// Insert adds a new resolution. Returns ErrDuplicateKey if the id exists.
func (s *AllocationStore) Insert(ctx context.Context, r *domain.AllocationResolution) (err error) {
	defer observeQuery("insert_allocation", time.Now(), &err)

	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}

	// Selected columns stay NULL when nothing matched.
	var status, amount *string
	if r.Selected != nil {
		st := string(r.Selected.Status)
		am := r.Selected.Amount.String()
		status, amount = &st, &am
	}

	query := `
		INSERT INTO allocation_resolutions (
			id, chain_id, token, claimant, table_version, block_number,
			selected_status, selected_amount, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ID,
		int64(r.ChainID),
		addressKey(r.Token),
		addressKey(r.Claimant),
		r.TableVersion,
		int64(r.BlockNumber),
		status,
		amount,
		payload,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent resolution for (chain, token, claimant).
func (s *AllocationStore) GetLatest(ctx context.Context, chainID uint64, token, claimant common.Address) (*domain.AllocationResolution, error) {
	query := `
		SELECT payload
		FROM allocation_resolutions
		WHERE chain_id = $1 AND token = $2 AND claimant = $3
		ORDER BY block_number DESC, created_at DESC
		LIMIT 1
	`

	var payload []byte
	err := s.pool.QueryRow(ctx, query, int64(chainID), addressKey(token), addressKey(claimant)).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest resolution: %w", err)
	}

	var r domain.AllocationResolution
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal resolution: %w", err)
	}
	return &r, nil
}
