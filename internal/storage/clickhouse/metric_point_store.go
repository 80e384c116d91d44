package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// MetricPointStore implements storage.MetricPointStore using ClickHouse.
// Big integers map to UInt256 columns, unknown APRs to NULL.
type MetricPointStore struct {
	conn *Conn
}

// NewMetricPointStore creates a new MetricPointStore.
func NewMetricPointStore(conn *Conn) *MetricPointStore {
	return &MetricPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricPointStore = (*MetricPointStore)(nil)

// chRows is the subset of driver.Rows used by the scan helpers.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (chain_id, token, block_number), existing or within the batch.
func (s *MetricPointStore) InsertBulk(ctx context.Context, points []*domain.MetricPoint) (err error) {
	defer observeQuery("insert_metric_points", time.Now(), &err)

	if len(points) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Token == "" {
			return storage.ErrInvalidInput
		}
		k := fmt.Sprintf("%d|%s|%d", p.ChainID, strings.ToLower(p.Token), p.BlockNumber)
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		exists, err := s.exists(ctx, p.ChainID, strings.ToLower(p.Token), p.BlockNumber)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_points (
			chain_id, token, block_number, block_time,
			total_supply, total_allocated, total_staked,
			utilization_bps, primary_apr_bps, secondary_apr_bps,
			stream_active, current_cycle
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err := batch.Append(
			p.ChainID,
			strings.ToLower(p.Token),
			p.BlockNumber,
			p.BlockTime,
			orZero(p.TotalSupply),
			orZero(p.TotalAllocated),
			orZero(p.TotalStaked),
			p.UtilizationBps,
			p.PrimaryAPRBps,
			p.SecondaryAPRBps,
			p.StreamActive,
			p.CurrentCycle,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByBlockRange retrieves points for key within [from, to] (inclusive).
func (s *MetricPointStore) GetByBlockRange(ctx context.Context, key domain.SnapshotKey, from, to uint64) ([]*domain.MetricPoint, error) {
	query := `
		SELECT chain_id, token, block_number, block_time,
		       total_supply, total_allocated, total_staked,
		       utilization_bps, primary_apr_bps, secondary_apr_bps,
		       stream_active, current_cycle
		FROM metric_points FINAL
		WHERE chain_id = ? AND token = ? AND block_number >= ? AND block_number <= ?
		ORDER BY block_number ASC
	`

	rows, err := s.conn.Query(ctx, query, key.ChainID, strings.ToLower(key.Token.Hex()), from, to)
	if err != nil {
		return nil, fmt.Errorf("query metric points: %w", err)
	}
	defer rows.Close()

	return scanMetricPoints(rows)
}

func (s *MetricPointStore) exists(ctx context.Context, chainID uint64, token string, block uint64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM metric_points
		WHERE chain_id = ? AND token = ? AND block_number = ?
	`, chainID, token, block).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanMetricPoints(rows chRows) ([]*domain.MetricPoint, error) {
	var points []*domain.MetricPoint
	for rows.Next() {
		var (
			p                         domain.MetricPoint
			supply, allocated, staked big.Int
			primaryAPR, secondaryAPR  *uint64
		)
		err := rows.Scan(
			&p.ChainID,
			&p.Token,
			&p.BlockNumber,
			&p.BlockTime,
			&supply,
			&allocated,
			&staked,
			&p.UtilizationBps,
			&primaryAPR,
			&secondaryAPR,
			&p.StreamActive,
			&p.CurrentCycle,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric point: %w", err)
		}
		p.TotalSupply = &supply
		p.TotalAllocated = &allocated
		p.TotalStaked = &staked
		p.PrimaryAPRBps = primaryAPR
		p.SecondaryAPRBps = secondaryAPR
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric points: %w", err)
	}
	return points, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
