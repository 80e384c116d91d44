package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/domain"
)

// ComputeSnapshotID computes a deterministic snapshot id using SHA256.
// Formula: SHA256(chain_id|token|block_number), token lowercase hex.
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotID(key domain.SnapshotKey, blockNumber uint64) string {
	data := fmt.Sprintf("%d|%s|%d",
		key.ChainID,
		strings.ToLower(key.Token.Hex()),
		blockNumber,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeResolutionID computes a deterministic allocation resolution id.
// Formula: SHA256(chain_id|token|claimant|table_version|block_number)
func ComputeResolutionID(
	chainID uint64,
	token common.Address,
	claimant common.Address,
	tableVersion string,
	blockNumber uint64,
) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%d",
		chainID,
		strings.ToLower(token.Hex()),
		strings.ToLower(claimant.Hex()),
		tableVersion,
		blockNumber,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
