package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FeeSplitterState is the pending state of the secondary fee distribution
// path. Its pending amounts are added to the staking pool's own.
type FeeSplitterState struct {
	Address          common.Address `json:"address"`
	PendingPrimary   *big.Int       `json:"pendingPrimary"`
	PendingSecondary *big.Int       `json:"pendingSecondary,omitempty"`
}
