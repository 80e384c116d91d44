package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AllocationStatus classifies one probed allocation amount.
type AllocationStatus string

const (
	AllocationAvailable AllocationStatus = "available"
	AllocationLocked    AllocationStatus = "locked"
	AllocationClaimed   AllocationStatus = "claimed"
	AllocationNotFound  AllocationStatus = "not_found"
)

// AllocationCandidate is one configured amount and how it classified.
// Lower Priority wins.
type AllocationCandidate struct {
	Amount           *big.Int         `json:"amount"`
	AvailableToClaim *big.Int         `json:"availableToClaim"`
	Status           AllocationStatus `json:"status"`
	Priority         int              `json:"priority"`
	Error            string           `json:"error,omitempty"`
}

// AllocationResolution is the outcome of resolving the allocation of one
// (token, claimant) pair.
type AllocationResolution struct {
	ID           string         `json:"id"`
	ChainID      uint64         `json:"chainId"`
	Treasury     common.Address `json:"treasury"`
	Token        common.Address `json:"token"`
	Claimant     common.Address `json:"claimant"`
	TableVersion string         `json:"tableVersion"`
	// Selected is nil when no configured amount matched.
	Selected *AllocationCandidate `json:"selected"`
	// Candidates holds every probed amount in table order, including the
	// dropped ones as not_found.
	Candidates []AllocationCandidate `json:"candidates"`
	// BlockNumber is the head read before probing, zero when unknown.
	BlockNumber uint64 `json:"blockNumber"`
}
