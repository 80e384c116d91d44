package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StreamWindow is the reward release interval of one reward asset.
// IsActive is evaluated against a chain timestamp, inclusive at both ends.
type StreamWindow struct {
	Start         uint64 `json:"start"`
	End           uint64 `json:"end"`
	WindowSeconds uint64 `json:"windowSeconds"`
	IsActive      bool   `json:"isActive"`
}

// RewardAsset holds the staking figures of one reward asset.
type RewardAsset struct {
	Token      common.Address `json:"token"`
	RewardRate *big.Int       `json:"rewardRate"` // per second
	Available  *big.Int       `json:"available"`
	// Pending is the externally reported pending figure: StakingPending plus
	// SplitterPending when the fee splitter is active.
	Pending         *big.Int     `json:"pending"`
	StakingPending  *big.Int     `json:"stakingPending"`
	SplitterPending *big.Int     `json:"splitterPending,omitempty"`
	Stream          StreamWindow `json:"stream"`
	// APRBps is nil when the rate cannot be annualized (nothing staked or
	// no pricing for a secondary asset).
	APRBps *big.Int `json:"aprBps"`
}

// StakingStats describes the staking pool.
type StakingStats struct {
	TotalStaked         *big.Int     `json:"totalStaked"`
	StreamWindowSeconds uint64       `json:"streamWindowSeconds"`
	Primary             RewardAsset  `json:"primary"`
	Secondary           *RewardAsset `json:"secondary,omitempty"`
}

// UserPosition is the staking state of one account.
type UserPosition struct {
	User            common.Address `json:"user"`
	Staked          *big.Int       `json:"staked"`
	EarnedPrimary   *big.Int       `json:"earnedPrimary"`
	EarnedSecondary *big.Int       `json:"earnedSecondary,omitempty"`
}
