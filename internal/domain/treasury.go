package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TreasuryStats describes how much of the supply sits in project contracts.
type TreasuryStats struct {
	TreasuryBalance *big.Int `json:"treasuryBalance"`
	StakingBalance  *big.Int `json:"stakingBalance"`
	// StakingSecondaryBalance is nil when no secondary asset is configured.
	StakingSecondaryBalance *big.Int `json:"stakingSecondaryBalance,omitempty"`
	// TotalAllocated = TreasuryBalance + StakingBalance.
	TotalAllocated     *big.Int        `json:"totalAllocated"`
	UtilizationBps     uint64          `json:"utilizationBps"`
	UtilizationPercent decimal.Decimal `json:"utilizationPercent"`
}
