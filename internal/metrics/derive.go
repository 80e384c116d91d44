package metrics

import (
	"math/big"

	"github.com/shopspring/decimal"

	"stakelens/internal/domain"
)

// Inputs are the external figures needed to derive snapshot metrics.
type Inputs struct {
	// ReferenceTimestamp is the chain head timestamp.
	ReferenceTimestamp uint64
	// Ratio converts secondary base units to primary base units; RatioOK is
	// false when pricing is unavailable.
	Ratio   decimal.Decimal
	RatioOK bool
}

// Apply fills the derived fields of a snapshot that is still being
// assembled: treasury totals and utilization, stream activity, APRs and
// the hybrid pending merge.
func Apply(s *domain.ProjectSnapshot, in Inputs) {
	// Treasury
	allocated := new(big.Int)
	if s.Treasury.TreasuryBalance != nil {
		allocated.Add(allocated, s.Treasury.TreasuryBalance)
	}
	if s.Treasury.StakingBalance != nil {
		allocated.Add(allocated, s.Treasury.StakingBalance)
	}
	s.Treasury.TotalAllocated = allocated
	s.Treasury.UtilizationBps, s.Treasury.UtilizationPercent = Utilization(allocated, s.Token.TotalSupply)

	// Staking
	splitterActive := s.FeeSplitter != nil
	primary := &s.Staking.Primary
	primary.Stream.IsActive = StreamActive(primary.Stream.Start, primary.Stream.End, in.ReferenceTimestamp)
	primary.APRBps = PrimaryAPR(primary.RewardRate, s.Staking.TotalStaked)
	if splitterActive {
		primary.SplitterPending = copyInt(s.FeeSplitter.PendingPrimary)
	}
	primary.Pending = MergePending(primary.StakingPending, primary.SplitterPending, splitterActive)

	if sec := s.Staking.Secondary; sec != nil {
		sec.Stream.IsActive = StreamActive(sec.Stream.Start, sec.Stream.End, in.ReferenceTimestamp)
		sec.APRBps = SecondaryAPR(sec.RewardRate, s.Staking.TotalStaked, in.Ratio, in.RatioOK)
		if splitterActive && s.FeeSplitter.PendingSecondary != nil {
			sec.SplitterPending = copyInt(s.FeeSplitter.PendingSecondary)
		}
		sec.Pending = MergePending(sec.StakingPending, sec.SplitterPending, splitterActive)
	}
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
