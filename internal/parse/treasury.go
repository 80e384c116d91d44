package parse

import (
	"stakelens/internal/contracts"
	"stakelens/internal/domain"
	"stakelens/internal/plan"
)

// Treasury parses the treasury group balances. Derived totals are filled in
// by the metrics package.
func Treasury(r *Reader, f plan.Flags) domain.TreasuryStats {
	stats := domain.TreasuryStats{}
	if !r.Require(plan.TreasuryBaseSize) {
		return stats
	}

	stats.TreasuryBalance = r.BigInt(0, contracts.MethodBalanceOf, "treasuryBalance")
	stats.StakingBalance = r.BigInt(1, contracts.MethodBalanceOf, "stakingBalance")
	if f.HasSecondary() && r.Has(2) {
		stats.StakingSecondaryBalance = r.BigInt(2, contracts.MethodBalanceOf, "stakingSecondaryBalance")
	}
	return stats
}
