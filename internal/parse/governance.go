package parse

import (
	"stakelens/internal/contracts"
	"stakelens/internal/domain"
	"stakelens/internal/plan"
)

// Governance parses the governance group. The on-chain cycle id is zero
// based; callers see it plus one. A failed cycle read still reports cycle 1.
func Governance(r *Reader, f plan.Flags) domain.GovernanceStats {
	stats := domain.GovernanceStats{ActiveProposals: []domain.ProposalCount{}}
	if !r.Require(1 + len(f.ProposalTypes)) {
		return stats
	}

	stats.CurrentCycle = uint64Of(r.BigInt(0, contracts.MethodCurrentCycleID, "currentCycle")) + 1

	for i, pt := range f.ProposalTypes {
		count := uint64Of(r.BigInt(1+i, contracts.MethodActiveProposalCount, "activeProposals."+pt.String()))
		stats.ActiveProposals = append(stats.ActiveProposals, domain.ProposalCount{
			Type:  pt,
			Name:  pt.String(),
			Count: count,
		})
		stats.TotalActive += count
	}
	return stats
}
