package allocation

import (
	"sort"

	"stakelens/internal/domain"
)

// Rank orders surviving candidates by (priority ascending, amount
// descending) and returns the winner, or nil when none survived. The sort
// is stable, so exact ties keep enumeration order. cands is not modified.
func Rank(cands []domain.AllocationCandidate) *domain.AllocationCandidate {
	ranked := make([]domain.AllocationCandidate, 0, len(cands))
	for _, c := range cands {
		if c.Priority == PriorityDropped || c.Status == domain.AllocationNotFound {
			continue
		}
		ranked = append(ranked, c)
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority < ranked[j].Priority
		}
		return ranked[i].Amount.Cmp(ranked[j].Amount) > 0
	})

	best := ranked[0]
	return &best
}
