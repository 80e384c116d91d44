package parse

import (
	"stakelens/internal/contracts"
	"stakelens/internal/domain"
	"stakelens/internal/plan"
)

// FeeSplitter parses the fee splitter group. It returns nil when the
// splitter path is inactive.
func FeeSplitter(r *Reader, f plan.Flags) *domain.FeeSplitterState {
	if !f.HasFeeSplitter() {
		return nil
	}
	if !r.Require(1) {
		return nil
	}

	state := &domain.FeeSplitterState{
		Address:        f.FeeSplitter,
		PendingPrimary: r.BigInt(0, contracts.MethodPendingFees, "pendingPrimary"),
	}
	if f.HasSecondary() && r.Has(1) {
		state.PendingSecondary = r.BigInt(1, contracts.MethodPendingFees, "pendingSecondary")
	}
	return state
}
