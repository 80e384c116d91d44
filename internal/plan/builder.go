// Package plan builds batched read plans and slices batch results back into
// their groups.
//
// A plan is an ordered list of groups. Each group owns a contiguous run of
// descriptors and its declared size is len(Descriptors); nothing downstream
// infers group boundaries from the results themselves.
package plan

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/chain"
	"stakelens/internal/contracts"
	"stakelens/internal/domain"
)

// GroupName identifies a logical read group.
type GroupName string

const (
	GroupToken       GroupName = "token"
	GroupFactory     GroupName = "factory"
	GroupTreasury    GroupName = "treasury"
	GroupGovernance  GroupName = "governance"
	GroupStaking     GroupName = "staking"
	GroupFeeSplitter GroupName = "feeSplitter"

	GroupAllocation GroupName = "allocation"
	GroupClaimant   GroupName = "claimant"
)

// Order is the fixed group order of a project plan.
var Order = []GroupName{
	GroupToken,
	GroupFactory,
	GroupTreasury,
	GroupGovernance,
	GroupStaking,
	GroupFeeSplitter,
}

// Group layout sizes.
const (
	TokenGroupSize   = 7
	FactoryGroupSize = 1

	TreasuryBaseSize = 2

	// Staking: totalStaked, streamWindow, then StakingPerAsset reads for the
	// primary asset and again for the secondary asset when configured.
	StakingBaseSize = 2
	StakingPerAsset = 4
	StakingUserBase = 2 // stakedBalance, earned(primary)
)

// Flags are the runtime switches that shape a plan.
type Flags struct {
	// SecondaryAsset is the second reward asset; zero when not configured.
	SecondaryAsset common.Address
	// FeeSplitter is the fee splitter contract; zero when inactive.
	FeeSplitter common.Address
	// ProposalTypes are the governor proposal kinds to count.
	ProposalTypes []domain.ProposalType
	// User adds the user staking position reads; zero for none.
	User common.Address
}

// HasSecondary reports whether a secondary reward asset is configured.
func (f Flags) HasSecondary() bool { return f.SecondaryAsset != (common.Address{}) }

// HasFeeSplitter reports whether the fee splitter path is active.
func (f Flags) HasFeeSplitter() bool { return f.FeeSplitter != (common.Address{}) }

// HasUser reports whether user position reads are requested.
func (f Flags) HasUser() bool { return f.User != (common.Address{}) }

// Group is a named run of descriptors.
type Group struct {
	Name        GroupName
	Descriptors []chain.ReadDescriptor
}

// Count is the declared size of the group.
func (g Group) Count() int { return len(g.Descriptors) }

// TokenGroup reads token metadata.
func TokenGroup(token common.Address) Group {
	t := contracts.Token
	return Group{Name: GroupToken, Descriptors: []chain.ReadDescriptor{
		t.Call(token, contracts.MethodDecimals),
		t.Call(token, contracts.MethodName),
		t.Call(token, contracts.MethodSymbol),
		t.Call(token, contracts.MethodTotalSupply),
		t.Call(token, contracts.MethodAdmin),
		t.Call(token, contracts.MethodOriginalAdmin),
		t.Call(token, contracts.MethodMetadata),
	}}
}

// FactoryGroup reads the project contract addresses from the factory.
func FactoryGroup(factory, token common.Address) Group {
	return Group{Name: GroupFactory, Descriptors: []chain.ReadDescriptor{
		contracts.Factory.Call(factory, contracts.MethodGetProjectContracts, token),
	}}
}

// TreasuryGroup reads the token balances held by the treasury and the
// staking pool, plus the pool's secondary asset balance when configured.
func TreasuryGroup(token common.Address, addrs domain.EntityAddressSet, f Flags) Group {
	t := contracts.Token
	g := Group{Name: GroupTreasury, Descriptors: []chain.ReadDescriptor{
		t.Call(token, contracts.MethodBalanceOf, addrs.Treasury),
		t.Call(token, contracts.MethodBalanceOf, addrs.StakingPool),
	}}
	if f.HasSecondary() {
		g.Descriptors = append(g.Descriptors, t.Call(f.SecondaryAsset, contracts.MethodBalanceOf, addrs.StakingPool))
	}
	return g
}

// GovernanceGroup reads the cycle id and one active-proposal count per
// proposal type.
func GovernanceGroup(governor common.Address, f Flags) Group {
	gov := contracts.Governor
	g := Group{Name: GroupGovernance, Descriptors: []chain.ReadDescriptor{
		gov.Call(governor, contracts.MethodCurrentCycleID),
	}}
	for _, pt := range f.ProposalTypes {
		g.Descriptors = append(g.Descriptors, gov.Call(governor, contracts.MethodActiveProposalCount, uint8(pt)))
	}
	return g
}

// StakingGroup reads pool totals, per-asset reward state and, when a user
// is set, the user's position.
func StakingGroup(token, pool common.Address, f Flags) Group {
	s := contracts.StakingPool
	g := Group{Name: GroupStaking, Descriptors: []chain.ReadDescriptor{
		s.Call(pool, contracts.MethodTotalStaked),
		s.Call(pool, contracts.MethodStreamWindow),
	}}

	assets := []common.Address{token}
	if f.HasSecondary() {
		assets = append(assets, f.SecondaryAsset)
	}
	for _, asset := range assets {
		g.Descriptors = append(g.Descriptors,
			s.Call(pool, contracts.MethodRewardRate, asset),
			s.Call(pool, contracts.MethodStreamInfo, asset),
			s.Call(pool, contracts.MethodAvailableRewards, asset),
			s.Call(pool, contracts.MethodPendingRewards, asset),
		)
	}

	if f.HasUser() {
		g.Descriptors = append(g.Descriptors, s.Call(pool, contracts.MethodStakedBalance, f.User))
		for _, asset := range assets {
			g.Descriptors = append(g.Descriptors, s.Call(pool, contracts.MethodEarned, f.User, asset))
		}
	}
	return g
}

// FeeSplitterGroup reads pending fees held by the fee splitter. The group is
// empty when the splitter is inactive.
func FeeSplitterGroup(token common.Address, f Flags) Group {
	g := Group{Name: GroupFeeSplitter}
	if !f.HasFeeSplitter() {
		return g
	}
	fs := contracts.FeeSplitter
	g.Descriptors = append(g.Descriptors, fs.Call(f.FeeSplitter, contracts.MethodPendingFees, token))
	if f.HasSecondary() {
		g.Descriptors = append(g.Descriptors, fs.Call(f.FeeSplitter, contracts.MethodPendingFees, f.SecondaryAsset))
	}
	return g
}

// AllocationGroup probes amountAvailableToClaim once per candidate amount,
// in table order.
func AllocationGroup(treasury, token, claimant common.Address, amounts []*big.Int) Group {
	g := Group{Name: GroupAllocation}
	for _, amount := range amounts {
		g.Descriptors = append(g.Descriptors,
			contracts.Treasury.Call(treasury, contracts.MethodAmountAvailableToClaim, token, claimant, amount))
	}
	return g
}

// ClaimantGroup reads the claimant's token balance.
func ClaimantGroup(token, claimant common.Address) Group {
	return Group{Name: GroupClaimant, Descriptors: []chain.ReadDescriptor{
		contracts.Token.Call(token, contracts.MethodBalanceOf, claimant),
	}}
}

// Plan is an ordered list of groups.
type Plan struct {
	Groups []Group
}

// Add appends g.
func (p *Plan) Add(g Group) {
	p.Groups = append(p.Groups, g)
}

// Descriptors concatenates all group descriptors in append order.
func (p *Plan) Descriptors() []chain.ReadDescriptor {
	total := 0
	for _, g := range p.Groups {
		total += g.Count()
	}
	out := make([]chain.ReadDescriptor, 0, total)
	for _, g := range p.Groups {
		out = append(out, g.Descriptors...)
	}
	return out
}

// Sizes returns the declared group sizes in append order.
func (p *Plan) Sizes() []int {
	sizes := make([]int, len(p.Groups))
	for i, g := range p.Groups {
		sizes[i] = g.Count()
	}
	return sizes
}

// LookupPlan is the registry lookup round trip: the factory group alone.
func LookupPlan(factory, token common.Address) *Plan {
	p := &Plan{}
	p.Add(FactoryGroup(factory, token))
	return p
}

// AllocationPlan is the allocation resolver's single round trip: one probe
// per amount followed by the claimant balance.
func AllocationPlan(treasury, token, claimant common.Address, amounts []*big.Int) *Plan {
	p := &Plan{}
	p.Add(AllocationGroup(treasury, token, claimant, amounts))
	p.Add(ClaimantGroup(token, claimant))
	return p
}

// ProjectPlan builds the full project plan in Order.
func ProjectPlan(token common.Address, addrs domain.EntityAddressSet, f Flags) *Plan {
	p := &Plan{}
	p.Add(TokenGroup(token))
	p.Add(FactoryGroup(addrs.Factory, token))
	p.Add(TreasuryGroup(token, addrs, f))
	p.Add(GovernanceGroup(addrs.Governor, f))
	p.Add(StakingGroup(token, addrs.StakingPool, f))
	p.Add(FeeSplitterGroup(token, f))
	return p
}
