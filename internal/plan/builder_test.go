package plan

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakelens/internal/contracts"
	"stakelens/internal/domain"
)

var (
	testToken     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testSecondary = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testSplitter  = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testUser      = common.HexToAddress("0x4000000000000000000000000000000000000004")

	testAddrs = domain.EntityAddressSet{
		Treasury:    common.HexToAddress("0xa000000000000000000000000000000000000001"),
		Governor:    common.HexToAddress("0xa000000000000000000000000000000000000002"),
		StakingPool: common.HexToAddress("0xa000000000000000000000000000000000000003"),
		StakedToken: common.HexToAddress("0xa000000000000000000000000000000000000004"),
		Factory:     common.HexToAddress("0xa000000000000000000000000000000000000005"),
	}
)

func TestProjectPlan_GroupSizes(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  []int
	}{
		{
			name:  "no optional features",
			flags: Flags{},
			want:  []int{7, 1, 2, 1, 6, 0},
		},
		{
			name:  "secondary asset",
			flags: Flags{SecondaryAsset: testSecondary},
			want:  []int{7, 1, 3, 1, 10, 0},
		},
		{
			name:  "fee splitter only",
			flags: Flags{FeeSplitter: testSplitter},
			want:  []int{7, 1, 2, 1, 6, 1},
		},
		{
			name: "everything",
			flags: Flags{
				SecondaryAsset: testSecondary,
				FeeSplitter:    testSplitter,
				ProposalTypes:  domain.AllProposalTypes,
				User:           testUser,
			},
			want: []int{7, 1, 3, 4, 13, 2},
		},
		{
			name:  "user without secondary",
			flags: Flags{User: testUser, ProposalTypes: domain.AllProposalTypes[:1]},
			want:  []int{7, 1, 2, 2, 8, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProjectPlan(testToken, testAddrs, tt.flags)

			assert.Equal(t, tt.want, p.Sizes())

			sum := 0
			for _, n := range p.Sizes() {
				sum += n
			}
			assert.Len(t, p.Descriptors(), sum)
		})
	}
}

func TestProjectPlan_Order(t *testing.T) {
	p := ProjectPlan(testToken, testAddrs, Flags{FeeSplitter: testSplitter})

	require.Len(t, p.Groups, len(Order))
	for i, g := range p.Groups {
		assert.Equal(t, Order[i], g.Name)
	}
}

func TestStakingGroup_Layout(t *testing.T) {
	g := StakingGroup(testToken, testAddrs.StakingPool, Flags{SecondaryAsset: testSecondary, User: testUser})

	names := make([]string, len(g.Descriptors))
	for i, d := range g.Descriptors {
		names[i] = d.Name()
		assert.Equal(t, testAddrs.StakingPool, d.Target)
	}

	assert.Equal(t, []string{
		contracts.MethodTotalStaked, contracts.MethodStreamWindow,
		contracts.MethodRewardRate, contracts.MethodStreamInfo, contracts.MethodAvailableRewards, contracts.MethodPendingRewards,
		contracts.MethodRewardRate, contracts.MethodStreamInfo, contracts.MethodAvailableRewards, contracts.MethodPendingRewards,
		contracts.MethodStakedBalance, contracts.MethodEarned, contracts.MethodEarned,
	}, names)

	// Second asset block targets the secondary asset.
	assert.Equal(t, []interface{}{testSecondary}, g.Descriptors[StakingBaseSize+StakingPerAsset].Args)
	assert.Equal(t, []interface{}{testUser, testSecondary}, g.Descriptors[len(g.Descriptors)-1].Args)
}

func TestTreasuryGroup_SecondaryTargetsSecondaryToken(t *testing.T) {
	g := TreasuryGroup(testToken, testAddrs, Flags{SecondaryAsset: testSecondary})

	require.Equal(t, 3, g.Count())
	assert.Equal(t, testToken, g.Descriptors[0].Target)
	assert.Equal(t, []interface{}{testAddrs.Treasury}, g.Descriptors[0].Args)
	assert.Equal(t, testSecondary, g.Descriptors[2].Target)
	assert.Equal(t, []interface{}{testAddrs.StakingPool}, g.Descriptors[2].Args)
}

func TestFeeSplitterGroup_InactiveIsEmpty(t *testing.T) {
	g := FeeSplitterGroup(testToken, Flags{SecondaryAsset: testSecondary})
	assert.Equal(t, 0, g.Count())
	assert.Equal(t, GroupFeeSplitter, g.Name)
}

func TestDescriptors_Calldata(t *testing.T) {
	// Every descriptor of a full plan must ABI-encode.
	p := ProjectPlan(testToken, testAddrs, Flags{
		SecondaryAsset: testSecondary,
		FeeSplitter:    testSplitter,
		ProposalTypes:  domain.AllProposalTypes,
		User:           testUser,
	})
	for _, d := range p.Descriptors() {
		data, err := d.Calldata()
		require.NoError(t, err, d.String())
		assert.GreaterOrEqual(t, len(data), 4)
	}
}

func TestAllocationPlan(t *testing.T) {
	amounts := []*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(5)}
	p := AllocationPlan(testAddrs.Treasury, testToken, testUser, amounts)

	assert.Equal(t, []int{3, 1}, p.Sizes())
	descs := p.Descriptors()
	for i, amount := range amounts {
		assert.Equal(t, contracts.MethodAmountAvailableToClaim, descs[i].Name())
		assert.Equal(t, []interface{}{testToken, testUser, amount}, descs[i].Args)
	}
	assert.Equal(t, contracts.MethodBalanceOf, descs[3].Name())
	assert.Equal(t, testToken, descs[3].Target)
}
