package parse

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakelens/internal/chain"
	"stakelens/internal/domain"
	"stakelens/internal/plan"
)

var (
	token     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	secondary = common.HexToAddress("0x2000000000000000000000000000000000000002")
	splitter  = common.HexToAddress("0x3000000000000000000000000000000000000003")
	user      = common.HexToAddress("0x4000000000000000000000000000000000000004")
	factory   = common.HexToAddress("0xf000000000000000000000000000000000000001")

	addrs = domain.EntityAddressSet{
		Treasury:    common.HexToAddress("0xa000000000000000000000000000000000000001"),
		Governor:    common.HexToAddress("0xa000000000000000000000000000000000000002"),
		StakingPool: common.HexToAddress("0xa000000000000000000000000000000000000003"),
		StakedToken: common.HexToAddress("0xa000000000000000000000000000000000000004"),
		Factory:     factory,
	}

	errRead = errors.New("execution reverted")
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// results answers every descriptor of g with the matching value; a nil value
// becomes a failed call.
func results(g plan.Group, values ...interface{}) []chain.Result {
	out := make([]chain.Result, len(g.Descriptors))
	for i, d := range g.Descriptors {
		if values[i] == nil {
			out[i] = chain.Failure(d, errRead)
			continue
		}
		out[i] = chain.Success(d, values[i])
	}
	return out
}

func reader(g plan.Group, values ...interface{}) *Reader {
	return NewReader(g.Name, results(g, values...), quietLogger())
}

func TestToken(t *testing.T) {
	g := plan.TokenGroup(token)
	admin := common.HexToAddress("0xad00000000000000000000000000000000000001")

	t.Run("all reads succeed", func(t *testing.T) {
		r := reader(g, uint8(9), "Lens", "LNS", big.NewInt(1_000_000), admin, admin, `{"website":"https://example.org"}`)
		rec := Token(token, r)

		require.NoError(t, r.Err())
		assert.Empty(t, r.Defaulted())
		assert.Equal(t, token, rec.Address)
		assert.Equal(t, uint8(9), rec.Decimals)
		assert.Equal(t, "LNS", rec.Symbol)
		assert.Equal(t, "1000000", rec.TotalSupply.String())
		assert.Equal(t, "https://example.org", rec.Metadata["website"])
	})

	t.Run("invalid metadata degrades to nil", func(t *testing.T) {
		r := reader(g, uint8(18), "Lens", "LNS", big.NewInt(1), admin, admin, `{not json`)
		rec := Token(token, r)

		require.NoError(t, r.Err())
		assert.Nil(t, rec.Metadata)
		assert.Equal(t, `{not json`, rec.MetadataRaw)
		assert.Empty(t, r.Defaulted())
	})

	t.Run("failed reads use defaults", func(t *testing.T) {
		r := reader(g, nil, "Lens", "LNS", nil, admin, nil, nil)
		rec := Token(token, r)

		require.NoError(t, r.Err())
		assert.Equal(t, DefaultDecimals, rec.Decimals)
		assert.Equal(t, int64(0), rec.TotalSupply.Int64())
		assert.Equal(t, common.Address{}, rec.OriginalAdmin)
		assert.Nil(t, rec.Metadata)
		assert.Equal(t, []string{"token.decimals", "token.totalSupply", "token.originalAdmin", "token.metadata"}, r.Defaulted())
	})
}

func TestReader_ShapeMismatch(t *testing.T) {
	g := plan.TokenGroup(token)
	res := results(g, uint8(9), "Lens", "LNS", big.NewInt(1), token, token, "")
	res[1], res[2] = res[2], res[1]

	r := NewReader(g.Name, res, quietLogger())
	Token(token, r)
	assert.ErrorIs(t, r.Err(), ErrShapeMismatch)

	_, err := Collect(r)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestReader_ShortSlice(t *testing.T) {
	g := plan.TokenGroup(token)
	res := results(g, uint8(9), "Lens", "LNS", big.NewInt(1), token, token, "")

	r := NewReader(g.Name, res[:5], quietLogger())
	Token(token, r)
	assert.ErrorIs(t, r.Err(), ErrShapeMismatch)
}

func TestReader_WrongValueType(t *testing.T) {
	g := plan.TokenGroup(token)
	r := reader(g, uint8(9), "Lens", "LNS", "not a number", token, token, "")
	Token(token, r)
	assert.ErrorIs(t, r.Err(), ErrShapeMismatch)
}

func TestRegistry(t *testing.T) {
	g := plan.FactoryGroup(factory, token)

	t.Run("registered", func(t *testing.T) {
		r := reader(g, []interface{}{addrs.Treasury, addrs.Governor, addrs.StakingPool, addrs.StakedToken})
		set := Registry(factory, r)
		require.NoError(t, r.Err())
		assert.Equal(t, addrs, set)
		assert.True(t, set.Registered())
	})

	t.Run("zero address means not registered", func(t *testing.T) {
		r := reader(g, []interface{}{addrs.Treasury, common.Address{}, addrs.StakingPool, addrs.StakedToken})
		set := Registry(factory, r)
		require.NoError(t, r.Err())
		assert.False(t, set.Registered())
	})

	t.Run("failed lookup", func(t *testing.T) {
		r := reader(g, nil)
		set := Registry(factory, r)
		require.NoError(t, r.Err())
		assert.False(t, set.Registered())
		assert.Equal(t, []string{"factory.contracts"}, r.Defaulted())
	})
}

func TestTreasury_SecondaryFailureIsolated(t *testing.T) {
	f := plan.Flags{SecondaryAsset: secondary}
	g := plan.TreasuryGroup(token, addrs, f)
	r := reader(g, big.NewInt(500), big.NewInt(300), nil)

	stats := Treasury(r, f)
	require.NoError(t, r.Err())
	assert.Equal(t, "500", stats.TreasuryBalance.String())
	assert.Equal(t, "300", stats.StakingBalance.String())
	require.NotNil(t, stats.StakingSecondaryBalance)
	assert.Equal(t, int64(0), stats.StakingSecondaryBalance.Int64())
	assert.Equal(t, []string{"treasury.stakingSecondaryBalance"}, r.Defaulted())
}

func TestTreasury_NoSecondary(t *testing.T) {
	g := plan.TreasuryGroup(token, addrs, plan.Flags{})
	r := reader(g, big.NewInt(1), big.NewInt(2))

	stats := Treasury(r, plan.Flags{})
	require.NoError(t, r.Err())
	assert.Nil(t, stats.StakingSecondaryBalance)
}

func TestGovernance(t *testing.T) {
	f := plan.Flags{ProposalTypes: domain.AllProposalTypes}
	g := plan.GovernanceGroup(addrs.Governor, f)

	t.Run("cycle offset and counts", func(t *testing.T) {
		r := reader(g, big.NewInt(0), big.NewInt(2), big.NewInt(0), big.NewInt(1))
		stats := Governance(r, f)

		require.NoError(t, r.Err())
		assert.Equal(t, uint64(1), stats.CurrentCycle)
		assert.Equal(t, uint64(3), stats.TotalActive)
		require.Len(t, stats.ActiveProposals, 3)
		assert.Equal(t, "treasury_transfer", stats.ActiveProposals[0].Name)
		assert.Equal(t, uint64(2), stats.ActiveProposals[0].Count)
	})

	t.Run("failed count defaults to zero", func(t *testing.T) {
		r := reader(g, big.NewInt(4), nil, big.NewInt(1), big.NewInt(1))
		stats := Governance(r, f)

		require.NoError(t, r.Err())
		assert.Equal(t, uint64(5), stats.CurrentCycle)
		assert.Equal(t, uint64(2), stats.TotalActive)
		assert.Equal(t, []string{"governance.activeProposals.treasury_transfer"}, r.Defaulted())
	})
}

func TestStaking(t *testing.T) {
	t.Run("primary only", func(t *testing.T) {
		f := plan.Flags{}
		g := plan.StakingGroup(token, addrs.StakingPool, f)
		r := reader(g,
			big.NewInt(1000), big.NewInt(604800),
			big.NewInt(5), []interface{}{uint64(100), uint64(200)}, big.NewInt(40), big.NewInt(70),
		)

		stats, pos := Staking(token, r, f)
		require.NoError(t, r.Err())
		assert.Nil(t, pos)
		assert.Nil(t, stats.Secondary)
		assert.Equal(t, "1000", stats.TotalStaked.String())
		assert.Equal(t, uint64(604800), stats.StreamWindowSeconds)
		assert.Equal(t, token, stats.Primary.Token)
		assert.Equal(t, uint64(100), stats.Primary.Stream.Start)
		assert.Equal(t, uint64(200), stats.Primary.Stream.End)
		assert.Equal(t, uint64(604800), stats.Primary.Stream.WindowSeconds)
		assert.Equal(t, "70", stats.Primary.Pending.String())
		assert.Equal(t, "70", stats.Primary.StakingPending.String())
	})

	t.Run("secondary and user", func(t *testing.T) {
		f := plan.Flags{SecondaryAsset: secondary, User: user}
		g := plan.StakingGroup(token, addrs.StakingPool, f)
		r := reader(g,
			big.NewInt(1000), big.NewInt(3600),
			big.NewInt(5), []interface{}{uint64(1), uint64(2)}, big.NewInt(40), big.NewInt(70),
			big.NewInt(7), nil, big.NewInt(8), big.NewInt(9),
			big.NewInt(250), big.NewInt(11), big.NewInt(12),
		)

		stats, pos := Staking(token, r, f)
		require.NoError(t, r.Err())
		require.NotNil(t, stats.Secondary)
		assert.Equal(t, secondary, stats.Secondary.Token)
		assert.Equal(t, "7", stats.Secondary.RewardRate.String())
		assert.Equal(t, uint64(0), stats.Secondary.Stream.End)
		assert.Equal(t, []string{"staking.secondary.stream"}, r.Defaulted())

		require.NotNil(t, pos)
		assert.Equal(t, user, pos.User)
		assert.Equal(t, "250", pos.Staked.String())
		assert.Equal(t, "11", pos.EarnedPrimary.String())
		assert.Equal(t, "12", pos.EarnedSecondary.String())
	})

	t.Run("flags disagree with slice", func(t *testing.T) {
		g := plan.StakingGroup(token, addrs.StakingPool, plan.Flags{})
		r := reader(g,
			big.NewInt(1000), big.NewInt(3600),
			big.NewInt(5), []interface{}{uint64(1), uint64(2)}, big.NewInt(40), big.NewInt(70),
		)

		Staking(token, r, plan.Flags{SecondaryAsset: secondary})
		assert.ErrorIs(t, r.Err(), ErrShapeMismatch)
	})
}

func TestFeeSplitter(t *testing.T) {
	t.Run("inactive", func(t *testing.T) {
		r := NewReader(plan.GroupFeeSplitter, nil, quietLogger())
		assert.Nil(t, FeeSplitter(r, plan.Flags{}))
		assert.NoError(t, r.Err())
	})

	t.Run("active with secondary", func(t *testing.T) {
		f := plan.Flags{FeeSplitter: splitter, SecondaryAsset: secondary}
		g := plan.FeeSplitterGroup(token, f)
		r := reader(g, big.NewInt(30), big.NewInt(4))

		state := FeeSplitter(r, f)
		require.NoError(t, r.Err())
		require.NotNil(t, state)
		assert.Equal(t, splitter, state.Address)
		assert.Equal(t, "30", state.PendingPrimary.String())
		assert.Equal(t, "4", state.PendingSecondary.String())
	})
}

func TestCollect(t *testing.T) {
	g := plan.TreasuryGroup(token, addrs, plan.Flags{})
	a := reader(g, nil, big.NewInt(1))
	b := reader(g, big.NewInt(1), nil)
	Treasury(a, plan.Flags{})
	Treasury(b, plan.Flags{})

	defaulted, err := Collect(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"treasury.treasuryBalance", "treasury.stakingBalance"}, defaulted)
}
