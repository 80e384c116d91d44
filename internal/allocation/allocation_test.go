package allocation

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakelens/internal/chain"
	"stakelens/internal/chain/stub"
	"stakelens/internal/contracts"
	"stakelens/internal/domain"
)

var (
	treasury = common.HexToAddress("0xa000000000000000000000000000000000000001")
	token    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	claimant = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

func claimCall() chain.ReadDescriptor {
	return contracts.Treasury.Call(treasury, contracts.MethodAmountAvailableToClaim, token, claimant, big.NewInt(1))
}

func customRevert(t *testing.T, name string, args ...interface{}) error {
	t.Helper()
	e, ok := contracts.Treasury.ABI.Errors[name]
	require.True(t, ok, name)
	packed, err := e.Inputs.Pack(args...)
	require.NoError(t, err)
	data := append(append([]byte{}, e.ID[:4]...), packed...)
	return &chain.CallError{Code: 3, Message: "execution reverted", Data: data}
}

func panicRevert(code byte) error {
	data := append([]byte{0x4e, 0x48, 0x7b, 0x71}, common.LeftPadBytes([]byte{code}, 32)...)
	return &chain.CallError{Code: 3, Message: "execution reverted", Data: data}
}

func errorReason(t *testing.T, reason string) error {
	t.Helper()
	typ, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: typ}}.Pack(reason)
	require.NoError(t, err)
	data := append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)
	return &chain.CallError{Code: 3, Message: "execution reverted", Data: data}
}

func cand(amount int64, status domain.AllocationStatus, priority int) domain.AllocationCandidate {
	return domain.AllocationCandidate{
		Amount:           big.NewInt(amount),
		AvailableToClaim: new(big.Int),
		Status:           status,
		Priority:         priority,
	}
}

func TestParseTable(t *testing.T) {
	tbl, err := ParseTable([]byte(`
version: "v2"
decimals: 6
amounts: ["10", "2.5", "1000"]
`))
	require.NoError(t, err)
	assert.Equal(t, "v2", tbl.Version())

	got := tbl.Amounts()
	require.Len(t, got, 3)
	assert.Equal(t, "10000000", got[0].String())
	assert.Equal(t, "2500000", got[1].String())
	assert.Equal(t, "1000000000", got[2].String())

	// Amounts returns copies
	got[0].SetInt64(1)
	assert.Equal(t, "10000000", tbl.Amounts()[0].String())
}

func TestParseTable_DefaultDecimals(t *testing.T) {
	tbl, err := ParseTable([]byte("version: v1\namounts: [\"1\"]\n"))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", tbl.Amounts()[0].String())
}

func TestParseTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing version", `amounts: ["1"]`},
		{"no amounts", `version: v1`},
		{"zero amount", "version: v1\namounts: [\"0\"]"},
		{"too many decimals", "version: v1\ndecimals: 2\namounts: [\"1.001\"]"},
		{"not a number", "version: v1\namounts: [\"lots\"]"},
		{"not yaml", "version: [v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "amounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: file\ndecimals: 0\namounts: [\"5\", \"7\"]\n"), 0o600))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	amount := big.NewInt(100)
	d := claimCall()

	tests := []struct {
		name         string
		res          chain.Result
		balance      *big.Int
		wantStatus   domain.AllocationStatus
		wantPriority int
		wantKept     bool
		wantError    bool
	}{
		{"available", chain.Success(d, big.NewInt(40)), nil, domain.AllocationAvailable, PriorityAvailable, true, false},
		{"zero available, balance covers amount", chain.Success(d, big.NewInt(0)), big.NewInt(100), domain.AllocationClaimed, PriorityClaimedByBalance, true, false},
		{"zero available, balance short", chain.Success(d, big.NewInt(0)), big.NewInt(99), domain.AllocationLocked, PriorityLocked, true, false},
		{"not configured", chain.Failure(d, customRevert(t, contracts.ErrAllocationNotConfigured)), nil, domain.AllocationNotFound, PriorityDropped, false, true},
		{"time locked", chain.Failure(d, customRevert(t, contracts.ErrAllocationLocked, big.NewInt(1700000000))), nil, domain.AllocationLocked, PriorityLocked, true, false},
		{"user max", chain.Failure(d, customRevert(t, contracts.ErrUserMaxReached)), nil, domain.AllocationClaimed, PriorityClaimed, true, false},
		{"total max", chain.Failure(d, customRevert(t, contracts.ErrTotalMaxReached)), nil, domain.AllocationClaimed, PriorityClaimed, true, false},
		{"arithmetic panic", chain.Failure(d, panicRevert(0x11)), nil, domain.AllocationNotFound, PriorityDropped, false, true},
		{"other panic", chain.Failure(d, panicRevert(0x12)), nil, domain.AllocationLocked, PriorityLocked, true, true},
		{"unknown failure", chain.Failure(d, errors.New("header not found")), nil, domain.AllocationLocked, PriorityLocked, true, true},
		{"message only: user max", chain.Failure(d, errors.New("execution reverted: UserMaxReached()")), nil, domain.AllocationClaimed, PriorityClaimed, true, false},
		{"message only: overflow", chain.Failure(d, errors.New("execution reverted: arithmetic underflow or overflow")), nil, domain.AllocationNotFound, PriorityDropped, false, true},
		{"message only: panic code", chain.Failure(d, &chain.CallError{Code: 3, Message: "execution reverted: panic code 0x11"}), nil, domain.AllocationNotFound, PriorityDropped, false, true},
		{"message only: not configured", chain.Failure(d, &chain.CallError{Code: 3, Message: "execution reverted: AllocationNotConfigured()"}), nil, domain.AllocationNotFound, PriorityDropped, false, true},
		{"message only: time locked", chain.Failure(d, &chain.CallError{Code: 3, Message: "execution reverted: AllocationLocked(1700000000)"}), nil, domain.AllocationLocked, PriorityLocked, true, false},
		{"error reason: already claimed", chain.Failure(d, errorReason(t, "already claimed")), nil, domain.AllocationClaimed, PriorityClaimed, true, false},
		{"node error: gas overflow", chain.Failure(d, &chain.CallError{Code: -32000, Message: "gas uint64 overflow"}), nil, domain.AllocationLocked, PriorityLocked, true, true},
		{"node error: response overflow", chain.Failure(d, &chain.CallError{Code: -32000, Message: "response body overflow"}), nil, domain.AllocationLocked, PriorityLocked, true, true},
		{"node error: rate limited", chain.Failure(d, &chain.CallError{Code: -32000, Message: "request blocked by rate limiter"}), nil, domain.AllocationLocked, PriorityLocked, true, true},
		{"revert reason: unlocked", chain.Failure(d, &chain.CallError{Code: 3, Message: "execution reverted: not unlocked yet"}), nil, domain.AllocationLocked, PriorityLocked, true, true},
		{"revert reason: overflow word", chain.Failure(d, &chain.CallError{Code: 3, Message: "execution reverted: buffer overflow"}), nil, domain.AllocationLocked, PriorityLocked, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, kept := Classify(amount, tt.res, tt.balance)
			assert.Equal(t, tt.wantKept, kept)
			assert.Equal(t, tt.wantStatus, c.Status)
			assert.Equal(t, tt.wantPriority, c.Priority)
			assert.Equal(t, tt.wantError, c.Error != "", "error: %q", c.Error)
			assert.Equal(t, "100", c.Amount.String())
		})
	}
}

func TestRank(t *testing.T) {
	t.Run("priority wins over amount", func(t *testing.T) {
		best := Rank([]domain.AllocationCandidate{
			cand(10, domain.AllocationLocked, PriorityLocked),
			cand(20, domain.AllocationAvailable, PriorityAvailable),
			cand(5, domain.AllocationClaimed, PriorityClaimedByBalance),
		})
		require.NotNil(t, best)
		assert.Equal(t, "20", best.Amount.String())
		assert.Equal(t, domain.AllocationAvailable, best.Status)
	})

	t.Run("larger amount breaks priority tie", func(t *testing.T) {
		best := Rank([]domain.AllocationCandidate{
			cand(10, domain.AllocationAvailable, PriorityAvailable),
			cand(20, domain.AllocationAvailable, PriorityAvailable),
		})
		require.NotNil(t, best)
		assert.Equal(t, "20", best.Amount.String())
	})

	t.Run("exact tie keeps enumeration order", func(t *testing.T) {
		first := cand(10, domain.AllocationLocked, PriorityLocked)
		first.Error = "first"
		second := cand(10, domain.AllocationLocked, PriorityLocked)
		second.Error = "second"

		best := Rank([]domain.AllocationCandidate{first, second})
		require.NotNil(t, best)
		assert.Equal(t, "first", best.Error)
	})

	t.Run("dropped candidates never win", func(t *testing.T) {
		best := Rank([]domain.AllocationCandidate{
			cand(50, domain.AllocationNotFound, PriorityDropped),
			cand(10, domain.AllocationClaimed, PriorityClaimed),
		})
		require.NotNil(t, best)
		assert.Equal(t, "10", best.Amount.String())
	})

	t.Run("nothing survived", func(t *testing.T) {
		assert.Nil(t, Rank([]domain.AllocationCandidate{cand(50, domain.AllocationNotFound, PriorityDropped)}))
		assert.Nil(t, Rank(nil))
	})
}

func newTestResolver(t *testing.T, exec *stub.Executor, amounts ...int64) *Resolver {
	t.Helper()
	bigs := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		bigs[i] = big.NewInt(a)
	}
	tbl, err := NewTable("test", bigs)
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	r, err := New(Options{Executor: exec, Heads: exec, Table: tbl, ChainID: 8453, Logger: log})
	require.NoError(t, err)
	return r
}

func TestResolver_Resolve(t *testing.T) {
	notConfigured := customRevert(t, contracts.ErrAllocationNotConfigured)
	exec := stub.NewExecutor().
		On(treasury, contracts.MethodAmountAvailableToClaim, func(args []interface{}) (interface{}, error) {
			switch args[2].(*big.Int).Int64() {
			case 10:
				return big.NewInt(0), nil
			case 20:
				return big.NewInt(20), nil
			default:
				return nil, notConfigured
			}
		}).
		Set(token, contracts.MethodBalanceOf, big.NewInt(3))
	exec.Head = chain.Head{Number: 77, Timestamp: 1_700_000_000}

	res, err := newTestResolver(t, exec, 10, 20, 30).Resolve(context.Background(), treasury, token, claimant)
	require.NoError(t, err)

	require.NotNil(t, res.Selected)
	assert.Equal(t, "20", res.Selected.Amount.String())
	assert.Equal(t, domain.AllocationAvailable, res.Selected.Status)

	require.Len(t, res.Candidates, 3)
	assert.Equal(t, domain.AllocationLocked, res.Candidates[0].Status)
	assert.Equal(t, domain.AllocationNotFound, res.Candidates[2].Status)
	assert.Equal(t, uint64(77), res.BlockNumber)
	assert.Equal(t, uint64(8453), res.ChainID)
	assert.Equal(t, "test", res.TableVersion)

	// One round trip: three claim reads and the balance read.
	batches := exec.Batches()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 4)
}

func TestResolver_NoMatch(t *testing.T) {
	exec := stub.NewExecutor().
		Fail(treasury, contracts.MethodAmountAvailableToClaim, customRevert(t, contracts.ErrAllocationNotConfigured)).
		Set(token, contracts.MethodBalanceOf, big.NewInt(0))

	res, err := newTestResolver(t, exec, 10, 20).Resolve(context.Background(), treasury, token, claimant)
	require.NoError(t, err)
	assert.Nil(t, res.Selected)
	assert.Len(t, res.Candidates, 2)
}

func TestResolver_BalanceDisambiguation(t *testing.T) {
	// Zero available everywhere; the balance covers only the smaller amount.
	exec := stub.NewExecutor().
		Set(treasury, contracts.MethodAmountAvailableToClaim, big.NewInt(0)).
		Set(token, contracts.MethodBalanceOf, big.NewInt(15))

	res, err := newTestResolver(t, exec, 10, 20).Resolve(context.Background(), treasury, token, claimant)
	require.NoError(t, err)

	assert.Equal(t, domain.AllocationClaimed, res.Candidates[0].Status)
	assert.Equal(t, domain.AllocationLocked, res.Candidates[1].Status)
	require.NotNil(t, res.Selected)
	assert.Equal(t, "20", res.Selected.Amount.String())
}

func TestResolver_BalanceFailureCountsAsZero(t *testing.T) {
	exec := stub.NewExecutor().
		Set(treasury, contracts.MethodAmountAvailableToClaim, big.NewInt(0)).
		Fail(token, contracts.MethodBalanceOf, errors.New("execution reverted"))

	res, err := newTestResolver(t, exec, 10).Resolve(context.Background(), treasury, token, claimant)
	require.NoError(t, err)
	require.NotNil(t, res.Selected)
	assert.Equal(t, domain.AllocationLocked, res.Selected.Status)
}

func TestResolver_BatchFailure(t *testing.T) {
	exec := stub.NewExecutor()
	exec.BatchErr = errors.New("connection reset")

	res, err := newTestResolver(t, exec, 10).Resolve(context.Background(), treasury, token, claimant)
	assert.Nil(t, res)

	var batchErr *chain.BatchError
	assert.ErrorAs(t, err, &batchErr)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Executor: stub.NewExecutor()})
	assert.ErrorIs(t, err, ErrMissingTable)

	_, err = New(Options{})
	assert.Error(t, err)
}

// headOrder records how many batches had run when the head was read.
type headOrder struct {
	*stub.Executor
	batchesAtHead int
}

func (h *headOrder) LatestHead(ctx context.Context) (*chain.Head, error) {
	h.batchesAtHead = len(h.Executor.Batches())
	return h.Executor.LatestHead(ctx)
}

func TestResolver_HeadReadBeforeBatch(t *testing.T) {
	exec := stub.NewExecutor().
		Set(treasury, contracts.MethodAmountAvailableToClaim, big.NewInt(1)).
		Set(token, contracts.MethodBalanceOf, big.NewInt(0))
	exec.Head = chain.Head{Number: 90}
	heads := &headOrder{Executor: exec, batchesAtHead: -1}

	tbl, err := NewTable("test", []*big.Int{big.NewInt(10)})
	require.NoError(t, err)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	r, err := New(Options{Executor: exec, Heads: heads, Table: tbl, ChainID: 8453, Logger: log})
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), treasury, token, claimant)
	require.NoError(t, err)
	assert.Equal(t, 0, heads.batchesAtHead, "head must be read before the allocation batch")
	assert.Equal(t, uint64(90), res.BlockNumber)
	assert.Len(t, exec.Batches(), 1)
}

func TestResolver_HeadUnavailable(t *testing.T) {
	exec := stub.NewExecutor().
		Set(treasury, contracts.MethodAmountAvailableToClaim, big.NewInt(1)).
		Set(token, contracts.MethodBalanceOf, big.NewInt(0))
	exec.HeadErr = errors.New("head unavailable")

	res, err := newTestResolver(t, exec, 10).Resolve(context.Background(), treasury, token, claimant)
	require.NoError(t, err)
	assert.Zero(t, res.BlockNumber)
	require.NotNil(t, res.Selected)
	assert.Equal(t, domain.AllocationAvailable, res.Selected.Status)
}

func TestResolver_ID(t *testing.T) {
	exec := stub.NewExecutor().
		Set(treasury, contracts.MethodAmountAvailableToClaim, big.NewInt(1)).
		Set(token, contracts.MethodBalanceOf, big.NewInt(0))
	exec.Head = chain.Head{Number: 42}
	r := newTestResolver(t, exec, 10)

	a, err := r.Resolve(context.Background(), treasury, token, claimant)
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), treasury, token, claimant)
	require.NoError(t, err)

	assert.Len(t, a.ID, 64)
	assert.Equal(t, a.ID, b.ID, "same block, same id")
}
