package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakelens/internal/chain"
	"stakelens/internal/chain/stub"
	"stakelens/internal/contracts"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.BatchesTotal.WithLabelValues("success").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("success")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestInstrumentedExecutor(t *testing.T) {
	token := common.HexToAddress("0x01")
	exec := stub.NewExecutor().
		Set(token, contracts.MethodName, "Lens").
		Fail(token, contracts.MethodSymbol, errors.New("reverted"))

	before := testutil.ToFloat64(DefaultMetrics.CallFailures.WithLabelValues(contracts.MethodSymbol))
	batchesBefore := testutil.ToFloat64(DefaultMetrics.BatchesTotal.WithLabelValues("success"))

	results, err := Instrument(exec).Execute(context.Background(), []chain.ReadDescriptor{
		contracts.Token.Call(token, contracts.MethodName),
		contracts.Token.Call(token, contracts.MethodSymbol),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())

	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.CallFailures.WithLabelValues(contracts.MethodSymbol)))
	assert.Equal(t, batchesBefore+1, testutil.ToFloat64(DefaultMetrics.BatchesTotal.WithLabelValues("success")))
}

func TestInstrumentedExecutor_BatchError(t *testing.T) {
	exec := stub.NewExecutor()
	exec.BatchErr = errors.New("connection refused")

	before := testutil.ToFloat64(DefaultMetrics.BatchesTotal.WithLabelValues("error"))
	_, err := Instrument(exec).Execute(context.Background(), []chain.ReadDescriptor{
		contracts.Token.Call(common.HexToAddress("0x01"), contracts.MethodName),
	})

	var batchErr *chain.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.BatchesTotal.WithLabelValues("error")))
}
