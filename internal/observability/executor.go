package observability

import (
	"context"
	"time"

	"stakelens/internal/chain"
)

// InstrumentedExecutor records batch metrics around another executor.
type InstrumentedExecutor struct {
	next chain.BatchExecutor
}

// Compile-time interface check.
var _ chain.BatchExecutor = (*InstrumentedExecutor)(nil)

// Instrument wraps next.
func Instrument(next chain.BatchExecutor) *InstrumentedExecutor {
	return &InstrumentedExecutor{next: next}
}

// Execute implements chain.BatchExecutor.
func (e *InstrumentedExecutor) Execute(ctx context.Context, descs []chain.ReadDescriptor) ([]chain.Result, error) {
	start := time.Now()
	results, err := e.next.Execute(ctx, descs)
	RecordBatch(len(descs), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if !r.OK() {
			RecordCallFailure(r.Method)
		}
	}
	return results, nil
}
