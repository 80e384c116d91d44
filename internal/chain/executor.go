package chain

import "context"

// BatchExecutor submits descriptors in one logical round trip.
//
// Implementations must return exactly len(calls) results in the same order,
// without coalescing duplicates. A non-nil error means the whole batch failed
// and the results must be ignored.
type BatchExecutor interface {
	Execute(ctx context.Context, calls []ReadDescriptor) ([]Result, error)
}

// HeadReader provides the latest chain head.
type HeadReader interface {
	LatestHead(ctx context.Context) (*Head, error)
}

// ExecutorFunc adapts a function to BatchExecutor.
type ExecutorFunc func(ctx context.Context, calls []ReadDescriptor) ([]Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, calls []ReadDescriptor) ([]Result, error) {
	return f(ctx, calls)
}
