package stub

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/chain"
)

// ErrNoHandler is the failure returned for calls nothing was registered for.
var ErrNoHandler = errors.New("execution reverted: no stub handler")

// Handler answers one call. Returning a non-nil error marks it failed.
type Handler func(args []interface{}) (interface{}, error)

type callKey struct {
	target common.Address
	method string
}

// Executor implements chain.BatchExecutor and chain.HeadReader for testing.
// Handlers are keyed by (target, method); the zero address acts as a
// wildcard target.
type Executor struct {
	mu       sync.Mutex
	handlers map[callKey]Handler

	// BatchErr, when set, fails every Execute call as a whole.
	BatchErr error
	// Head is returned by LatestHead.
	Head chain.Head
	// HeadErr, when set, is returned by LatestHead.
	HeadErr error

	batches [][]chain.ReadDescriptor
}

// NewExecutor creates an empty stub executor.
func NewExecutor() *Executor {
	return &Executor{handlers: make(map[callKey]Handler)}
}

// On registers a handler for method on target.
func (e *Executor) On(target common.Address, method string, h Handler) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[callKey{target: target, method: method}] = h
	return e
}

// Set registers a constant successful value.
func (e *Executor) Set(target common.Address, method string, value interface{}) *Executor {
	return e.On(target, method, func([]interface{}) (interface{}, error) { return value, nil })
}

// Fail registers a constant failure.
func (e *Executor) Fail(target common.Address, method string, err error) *Executor {
	return e.On(target, method, func([]interface{}) (interface{}, error) { return nil, err })
}

// Execute implements chain.BatchExecutor.
func (e *Executor) Execute(_ context.Context, calls []chain.ReadDescriptor) ([]chain.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	recorded := make([]chain.ReadDescriptor, len(calls))
	copy(recorded, calls)
	e.batches = append(e.batches, recorded)

	if e.BatchErr != nil {
		return nil, &chain.BatchError{Size: len(calls), Err: e.BatchErr}
	}

	results := make([]chain.Result, len(calls))
	for i, d := range calls {
		h, ok := e.handlers[callKey{target: d.Target, method: d.Name()}]
		if !ok {
			h, ok = e.handlers[callKey{method: d.Name()}]
		}
		if !ok {
			results[i] = chain.Failure(d, ErrNoHandler)
			continue
		}
		value, err := h(d.Args)
		if err != nil {
			results[i] = chain.Failure(d, err)
			continue
		}
		results[i] = chain.Success(d, value)
	}
	return results, nil
}

// LatestHead implements chain.HeadReader.
func (e *Executor) LatestHead(_ context.Context) (*chain.Head, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.HeadErr != nil {
		return nil, e.HeadErr
	}
	head := e.Head
	return &head, nil
}

// Batches returns the descriptor lists of every Execute call so far.
func (e *Executor) Batches() [][]chain.ReadDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]chain.ReadDescriptor, len(e.batches))
	copy(out, e.batches)
	return out
}

var (
	_ chain.BatchExecutor = (*Executor)(nil)
	_ chain.HeadReader    = (*Executor)(nil)
)
