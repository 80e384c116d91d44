package chain

import (
	"errors"
	"fmt"
)

// ErrClientClosed is returned by subscriptions after Close.
var ErrClientClosed = errors.New("client closed")

// CallError is a per-call failure. Data holds raw revert bytes when the node
// returned them.
type CallError struct {
	Code    int
	Message string
	Data    []byte
}

func (e *CallError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("call error %d: %s", e.Code, e.Message)
	}
	return "call error: " + e.Message
}

// BatchError is a whole-batch (transport level) failure. No result of the
// batch is usable when it is returned.
type BatchError struct {
	Size int
	Err  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch of %d calls failed: %v", e.Size, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
