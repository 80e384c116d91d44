package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ReadDescriptor is one read-only contract call inside a batch.
type ReadDescriptor struct {
	Target   common.Address
	Contract string // contract label for diagnostics, e.g. "token", "staking"
	Method   abi.Method
	Args     []interface{}
}

// Name returns the method name the descriptor calls.
func (d ReadDescriptor) Name() string {
	return d.Method.RawName
}

// Calldata returns selector + ABI-encoded arguments.
func (d ReadDescriptor) Calldata() ([]byte, error) {
	packed, err := d.Method.Inputs.Pack(d.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", d.Contract, d.Name(), err)
	}
	data := make([]byte, 0, len(d.Method.ID)+len(packed))
	data = append(data, d.Method.ID...)
	return append(data, packed...), nil
}

// Decode unpacks return data. Single-output methods yield the bare value,
// multi-output methods yield []interface{} in declaration order.
func (d ReadDescriptor) Decode(data []byte) (interface{}, error) {
	values, err := d.Method.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s.%s: %w", d.Contract, d.Name(), err)
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}

func (d ReadDescriptor) String() string {
	return fmt.Sprintf("%s(%s).%s", d.Contract, d.Target.Hex(), d.Name())
}

// Status tags a Result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the tagged outcome of one ReadDescriptor. Method carries the
// identity of the call that produced it so consumers can verify position.
type Result struct {
	Method string
	Target common.Address
	Status Status
	Value  interface{}
	Err    error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Success builds a successful result for d.
func Success(d ReadDescriptor, value interface{}) Result {
	return Result{Method: d.Name(), Target: d.Target, Status: StatusSuccess, Value: value}
}

// Failure builds a failed result for d.
func Failure(d ReadDescriptor, err error) Result {
	return Result{Method: d.Name(), Target: d.Target, Status: StatusFailure, Err: err}
}

// Head is a chain head reference used as the timestamp source for
// time-dependent metrics.
type Head struct {
	Number    uint64
	Timestamp uint64 // unix seconds
	Hash      common.Hash
}
