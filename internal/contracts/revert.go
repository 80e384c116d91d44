package contracts

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Solidity panic codes (see Panic(uint256)).
const (
	PanicAssert           = 0x01
	PanicArithmetic       = 0x11
	PanicDivisionByZero   = 0x12
	PanicArrayOutOfBounds = 0x32
)

var (
	errorStringSelector = []byte{0x08, 0xc3, 0x79, 0xa0} // Error(string)
	panicSelector       = []byte{0x4e, 0x48, 0x7b, 0x71} // Panic(uint256)
)

// Revert is decoded revert data.
type Revert struct {
	// Name is the error name: "Error", "Panic" or a custom error.
	Name string
	// Reason is set for Error(string).
	Reason string
	// PanicCode is set for Panic(uint256).
	PanicCode uint64
	// Args holds decoded custom error arguments.
	Args []interface{}
}

// IsPanic reports whether r is a Solidity panic with the given code.
func (r *Revert) IsPanic(code uint64) bool {
	return r != nil && r.Name == "Panic" && r.PanicCode == code
}

// DecodeRevert decodes revert bytes against Error(string), Panic(uint256)
// and the custom errors of every known contract. ok is false for empty or
// unrecognized data.
func DecodeRevert(data []byte) (*Revert, bool) {
	if len(data) < 4 {
		return nil, false
	}
	selector := data[:4]

	switch {
	case bytes.Equal(selector, errorStringSelector):
		reason, err := abi.UnpackRevert(data)
		if err != nil {
			return nil, false
		}
		return &Revert{Name: "Error", Reason: reason}, true

	case bytes.Equal(selector, panicSelector):
		if len(data) < 4+32 {
			return nil, false
		}
		code := new(big.Int).SetBytes(data[4 : 4+32])
		if !code.IsUint64() {
			return nil, false
		}
		return &Revert{Name: "Panic", PanicCode: code.Uint64()}, true
	}

	for _, c := range []Contract{Treasury, Token, Factory, Governor, StakingPool, FeeSplitter} {
		for name, e := range c.ABI.Errors {
			if !bytes.Equal(e.ID[:4], selector) {
				continue
			}
			rev := &Revert{Name: name}
			if len(e.Inputs) > 0 {
				args, err := e.Inputs.Unpack(data[4:])
				if err != nil {
					return nil, false
				}
				rev.Args = args
			}
			return rev, true
		}
	}
	return nil, false
}
