package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const testTokenABI = `[
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"a","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

var (
	testABI   = mustParseABI(testTokenABI)
	testToken = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testOwner = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func descriptor(method string, args ...interface{}) ReadDescriptor {
	return ReadDescriptor{
		Target:   testToken,
		Contract: "token",
		Method:   testABI.Methods[method],
		Args:     args,
	}
}

func packOutput(t *testing.T, method string, v ...interface{}) []byte {
	t.Helper()
	out, err := testABI.Methods[method].Outputs.Pack(v...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return out
}

// methodOf returns the test ABI method whose selector prefixes data.
func methodOf(data []byte) (abi.Method, bool) {
	if len(data) < 4 {
		return abi.Method{}, false
	}
	m, err := testABI.MethodById(data[:4])
	if err != nil {
		return abi.Method{}, false
	}
	return *m, true
}

func bigEq(a *big.Int, b int64) bool {
	return a != nil && a.Cmp(big.NewInt(b)) == 0
}
