package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Multicall3Address is the canonical Multicall3 deployment, shared by most EVM chains.
var Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicall3ABI = `[{"inputs":[{"components":[{"internalType":"address","name":"target","type":"address"},{"internalType":"bool","name":"allowFailure","type":"bool"},{"internalType":"bytes","name":"callData","type":"bytes"}],"internalType":"struct Multicall3.Call3[]","name":"calls","type":"tuple[]"}],"name":"aggregate3","outputs":[{"components":[{"internalType":"bool","name":"success","type":"bool"},{"internalType":"bytes","name":"returnData","type":"bytes"}],"internalType":"struct Multicall3.Result[]","name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}]`

var multicallABI = mustParseABI(multicall3ABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

type multicallCall struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type multicallResult struct {
	Success    bool
	ReturnData []byte
}

// ContractCaller performs a single eth_call.
type ContractCaller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// CallContract performs a single eth_call at the client's block tag.
func (c *HTTPClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var result hexutil.Bytes
	err := c.call(ctx, "eth_call", []interface{}{callArgs{To: to, Data: data}, c.blockTag}, &result)
	if err != nil {
		if rpcErr, ok := err.(*rpcError); ok {
			return nil, rpcErr.callError()
		}
		return nil, err
	}
	return result, nil
}

// MulticallExecutor implements BatchExecutor with Multicall3.aggregate3.
// Every sub-call is sent with allowFailure=true, so a reverting read only
// fails its own result. A chunk maps to exactly one eth_call.
type MulticallExecutor struct {
	caller       ContractCaller
	address      common.Address
	maxBatchSize int
}

// NewMulticallExecutor creates an executor using the Multicall3 contract at address.
// A zero address selects the canonical deployment.
func NewMulticallExecutor(caller ContractCaller, address common.Address, maxBatchSize int) *MulticallExecutor {
	if address == (common.Address{}) {
		address = Multicall3Address
	}
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &MulticallExecutor{caller: caller, address: address, maxBatchSize: maxBatchSize}
}

// Execute implements BatchExecutor.
func (m *MulticallExecutor) Execute(ctx context.Context, calls []ReadDescriptor) ([]Result, error) {
	results := make([]Result, 0, len(calls))

	for start := 0; start < len(calls); start += m.maxBatchSize {
		end := start + m.maxBatchSize
		if end > len(calls) {
			end = len(calls)
		}
		chunk := calls[start:end]

		packed := make([]multicallCall, 0, len(chunk))
		packErrs := make(map[int]error)
		for i, d := range chunk {
			data, err := d.Calldata()
			if err != nil {
				packErrs[i] = err
				continue
			}
			packed = append(packed, multicallCall{Target: d.Target, AllowFailure: true, CallData: data})
		}

		var returned []multicallResult
		if len(packed) > 0 {
			input, err := multicallABI.Pack("aggregate3", packed)
			if err != nil {
				return nil, &BatchError{Size: len(calls), Err: fmt.Errorf("pack aggregate3: %w", err)}
			}
			output, err := m.caller.CallContract(ctx, m.address, input)
			if err != nil {
				return nil, &BatchError{Size: len(calls), Err: err}
			}
			out, err := multicallABI.Unpack("aggregate3", output)
			if err != nil {
				return nil, &BatchError{Size: len(calls), Err: fmt.Errorf("unpack aggregate3: %w", err)}
			}
			returned = *abi.ConvertType(out[0], new([]multicallResult)).(*[]multicallResult)
			if len(returned) != len(packed) {
				return nil, &BatchError{
					Size: len(calls),
					Err:  fmt.Errorf("aggregate3 returned %d results for %d calls", len(returned), len(packed)),
				}
			}
		}

		next := 0
		for i, d := range chunk {
			if err, ok := packErrs[i]; ok {
				results = append(results, Failure(d, err))
				continue
			}
			r := returned[next]
			next++
			results = append(results, decodeMulticallResult(d, r))
		}
	}

	return results, nil
}

func decodeMulticallResult(d ReadDescriptor, r multicallResult) Result {
	if !r.Success {
		return Failure(d, &CallError{Message: "execution reverted", Data: r.ReturnData})
	}
	if len(r.ReturnData) == 0 && len(d.Method.Outputs) > 0 {
		return Failure(d, &CallError{Message: "empty return data"})
	}
	value, err := d.Decode(r.ReturnData)
	if err != nil {
		return Failure(d, err)
	}
	return Success(d, value)
}

var (
	_ BatchExecutor  = (*MulticallExecutor)(nil)
	_ ContractCaller = (*HTTPClient)(nil)
)
