package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultBackoffMult  = 2.0
	DefaultMaxBatchSize = 100
)

// HTTPClient is a JSON-RPC 2.0 client for EVM nodes. It implements
// BatchExecutor by sending eth_call requests as JSON-RPC batches.
type HTTPClient struct {
	endpoint     string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	maxBatchSize int
	blockTag     string
	requestID    atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithMaxBatchSize caps the number of requests per JSON-RPC batch.
// Larger call lists are split into consecutive chunks.
func WithMaxBatchSize(n int) ClientOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxBatchSize = n
		}
	}
}

// WithBlockTag sets the block tag used for eth_call (default "latest").
func WithBlockTag(tag string) ClientOption {
	return func(c *HTTPClient) {
		c.blockTag = tag
	}
}

// NewHTTPClient creates a new JSON-RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
		maxBatchSize: DefaultMaxBatchSize,
		blockTag:     "latest",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// callError converts a JSON-RPC error into a CallError, extracting revert
// bytes when data is a hex string.
func (e *rpcError) callError() *CallError {
	ce := &CallError{Code: e.Code, Message: e.Message}
	if len(e.Data) == 0 {
		return ce
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil && strings.HasPrefix(s, "0x") {
		if b, err := hexutil.Decode(s); err == nil {
			ce.Data = b
		}
	}
	return ce
}

// post sends body with retries and exponential backoff, returning the raw
// response body of the first 200 reply.
func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// call performs a single JSON-RPC call.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		return err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		// RPC errors are not retried
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// callBatch sends reqs as one JSON-RPC batch and returns responses in
// request order. Servers may answer a batch in any order; responses are
// matched back by ID.
func (c *HTTPClient) callBatch(ctx context.Context, reqs []rpcRequest) ([]rpcResponse, error) {
	body, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var resps []rpcResponse
	if err := json.Unmarshal(respBody, &resps); err != nil {
		// Some nodes reply to a rejected batch with a single error object.
		var single rpcResponse
		if err2 := json.Unmarshal(respBody, &single); err2 == nil && single.Error != nil {
			return nil, single.Error
		}
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}

	byID := make(map[uint64]rpcResponse, len(resps))
	for _, r := range resps {
		byID[r.ID] = r
	}

	ordered := make([]rpcResponse, len(reqs))
	for i, req := range reqs {
		r, ok := byID[req.ID]
		if !ok {
			return nil, fmt.Errorf("missing response for request id %d", req.ID)
		}
		ordered[i] = r
	}
	return ordered, nil
}

// callArgs is the transaction object of an eth_call.
type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Execute runs calls as eth_call requests in JSON-RPC batches of at most
// maxBatchSize. Per-call errors become failed results; a transport failure of
// any chunk fails the whole batch.
func (c *HTTPClient) Execute(ctx context.Context, calls []ReadDescriptor) ([]Result, error) {
	results := make([]Result, 0, len(calls))

	for start := 0; start < len(calls); start += c.maxBatchSize {
		end := start + c.maxBatchSize
		if end > len(calls) {
			end = len(calls)
		}
		chunk := calls[start:end]

		reqs := make([]rpcRequest, 0, len(chunk))
		packErrs := make(map[int]error)
		for i, d := range chunk {
			data, err := d.Calldata()
			if err != nil {
				packErrs[i] = err
				continue
			}
			reqs = append(reqs, rpcRequest{
				JSONRPC: "2.0",
				ID:      c.requestID.Add(1),
				Method:  "eth_call",
				Params:  []interface{}{callArgs{To: d.Target, Data: data}, c.blockTag},
			})
		}

		var resps []rpcResponse
		if len(reqs) > 0 {
			var err error
			resps, err = c.callBatch(ctx, reqs)
			if err != nil {
				return nil, &BatchError{Size: len(calls), Err: err}
			}
		}

		next := 0
		for i, d := range chunk {
			if err, ok := packErrs[i]; ok {
				results = append(results, Failure(d, err))
				continue
			}
			resp := resps[next]
			next++
			results = append(results, decodeCallResponse(d, resp))
		}
	}

	return results, nil
}

func decodeCallResponse(d ReadDescriptor, resp rpcResponse) Result {
	if resp.Error != nil {
		return Failure(d, resp.Error.callError())
	}

	var raw hexutil.Bytes
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		return Failure(d, fmt.Errorf("unmarshal eth_call result: %w", err))
	}
	if len(raw) == 0 && len(d.Method.Outputs) > 0 {
		// No code at target or a call that returned nothing.
		return Failure(d, &CallError{Message: "empty return data"})
	}

	value, err := d.Decode(raw)
	if err != nil {
		return Failure(d, err)
	}
	return Success(d, value)
}

// ChainID returns the chain id reported by the node.
func (c *HTTPClient) ChainID(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_chainId", nil, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// LatestHead returns number and timestamp of the latest block.
func (c *HTTPClient) LatestHead(ctx context.Context) (*Head, error) {
	var result *getBlockResult
	if err := c.call(ctx, "eth_getBlockByNumber", []interface{}{"latest", false}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("latest block not available")
	}
	return result.head(), nil
}

// getBlockResult is the subset of an eth_getBlockByNumber response we use.
// newHeads notifications share the same shape.
type getBlockResult struct {
	Number    hexutil.Uint64 `json:"number"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
	Hash      common.Hash    `json:"hash"`
}

func (r *getBlockResult) head() *Head {
	return &Head{
		Number:    uint64(r.Number),
		Timestamp: uint64(r.Timestamp),
		Hash:      r.Hash,
	}
}

var (
	_ BatchExecutor = (*HTTPClient)(nil)
	_ HeadReader    = (*HTTPClient)(nil)
)
