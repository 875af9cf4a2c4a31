package nearrpc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Response is a parsed JSON-RPC response envelope. The raw body is retained
// so that cached responses round-trip byte-identically.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *ResponseError  `json:"error"`

	raw json.RawMessage
}

// ResponseError is the error object NEAR nodes return inside a 2xx envelope.
type ResponseError struct {
	Name  string          `json:"name"`
	Cause ErrorCause      `json:"cause"`
	Data  json.RawMessage `json:"data"`
}

// ErrorCause classifies the failure. Known names include UNKNOWN_ACCOUNT,
// UNKNOWN_BLOCK and GARBAGE_COLLECTED_BLOCK.
type ErrorCause struct {
	Name string         `json:"name"`
	Info map[string]any `json:"info"`
}

func parseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed rpc response: %w", err)
	}
	resp.raw = append(json.RawMessage(nil), body...)
	return &resp, nil
}

// Raw returns the full response body as received from the node (or the cache).
func (r *Response) Raw() json.RawMessage {
	return r.raw
}

// BlockHeader is the subset of a block result the service needs.
type BlockHeader struct {
	Height uint64 `json:"height"`
	// Timestamp is in nanoseconds since epoch.
	Timestamp int64 `json:"timestamp"`
}

// Block decodes a `block` method result.
func (r *Response) Block() (BlockHeader, error) {
	var out struct {
		Header BlockHeader `json:"header"`
	}
	if r.Result == nil {
		return BlockHeader{}, fmt.Errorf("block response missing result")
	}
	if err := json.Unmarshal(r.Result, &out); err != nil {
		return BlockHeader{}, fmt.Errorf("failed to decode block header: %w", err)
	}
	return out.Header, nil
}

// TimestampMillis converts the header's nanosecond timestamp to epoch millis.
func (h BlockHeader) TimestampMillis() int64 {
	return h.Timestamp / 1e6
}

// AccountView decodes a `view_account` query result.
type AccountView struct {
	Amount string `json:"amount"`
	Locked string `json:"locked"`
}

// Account decodes an account-state query result.
func (r *Response) Account() (AccountView, error) {
	var out AccountView
	if r.Result == nil {
		return out, fmt.Errorf("view_account response missing result")
	}
	if err := json.Unmarshal(r.Result, &out); err != nil {
		return out, fmt.Errorf("failed to decode account view: %w", err)
	}
	return out, nil
}

// CallResult decodes a `call_function` query result into the raw bytes the
// contract returned (the node encodes them as an array of byte values).
func (r *Response) CallResult() ([]byte, error) {
	var out struct {
		Result []int `json:"result"`
	}
	if r.Result == nil {
		return nil, fmt.Errorf("call_function response missing result")
	}
	if err := json.Unmarshal(r.Result, &out); err != nil {
		return nil, fmt.Errorf("failed to decode call result: %w", err)
	}
	buf := make([]byte, len(out.Result))
	for i, b := range out.Result {
		buf[i] = byte(b)
	}
	return buf, nil
}

// CallResultString decodes the contract return value as a JSON string,
// stripping surrounding quotes. Fungible token balances come back this way.
func (r *Response) CallResultString() (string, error) {
	raw, err := r.CallResult()
	if err != nil {
		return "", err
	}
	return strings.Trim(string(raw), `"`), nil
}
