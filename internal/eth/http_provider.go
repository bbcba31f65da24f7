package eth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/metrics"
	"github.com/AIAleph/token_risk/internal/retry"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// httpProvider is a minimal JSON-RPC client for Ethereum endpoints.
// It intentionally leaves rate limiting to wrappers (RLProvider, etc.).
type httpProvider struct {
	endpoint    string
	providerLbl string
	hc          httpDoer
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
}

// NewHTTPProvider constructs a JSON-RPC provider using the given http.Client (or a default one if nil).
func NewHTTPProvider(endpoint string, client *http.Client) (Provider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpProvider{
		endpoint:    endpoint,
		providerLbl: deriveProviderLabel(endpoint),
		hc:          client,
		maxRetries:  2,
		backoffBase: 100 * time.Millisecond,
		backoffMax:  5 * time.Second,
	}, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int64       `json:"id"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcErrorBody   `json:"error"`
	ID      int64           `json:"id"`
}

func deriveProviderLabel(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	if u, err := url.Parse(endpoint); err == nil {
		u.User = nil
		if u.Host != "" {
			return u.Host
		}
		if u.Scheme == "" {
			return endpoint
		}
		return u.String()
	}
	return endpoint
}

// classifyCallErr retries network failures, 429 and 5xx. JSON-RPC errors and
// malformed payloads are final: repeating the same request returns the same answer.
func classifyCallErr(err error) retry.Class {
	var se *httpStatusError
	if errors.As(err, &se) {
		if se.code == http.StatusTooManyRequests || se.code >= 500 {
			return retry.Retryable
		}
		return retry.Fatal
	}
	var te *transportError
	if errors.As(err, &te) {
		return retry.Retryable
	}
	return retry.Fatal
}

func (p *httpProvider) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	policy := retry.Policy{
		MaxAttempts: p.maxRetries + 1,
		BaseDelay:   p.backoffBase,
		MaxDelay:    p.backoffMax,
		Classify:    classifyCallErr,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			logging.Logger().Debug("rpc_retry",
				"component", "eth.http_provider",
				"provider", p.providerLbl,
				"method", method,
				"attempt", attempt,
				"wait_ms", wait.Milliseconds(),
				"error", err.Error(),
			)
		},
	}
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		return p.roundTrip(ctx, method, reqBody, out)
	})
	metrics.ObserveRPC(method, KindOf(err).String())
	return err
}

func (p *httpProvider) roundTrip(ctx context.Context, method string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpStatusError{code: resp.StatusCode, body: string(b)}
	}
	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rr.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    rr.Error.Code,
			Message: rr.Error.Message,
			Kind:    classifyRPCError(rr.Error.Code, rr.Error.Message),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// hexToUint64 parses an Ethereum hex quantity (e.g., "0x2a") into uint64.
func hexToUint64(s string) (uint64, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "0x%x", &v); err != nil {
		return 0, fmt.Errorf("invalid hex quantity: %q", s)
	}
	return v, nil
}

func toHex(n uint64) string { return fmt.Sprintf("0x%x", n) }

func (p *httpProvider) BlockNumber(ctx context.Context) (uint64, error) {
	var res string
	if err := p.call(ctx, "eth_blockNumber", []interface{}{}, &res); err != nil {
		return 0, err
	}
	return hexToUint64(res)
}

type rpcLog struct {
	TxHash      string   `json:"transactionHash"`
	LogIndexHex string   `json:"logIndex"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockHex    string   `json:"blockNumber"`
	Removed     bool     `json:"removed"`
}

// GetLogs implements a minimal eth_getLogs call.
func (p *httpProvider) GetLogs(ctx context.Context, address string, from, to uint64, topics [][]string) ([]Log, error) {
	// Each topic position may be null, a string, or an array of strings.
	var topicsParam []interface{}
	for _, group := range topics {
		switch len(group) {
		case 0:
			topicsParam = append(topicsParam, nil)
		case 1:
			topicsParam = append(topicsParam, group[0])
		default:
			arr := make([]string, len(group))
			copy(arr, group)
			topicsParam = append(topicsParam, arr)
		}
	}
	filter := map[string]interface{}{
		"fromBlock": toHex(from),
		"toBlock":   toHex(to),
		"topics":    topicsParam,
	}
	if address != "" {
		filter["address"] = address
	}
	var raw []rpcLog
	if err := p.call(ctx, "eth_getLogs", []interface{}{filter}, &raw); err != nil {
		return nil, err
	}
	out := make([]Log, 0, len(raw))
	for _, l := range raw {
		idx, idxErr := hexToUint64(l.LogIndexHex)
		blk, _ := hexToUint64(l.BlockHex)
		out = append(out, Log{
			TxHash:   l.TxHash,
			Index:    uint32(idx),
			Address:  l.Address,
			Topics:   l.Topics,
			DataHex:  l.Data,
			BlockNum: blk,
			Removed:  l.Removed,
			NoIndex:  idxErr != nil,
		})
	}
	return out, nil
}

// CodeAt returns the runtime bytecode at address ("0x" for accounts without code).
func (p *httpProvider) CodeAt(ctx context.Context, address string) (string, error) {
	var code string
	if err := p.call(ctx, "eth_getCode", []interface{}{address, "latest"}, &code); err != nil {
		return "", err
	}
	return code, nil
}

// Call performs eth_call with the given calldata and returns the raw return data.
func (p *httpProvider) Call(ctx context.Context, to string, data []byte) ([]byte, error) {
	msg := map[string]interface{}{
		"to":   to,
		"data": hexutil.Encode(data),
	}
	var res string
	if err := p.call(ctx, "eth_call", []interface{}{msg, "latest"}, &res); err != nil {
		return nil, err
	}
	if res == "" || res == "0x" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(res)
	if err != nil {
		return nil, fmt.Errorf("eth_call result: %w", err)
	}
	return b, nil
}
