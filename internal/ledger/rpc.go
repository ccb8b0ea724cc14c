package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the read side of the ledger network: it reports whether a
// broadcast transfer has settled. Broadcasting itself goes through the
// wallet-signing capability, never through this client.
type Client interface {
	Confirm(ctx context.Context, txHash string) (bool, error)
	LatestHeight(ctx context.Context) (int64, error)
}

// RPCClient queries a Solana-compatible JSON-RPC endpoint.
type RPCClient struct {
	baseURL string
	client  *http.Client
}

func NewRPCClient(baseURL string) *RPCClient {
	return &RPCClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// finalized commitment levels. "confirmed" is enough for the checkout
// flow; reconciliation re-checks before promoting an order.
var settledStatuses = map[string]bool{
	"confirmed": true,
	"finalized": true,
}

// Confirm reports whether the transaction has reached a settled
// commitment level. An unknown signature is simply not settled yet.
func (c *RPCClient) Confirm(ctx context.Context, txHash string) (bool, error) {
	params := []any{
		[]string{txHash},
		map[string]bool{"searchTransactionHistory": true},
	}

	var result signatureStatusResult
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return false, err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return false, nil
	}

	status := result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction %s failed on ledger", txHash)
	}
	return settledStatuses[status.ConfirmationStatus], nil
}

func (c *RPCClient) LatestHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := c.call(ctx, "getBlockHeight", []any{}, &height); err != nil {
		return 0, err
	}
	return height, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type signatureStatusResult struct {
	Value []*signatureStatus `json:"value"`
}

type signatureStatus struct {
	Slot               int64  `json:"slot"`
	Confirmations      *int64 `json:"confirmations"`
	ConfirmationStatus string `json:"confirmationStatus"`
	Err                any    `json:"err"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("rpc http status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("rpc http status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return err
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return json.Unmarshal(rpcResp.Result, out)
}
