package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"solshop-be/internal/logger"

	"go.uber.org/zap"
)

// BridgeSigner talks to an external wallet bridge daemon over HTTP.
// The bridge holds the connection to the user's wallet; this client
// never sees key material and never retries a send.
type BridgeSigner struct {
	baseURL    string
	httpClient *http.Client
}

func NewBridgeSigner(baseURL string) *BridgeSigner {
	if baseURL == "" {
		logger.L().Warn("wallet bridge URL is empty")
	}

	return &BridgeSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client-side timeout: signing waits on user action and is
		// bounded by the caller's ctx instead.
		httpClient: &http.Client{},
	}
}

type statusResponse struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
}

func (b *BridgeSigner) IsConnected() bool {
	status, err := b.status()
	return err == nil && status.Connected
}

func (b *BridgeSigner) Identity() (string, error) {
	status, err := b.status()
	if err != nil {
		return "", err
	}
	if !status.Connected || status.Address == "" {
		return "", ErrNotConnected
	}
	return status.Address, nil
}

func (b *BridgeSigner) status() (*statusResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/wallet/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wallet bridge status %d", resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

type signAndSendRequest struct {
	Payer     string `json:"payer"`
	Payee     string `json:"payee"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference,omitempty"`
}

type signAndSendResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error,omitempty"`
}

// SignAndSend asks the bridge to sign and broadcast the transfer. The
// call blocks until the user approves or declines in the wallet UI, or
// until ctx is cancelled.
func (b *BridgeSigner) SignAndSend(ctx context.Context, transfer TransferRequest) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("payee", transfer.Payee),
		zap.String("amount", transfer.Amount.String()),
		zap.String("currency", transfer.Currency.String()),
	)

	body, err := json.Marshal(signAndSendRequest{
		Payer:     transfer.Payer,
		Payee:     transfer.Payee,
		Amount:    transfer.Amount.String(),
		Currency:  transfer.Currency.String(),
		Reference: transfer.Reference,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/wallet/sign-and-send", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	log.Info("requesting wallet signature")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		// ctx cancellation lands here; the bridge aborts the prompt and
		// nothing is broadcast.
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read wallet bridge response: %w", err)
	}

	var result signAndSendResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("wallet bridge returned invalid response: %s", string(respBody))
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		log.Info("wallet signed and broadcast", zap.String("tx_hash", result.TxHash))
		return result.TxHash, nil
	case http.StatusForbidden:
		return "", ErrRejected
	case http.StatusPaymentRequired:
		return "", ErrInsufficientFunds
	case http.StatusPreconditionFailed:
		return "", ErrNotConnected
	default:
		log.Error("wallet bridge error",
			zap.Int("status", resp.StatusCode),
			zap.String("response", result.Error),
		)
		return "", fmt.Errorf("wallet bridge error: %s", result.Error)
	}
}
