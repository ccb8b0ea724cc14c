package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solshop-be/internal/currency"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transfer() TransferRequest {
	return TransferRequest{
		Payer:    "payer-address",
		Payee:    "merchant-address",
		Amount:   decimal.RequireFromString("1.5"),
		Currency: currency.SOL,
	}
}

func TestBridgeSigner_Status(t *testing.T) {
	t.Run("Connected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wallet/status", r.URL.Path)
			json.NewEncoder(w).Encode(statusResponse{Connected: true, Address: "addr-1"})
		}))
		defer server.Close()

		signer := NewBridgeSigner(server.URL)
		assert.True(t, signer.IsConnected())

		addr, err := signer.Identity()
		require.NoError(t, err)
		assert.Equal(t, "addr-1", addr)
	})

	t.Run("Disconnected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(statusResponse{Connected: false})
		}))
		defer server.Close()

		signer := NewBridgeSigner(server.URL)
		assert.False(t, signer.IsConnected())

		_, err := signer.Identity()
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("BridgeDown", func(t *testing.T) {
		signer := NewBridgeSigner("http://127.0.0.1:1")
		assert.False(t, signer.IsConnected())
	})
}

func TestBridgeSigner_SignAndSend(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wallet/sign-and-send", r.URL.Path)

			var req signAndSendRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "1.5", req.Amount)
			assert.Equal(t, "SOL", req.Currency)

			json.NewEncoder(w).Encode(signAndSendResponse{TxHash: "abc123"})
		}))
		defer server.Close()

		hash, err := NewBridgeSigner(server.URL).SignAndSend(context.Background(), transfer())
		require.NoError(t, err)
		assert.Equal(t, "abc123", hash)
	})

	t.Run("UserDeclined", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(signAndSendResponse{Error: "user declined"})
		}))
		defer server.Close()

		_, err := NewBridgeSigner(server.URL).SignAndSend(context.Background(), transfer())
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(signAndSendResponse{Error: "balance too low"})
		}))
		defer server.Close()

		_, err := NewBridgeSigner(server.URL).SignAndSend(context.Background(), transfer())
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("CancelledWhileAwaitingUser", func(t *testing.T) {
		blocked := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-blocked
		}))
		defer server.Close()
		defer close(blocked)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		_, err := NewBridgeSigner(server.URL).SignAndSend(ctx, transfer())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
