package wallet

import (
	"context"
	"errors"

	"solshop-be/internal/currency"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotConnected: no wallet identity is available to sign with.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrRejected: the user declined the signing prompt.
	ErrRejected = errors.New("signing rejected by user")
	// ErrInsufficientFunds: the wallet refused the transfer pre-broadcast.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// TransferRequest describes one value transfer for the wallet to sign
// and broadcast. SOL moves as a native transfer, USDC as a token
// transfer; the wallet picks the mechanism from Currency and both look
// identical to the caller.
type TransferRequest struct {
	Payer     string
	Payee     string
	Amount    decimal.Decimal
	Currency  currency.Currency
	Reference string
}

// Signer is the external wallet-signing capability. SignAndSend may
// suspend indefinitely while the user interacts with the wallet UI, so
// it must honor ctx cancellation; cancelling before the user approves
// must not broadcast anything.
type Signer interface {
	IsConnected() bool
	Identity() (string, error)
	SignAndSend(ctx context.Context, req TransferRequest) (txHash string, err error)
}
