package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solshop-be/internal/currency"
	"solshop-be/internal/ledger"
	"solshop-be/internal/logger"
	"solshop-be/internal/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SubmitParams carries one transfer. The amount is already in native
// units; the submitter never converts it.
type SubmitParams struct {
	Payee     string
	Amount    decimal.Decimal
	Currency  currency.Currency
	Reference string
}

// Receipt is the result of a confirmed (or at least broadcast)
// submission. TxHash is set as soon as the broadcast is accepted, so a
// timed-out submission still reports which transaction to reconcile.
type Receipt struct {
	TxHash    string
	Confirmed bool
}

// Submitter is a single-attempt payment primitive: sign, broadcast,
// poll for settlement. It holds no state beyond one in-flight request
// and never retries a broadcast; retry policy belongs to the caller.
type Submitter struct {
	signer       wallet.Signer
	ledger       ledger.Client
	pollInterval time.Duration
	timeout      time.Duration
}

func NewSubmitter(signer wallet.Signer, ledgerClient ledger.Client, pollInterval, timeout time.Duration) *Submitter {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Submitter{
		signer:       signer,
		ledger:       ledgerClient,
		pollInterval: pollInterval,
		timeout:      timeout,
	}
}

// Submit runs the transfer pipeline. On ErrTimeout the returned receipt
// is non-nil and carries the tx hash with Confirmed=false.
func (s *Submitter) Submit(ctx context.Context, params SubmitParams) (*Receipt, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	if !s.signer.IsConnected() {
		return nil, ErrNotConnected
	}
	payer, err := s.signer.Identity()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	log := logger.FromCtx(ctx).With(
		zap.String("payer", payer),
		zap.String("payee", params.Payee),
		zap.String("amount", params.Amount.String()),
		zap.String("currency", params.Currency.String()),
	)

	txHash, err := s.signer.SignAndSend(ctx, wallet.TransferRequest{
		Payer:     payer,
		Payee:     params.Payee,
		Amount:    params.Amount,
		Currency:  params.Currency,
		Reference: params.Reference,
	})
	if err != nil {
		return nil, mapSigningError(err)
	}

	log = log.With(zap.String("tx_hash", txHash))
	log.Info("transfer broadcast accepted")

	confirmed, err := s.awaitConfirmation(ctx, txHash)
	if err != nil {
		// Timed out or the caller walked away. Either way the broadcast
		// is out there, so the receipt still carries the tx hash for
		// reconciliation.
		log.Warn("settlement not observed", zap.Error(err))
		return &Receipt{TxHash: txHash, Confirmed: false}, err
	}
	if !confirmed {
		return &Receipt{TxHash: txHash, Confirmed: false}, ErrTimeout
	}

	log.Info("transfer settled")
	return &Receipt{TxHash: txHash, Confirmed: true}, nil
}

// awaitConfirmation polls the ledger until the transfer settles, the
// window closes, or ctx is cancelled. Cancellation only abandons the
// poll; the transaction may still land and is picked up by the
// reconciler.
func (s *Submitter) awaitConfirmation(ctx context.Context, txHash string) (bool, error) {
	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		confirmed, err := s.ledger.Confirm(ctx, txHash)
		if err == nil && confirmed {
			return true, nil
		}
		if err != nil {
			logger.FromCtx(ctx).Debug("confirmation poll failed",
				zap.String("tx_hash", txHash),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, ErrTimeout
		case <-ticker.C:
		}
	}
}

func mapSigningError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrRejected):
		return fmt.Errorf("%w: %v", ErrSigningRejected, err)
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case errors.Is(err, wallet.ErrNotConnected):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
}

func validateParams(params SubmitParams) error {
	if params.Payee == "" {
		return ErrMissingPayee
	}
	if !params.Currency.Valid() {
		return fmt.Errorf("%w: %s", currency.ErrUnknownCurrency, params.Currency)
	}
	if params.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, params.Amount)
	}
	return nil
}
