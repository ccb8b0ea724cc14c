package payment

import "errors"

var (
	// -- Pre-broadcast --
	ErrNotConnected      = errors.New("wallet not connected")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSigningRejected   = errors.New("signing rejected")

	// -- Broadcast & confirmation --

	// ErrNetwork: the broadcast itself failed. Nothing reached the
	// ledger, so a retry is safe.
	ErrNetwork = errors.New("payment network error")

	// ErrTimeout: the broadcast was accepted but settlement was not
	// observed within the confirmation window. The outcome is unknown,
	// not failed; callers must not re-broadcast blindly.
	ErrTimeout = errors.New("payment confirmation timeout")

	// -- Input --
	ErrInvalidAmount = errors.New("invalid payment amount")
	ErrMissingPayee  = errors.New("missing payee")
)
