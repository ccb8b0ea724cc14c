package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// -- Input --
	ErrMissingUserID    = errors.New("missing user id")
	ErrEmptyItems       = errors.New("order has no items")
	ErrCurrencyMismatch = errors.New("item currency does not match order currency")

	// -- Resource state --
	ErrOrderNotFound = errors.New("order not found")

	// -- Invariant violations (programmer error in orchestrator usage) --
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// ValidationError reports the shipping-address fields that failed
// validation, for inline field-level display.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}
