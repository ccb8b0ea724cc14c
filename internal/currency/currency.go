package currency

import (
	"errors"
	"strings"
)

// Currency is a native on-ledger unit. Fiat values (USD) are display-only
// and never appear as a Currency.
type Currency string

const (
	SOL  Currency = "SOL"
	USDC Currency = "USDC"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// All lists the supported native units.
func All() []Currency {
	return []Currency{SOL, USDC}
}

func (c Currency) Valid() bool {
	return c == SOL || c == USDC
}

func (c Currency) String() string {
	return string(c)
}

// Parse normalizes a currency code. Unknown codes are rejected rather
// than passed through, so a typo never reaches the ledger boundary.
func Parse(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case SOL:
		return SOL, nil
	case USDC:
		return USDC, nil
	}
	return "", ErrUnknownCurrency
}
