package exchange

import (
	"context"
	"fmt"
	"time"

	"solshop-be/internal/currency"

	"github.com/shopspring/decimal"
)

// Rate is a point-in-time USD quote for one native unit. Rates are
// volatile external facts and are never persisted by this service.
type Rate struct {
	Currency currency.Currency
	USD      decimal.Decimal
	AsOf     time.Time
}

// RateSource supplies best-effort USD quotes for native units.
type RateSource interface {
	GetUSDRate(ctx context.Context, c currency.Currency) (Rate, error)
}

// Service converts amounts between native units and to a USD reference
// value. Converted values are informational only; the authoritative
// settlement amount is always the native-unit amount at submission time.
type Service interface {
	ConvertBetween(ctx context.Context, amount decimal.Decimal, from, to currency.Currency) (decimal.Decimal, error)
	ConvertToUSD(ctx context.Context, amount decimal.Decimal, c currency.Currency) (decimal.Decimal, error)
}

type service struct {
	source RateSource
}

func NewService(source RateSource) Service {
	return &service{source: source}
}

// conversion precision in fractional digits. USDC has 6 on-ledger
// decimals, SOL has 9; display values round to 9 and stay exact for
// the cart arithmetic the UI shows.
const precision = 9

func (s *service) ConvertBetween(ctx context.Context, amount decimal.Decimal, from, to currency.Currency) (decimal.Decimal, error) {
	if !from.Valid() || !to.Valid() {
		return decimal.Zero, fmt.Errorf("convert between %s and %s: %w", from, to, currency.ErrUnknownCurrency)
	}
	if from == to {
		return amount, nil
	}

	fromRate, err := s.usableRate(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := s.usableRate(ctx, to)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(fromRate.USD).DivRound(toRate.USD, precision), nil
}

func (s *service) ConvertToUSD(ctx context.Context, amount decimal.Decimal, c currency.Currency) (decimal.Decimal, error) {
	if !c.Valid() {
		return decimal.Zero, fmt.Errorf("convert %s to usd: %w", c, currency.ErrUnknownCurrency)
	}

	rate, err := s.usableRate(ctx, c)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(rate.USD).Round(2), nil
}

func (s *service) usableRate(ctx context.Context, c currency.Currency) (Rate, error) {
	rate, err := s.source.GetUSDRate(ctx, c)
	if err != nil {
		return Rate{}, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if rate.USD.Sign() <= 0 {
		return Rate{}, fmt.Errorf("%w: non-positive quote for %s", ErrRateUnavailable, c)
	}
	return rate, nil
}
