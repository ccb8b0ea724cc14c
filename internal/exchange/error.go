package exchange

import "errors"

var (
	// ErrRateUnavailable is returned when the rate source has no usable
	// quote (missing, zero or negative). Callers never receive a
	// fabricated conversion.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)
