package checkout

import "errors"

var (
	ErrMissingUserKey  = errors.New("user key is required")
	ErrWrongStep       = errors.New("operation not allowed in current checkout step")
	ErrCartEmpty       = errors.New("cart is empty")
	ErrMixedCurrencies = errors.New("cart mixes currencies; pay one currency at a time")
	ErrNoShippingInfo  = errors.New("shipping details not submitted")
)
