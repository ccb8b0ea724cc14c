package cart

import "errors"

var (
	// -- Validation & Input --
	ErrMissingUserKey  = errors.New("user key is required")
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrInvalidQuantity = errors.New("invalid cart quantity")

	// -- Resource State --
	ErrCartEmpty = errors.New("cart is empty")
)
