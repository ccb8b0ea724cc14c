package cart

import (
	"time"

	"solshop-be/internal/currency"

	"github.com/shopspring/decimal"
)

// CartItem is one cart line. ID identifies the line, not the product:
// the same product with a different size or color is a separate line.
type CartItem struct {
	ID            string
	UserKey       string
	ProductID     string
	ProductName   string
	ProductImage  string
	ShopName      string
	UnitPrice     decimal.Decimal
	Currency      currency.Currency
	Quantity      int
	SelectedSize  *string
	SelectedColor *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SameLine reports whether two items would occupy the same cart line
// (same product and same selected options).
func (i CartItem) SameLine(other CartItem) bool {
	return i.ProductID == other.ProductID &&
		strPtrEqual(i.SelectedSize, other.SelectedSize) &&
		strPtrEqual(i.SelectedColor, other.SelectedColor)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Totals is the cart total per currency. Currencies are never summed
// together; comparing across them requires an explicit conversion.
type Totals map[currency.Currency]decimal.Decimal
