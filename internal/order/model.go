package order

import (
	"time"

	"solshop-be/internal/cart"
	"solshop-be/internal/currency"

	"github.com/shopspring/decimal"
)

// ShippingAddress is copied by value into the order at checkout time,
// so later address-book edits never alter historical orders.
type ShippingAddress struct {
	FullName string
	Email    string
	Phone    string
	Address  string
	City     string
	State    string
	ZipCode  string
	Country  string
	Notes    *string
}

// Validate checks the required fields and reports every missing one.
func (a ShippingAddress) Validate() error {
	var missing []string

	required := []struct {
		field string
		value string
	}{
		{"fullName", a.FullName},
		{"email", a.Email},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.field)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// OrderItem is a frozen snapshot of a cart line. Price and product
// metadata are copied at order-creation time and never re-read from
// the catalog.
type OrderItem struct {
	ID            string
	OrderID       string
	ProductID     string
	ProductName   string
	ProductImage  string
	ShopName      string
	UnitPrice     decimal.Decimal
	Quantity      int
	SelectedSize  *string
	SelectedColor *string
}

// SnapshotItem freezes a cart line into an order item.
func SnapshotItem(line cart.CartItem) OrderItem {
	return OrderItem{
		ProductID:     line.ProductID,
		ProductName:   line.ProductName,
		ProductImage:  line.ProductImage,
		ShopName:      line.ShopName,
		UnitPrice:     line.UnitPrice,
		Quantity:      line.Quantity,
		SelectedSize:  line.SelectedSize,
		SelectedColor: line.SelectedColor,
	}
}

type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	Currency        currency.Currency
	TotalAmount     decimal.Decimal
	Status          Status
	PaymentTxHash   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
