package cart

import (
	"context"
	"fmt"

	"solshop-be/internal/currency"
	"solshop-be/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service defines the business logic for carts.
type Service interface {
	GetItems(ctx context.Context, userKey string) ([]CartItem, error)
	AddItem(ctx context.Context, userKey string, item CartItem) (*CartItem, error)
	UpdateQuantity(ctx context.Context, userKey, itemID string, quantity int) error
	RemoveItem(ctx context.Context, userKey, itemID string) error
	Clear(ctx context.Context, userKey string) error
	Totals(items []CartItem) Totals
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetItems(ctx context.Context, userKey string) ([]CartItem, error) {
	if userKey == "" {
		return nil, ErrMissingUserKey
	}
	return s.repo.GetItems(ctx, userKey)
}

// AddItem appends a line to the user's cart. Adding the same product
// with the same selected options merges into the existing line instead
// of duplicating it.
func (s *service) AddItem(ctx context.Context, userKey string, item CartItem) (*CartItem, error) {
	if userKey == "" {
		return nil, ErrMissingUserKey
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.String("user_key", userKey),
		zap.String("product_id", item.ProductID),
	)

	existing, err := s.repo.GetItems(ctx, userKey)
	if err != nil {
		return nil, err
	}

	for _, line := range existing {
		if line.SameLine(item) {
			merged := line.Quantity + item.Quantity
			if err := s.repo.UpdateQuantity(ctx, userKey, line.ID, merged); err != nil {
				return nil, err
			}
			line.Quantity = merged
			log.Info("cart line merged", zap.String("cart_item_id", line.ID), zap.Int("quantity", merged))
			return &line, nil
		}
	}

	item.UserKey = userKey
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.repo.InsertItem(ctx, item)
}

// UpdateQuantity sets a line's quantity. Zero or negative removes the
// line instead of storing a non-positive quantity.
func (s *service) UpdateQuantity(ctx context.Context, userKey, itemID string, quantity int) error {
	if userKey == "" {
		return ErrMissingUserKey
	}
	if itemID == "" {
		return fmt.Errorf("%w: missing item id", ErrInvalidItem)
	}

	if quantity <= 0 {
		return s.repo.DeleteItem(ctx, userKey, itemID)
	}

	return s.repo.UpdateQuantity(ctx, userKey, itemID, quantity)
}

// RemoveItem deletes a line. Removing an absent line is a no-op.
func (s *service) RemoveItem(ctx context.Context, userKey, itemID string) error {
	if userKey == "" {
		return ErrMissingUserKey
	}
	if itemID == "" {
		return fmt.Errorf("%w: missing item id", ErrInvalidItem)
	}
	return s.repo.DeleteItem(ctx, userKey, itemID)
}

func (s *service) Clear(ctx context.Context, userKey string) error {
	if userKey == "" {
		return ErrMissingUserKey
	}
	return s.repo.Clear(ctx, userKey)
}

// Totals sums unitPrice*quantity grouped by currency. It is derived
// from the item set every time, never cached, and never mixes
// currencies into one figure.
func (s *service) Totals(items []CartItem) Totals {
	totals := make(Totals)
	for _, item := range items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		totals[item.Currency] = totals[item.Currency].Add(line)
	}
	return totals
}

func validateItem(item CartItem) error {
	if item.ProductID == "" || item.ProductName == "" {
		return fmt.Errorf("%w: missing product", ErrInvalidItem)
	}
	if !item.Currency.Valid() {
		return fmt.Errorf("%w: %s", currency.ErrUnknownCurrency, item.Currency)
	}
	if item.UnitPrice.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive unit price", ErrInvalidItem)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("%w: quantity %d", ErrInvalidQuantity, item.Quantity)
	}
	return nil
}
