package order

import (
	"context"
	"fmt"
	"time"

	"solshop-be/internal/cart"
	"solshop-be/internal/currency"
	"solshop-be/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service defines the business logic for orders.
type Service interface {
	// Create snapshots the cart lines into a pending order. It is
	// called before payment is attempted, so a durable record exists
	// even if payment fails or times out.
	Create(ctx context.Context, userID string, items []cart.CartItem, addr ShippingAddress, cur currency.Currency) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, to Status, txHash *string) (*Order, error)
	// AttachTxHash records a broadcast whose settlement is unknown.
	AttachTxHash(ctx context.Context, orderID, txHash string) error
	Cancel(ctx context.Context, userID, orderID string) (*Order, error)
	GetOrdersForUser(ctx context.Context, userID string) ([]*Order, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, userID string, items []cart.CartItem, addr ShippingAddress, cur currency.Currency) (*Order, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if !cur.Valid() {
		return nil, fmt.Errorf("%w: %s", currency.ErrUnknownCurrency, cur)
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	total := decimal.Zero
	snapshots := make([]OrderItem, 0, len(items))
	for _, line := range items {
		if line.Currency != cur {
			return nil, fmt.Errorf("%w: line %s is %s, order is %s",
				ErrCurrencyMismatch, line.ID, line.Currency, cur)
		}
		item := SnapshotItem(line)
		item.ID = uuid.NewString()
		snapshots = append(snapshots, item)
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	now := time.Now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           snapshots,
		ShippingAddress: addr,
		Currency:        cur,
		TotalAmount:     total,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", userID),
		zap.String("total", total.String()),
		zap.String("currency", cur.String()),
	)
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID string, to Status, txHash *string) (*Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	o, err := s.repo.UpdateStatus(ctx, orderID, to, txHash)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(to)),
	)
	return o, nil
}

func (s *service) AttachTxHash(ctx context.Context, orderID, txHash string) error {
	if txHash == "" {
		return fmt.Errorf("missing tx hash for order %s", orderID)
	}

	if err := s.repo.AttachTxHash(ctx, orderID, txHash); err != nil {
		return err
	}

	logger.FromCtx(ctx).Warn("order awaiting settlement",
		zap.String("order_id", orderID),
		zap.String("tx_hash", txHash),
	)
	return nil
}

// Cancel moves a user's own order to cancelled.
func (s *service) Cancel(ctx context.Context, userID, orderID string) (*Order, error) {
	existing, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrOrderNotFound
	}

	return s.UpdateStatus(ctx, orderID, StatusCancelled, nil)
}

func (s *service) GetOrdersForUser(ctx context.Context, userID string) ([]*Order, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.repo.ListForUser(ctx, userID)
}
