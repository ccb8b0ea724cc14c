package order

import (
	"context"
	"database/sql"
	"time"

	"solshop-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListForUser(ctx context.Context, userID string) ([]*Order, error)
	UpdateStatus(ctx context.Context, orderID string, to Status, txHash *string) (*Order, error)
	AttachTxHash(ctx context.Context, orderID, txHash string) error
	ListUnsettled(ctx context.Context) ([]*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, user_id, full_name, email, phone, address, city, state,
	zip_code, country, notes, currency, total_amount, status,
	payment_tx_hash, created_at, updated_at`

// CreateOrder inserts the order and its item snapshots in one
// transaction. Orders are created pending, before payment is attempted.
func (r *repository) CreateOrder(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, full_name, email, phone, address, city, state,
			zip_code, country, notes, currency, total_amount, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		o.ID,
		o.UserID,
		o.ShippingAddress.FullName,
		o.ShippingAddress.Email,
		o.ShippingAddress.Phone,
		o.ShippingAddress.Address,
		o.ShippingAddress.City,
		o.ShippingAddress.State,
		o.ShippingAddress.ZipCode,
		o.ShippingAddress.Country,
		o.ShippingAddress.Notes,
		o.Currency,
		o.TotalAmount,
		o.Status,
	)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, product_name, product_image,
				shop_name, unit_price, quantity, selected_size, selected_color
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			item.ID,
			o.ID,
			item.ProductID,
			item.ProductName,
			item.ProductImage,
			item.ShopName,
			item.UnitPrice,
			item.Quantity,
			item.SelectedSize,
			item.SelectedColor,
		)
		if err != nil {
			log.Error("failed to insert order item", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info("order created", zap.Int("items", len(o.Items)))
	return nil
}

func (r *repository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE id = $1
	`, orderID)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListForUser returns the user's orders newest-first, items included.
func (r *repository) ListForUser(ctx context.Context, userID string) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus applies a status transition with the legality check
// pushed into the UPDATE itself: only rows currently in a legal
// predecessor status are touched. A miss is then classified as
// not-found or invalid-transition.
func (r *repository) UpdateStatus(ctx context.Context, orderID string, to Status, txHash *string) (*Order, error) {
	froms := predecessors(to)
	if len(froms) == 0 {
		return nil, ErrInvalidTransition
	}
	fromStrs := make([]string, len(froms))
	for i, f := range froms {
		fromStrs[i] = string(f)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    payment_tx_hash = COALESCE($3, payment_tx_hash),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)
	`, orderID, to, txHash, pq.Array(fromStrs))
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either the order does not exist or it is in a status that
		// cannot reach `to`.
		if _, err := r.GetOrder(ctx, orderID); err != nil {
			return nil, err
		}
		return nil, ErrInvalidTransition
	}

	return r.GetOrder(ctx, orderID)
}

// AttachTxHash records the broadcast tx hash on a still-pending order
// without changing its status, so an unconfirmed submission stays
// findable by the reconciler.
func (r *repository) AttachTxHash(ctx context.Context, orderID, txHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_tx_hash = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, orderID, txHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListUnsettled returns pending orders that already carry a submitted
// tx hash: broadcasts whose settlement was never observed.
func (r *repository) ListUnsettled(ctx context.Context) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'pending' AND payment_tx_hash IS NOT NULL
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *repository) loadItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, product_image,
			shop_name, unit_price, quantity, selected_size, selected_color
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		var size, color sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductImage,
			&item.ShopName,
			&item.UnitPrice,
			&item.Quantity,
			&size,
			&color,
		); err != nil {
			return err
		}
		if size.Valid {
			item.SelectedSize = &size.String
		}
		if color.Valid {
			item.SelectedColor = &color.String
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var notes, txHash sql.NullString
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.ShippingAddress.FullName,
		&o.ShippingAddress.Email,
		&o.ShippingAddress.Phone,
		&o.ShippingAddress.Address,
		&o.ShippingAddress.City,
		&o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode,
		&o.ShippingAddress.Country,
		&notes,
		&o.Currency,
		&o.TotalAmount,
		&o.Status,
		&txHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		o.ShippingAddress.Notes = &notes.String
	}
	if txHash.Valid {
		o.PaymentTxHash = &txHash.String
	}
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
