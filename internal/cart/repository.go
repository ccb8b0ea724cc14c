package cart

import (
	"context"
	"database/sql"
	"time"

	"solshop-be/internal/logger"

	"go.uber.org/zap"
)

// Repository is a keyed store of cart lines scoped by an opaque
// per-user key. Multiple implementations satisfy the same contract
// (Postgres here, in-memory in memory.go).
type Repository interface {
	GetItems(ctx context.Context, userKey string) ([]CartItem, error)
	GetItem(ctx context.Context, userKey, itemID string) (*CartItem, error)
	InsertItem(ctx context.Context, item CartItem) (*CartItem, error)
	UpdateQuantity(ctx context.Context, userKey, itemID string, quantity int) error
	DeleteItem(ctx context.Context, userKey, itemID string) error
	Clear(ctx context.Context, userKey string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const itemColumns = `
	id, user_key, product_id, product_name, product_image, shop_name,
	unit_price, currency, quantity, selected_size, selected_color,
	created_at, updated_at`

func (r *repository) GetItems(ctx context.Context, userKey string) ([]CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items
		WHERE user_key = $1
		ORDER BY created_at ASC
	`, userKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *repository) GetItem(ctx context.Context, userKey, itemID string) (*CartItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items
		WHERE user_key = $1 AND id = $2
	`, userKey, itemID)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) InsertItem(ctx context.Context, item CartItem) (*CartItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertItem"),
		zap.String("user_key", item.UserKey),
		zap.String("product_id", item.ProductID),
	)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (
			id, user_key, product_id, product_name, product_image,
			shop_name, unit_price, currency, quantity,
			selected_size, selected_color
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+itemColumns,
		item.ID,
		item.UserKey,
		item.ProductID,
		item.ProductName,
		item.ProductImage,
		item.ShopName,
		item.UnitPrice,
		item.Currency,
		item.Quantity,
		item.SelectedSize,
		item.SelectedColor,
	)

	created, err := scanItem(row)
	if err != nil {
		log.Error("failed to insert cart item", zap.Error(err))
		return nil, err
	}

	log.Info("cart item inserted", zap.String("cart_item_id", created.ID))
	return created, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, userKey, itemID string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $1, updated_at = NOW()
		WHERE user_key = $2 AND id = $3
	`, quantity, userKey, itemID)
	return err
}

// DeleteItem removes a line. Deleting an absent line is a no-op so that
// client retries stay idempotent.
func (r *repository) DeleteItem(ctx context.Context, userKey, itemID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE user_key = $1 AND id = $2
	`, userKey, itemID)
	return err
}

func (r *repository) Clear(ctx context.Context, userKey string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE user_key = $1
	`, userKey)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*CartItem, error) {
	var item CartItem
	var size, color sql.NullString
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&item.ID,
		&item.UserKey,
		&item.ProductID,
		&item.ProductName,
		&item.ProductImage,
		&item.ShopName,
		&item.UnitPrice,
		&item.Currency,
		&item.Quantity,
		&size,
		&color,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if size.Valid {
		item.SelectedSize = &size.String
	}
	if color.Valid {
		item.SelectedColor = &color.String
	}
	item.CreatedAt = createdAt
	item.UpdatedAt = updatedAt
	return &item, nil
}
