package order

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{
	"id", "user_id", "full_name", "email", "phone", "address", "city", "state",
	"zip_code", "country", "notes", "currency", "total_amount", "status",
	"payment_tx_hash", "created_at", "updated_at",
}

var itemCols = []string{
	"id", "order_id", "product_id", "product_name", "product_image",
	"shop_name", "unit_price", "quantity", "selected_size", "selected_color",
}

func orderRow(id, status string, txHash any) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, "user-1", "Ada Lovelace", "ada@example.com", "+15550100",
		"1 Analytical Way", "London", "LDN", "E1 6AN", "UK", nil,
		"SOL", "10.10", status, txHash, now, now,
	}
}

func TestRepository_CreateOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	o := &Order{
		ID:              "order-1",
		UserID:          "user-1",
		ShippingAddress: validAddress(),
		Currency:        "SOL",
		Status:          StatusPending,
		Items: []OrderItem{
			{ID: "item-1", OrderID: "order-1", ProductID: "prod-1", ProductName: "Vintage Jacket"},
		},
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.CreateOrder(ctx, o))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ItemInsertFailureRollsBack", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).WillReturnError(errors.New("constraint violation"))
		mock.ExpectRollback()

		assert.Error(t, repo.CreateOrder(ctx, o))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderRow("order-1", "pending", nil)...))
		mock.ExpectQuery(`SELECT (.+) FROM order_items`).
			WillReturnRows(sqlmock.NewRows(itemCols).
				AddRow("item-1", "order-1", "prod-1", "Vintage Jacket", "", "Retro Corner", "0.05", 2, nil, nil))

		o, err := repo.GetOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "order-1", o.ID)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, "London", o.ShippingAddress.City)
		require.Len(t, o.Items, 1)
		assert.Equal(t, 2, o.Items[0].Quantity)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(orderCols))

		_, err := repo.GetOrder(ctx, "ghost")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_ListForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(orderRow("order-2", "pending", nil)...).
			AddRow(orderRow("order-1", "paid", "abc123")...))
	mock.ExpectQuery(`SELECT (.+) FROM order_items`).
		WillReturnRows(sqlmock.NewRows(itemCols))

	orders, err := repo.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-2", orders[0].ID)
	require.NotNil(t, orders[1].PaymentTxHash)
	assert.Equal(t, "abc123", *orders[1].PaymentTxHash)
}

func TestRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("LegalTransition", func(t *testing.T) {
		hash := "abc123"
		mock.ExpectExec(`UPDATE orders SET status = \$2`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderRow("order-1", "paid", hash)...))
		mock.ExpectQuery(`SELECT (.+) FROM order_items`).
			WillReturnRows(sqlmock.NewRows(itemCols))

		o, err := repo.UpdateStatus(ctx, "order-1", StatusPaid, &hash)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, o.Status)
	})

	t.Run("IllegalTransitionClassified", func(t *testing.T) {
		// Guarded UPDATE touches nothing; the follow-up read finds the
		// order, so the miss means an illegal transition.
		mock.ExpectExec(`UPDATE orders SET status = \$2`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderRow("order-1", "delivered", nil)...))
		mock.ExpectQuery(`SELECT (.+) FROM order_items`).
			WillReturnRows(sqlmock.NewRows(itemCols))

		_, err := repo.UpdateStatus(ctx, "order-1", StatusPaid, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("MissingOrderClassified", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$2`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows(orderCols))

		_, err := repo.UpdateStatus(ctx, "ghost", StatusPaid, nil)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("NothingTransitionsToPending", func(t *testing.T) {
		_, err := repo.UpdateStatus(ctx, "order-1", StatusPending, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestRepository_AttachTxHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("PendingOrder", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET payment_tx_hash = \$2`).
			WithArgs("order-1", "abc123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.AttachTxHash(ctx, "order-1", "abc123"))
	})

	t.Run("NotPendingOrMissing", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET payment_tx_hash = \$2`).
			WithArgs("order-1", "abc123").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.AttachTxHash(ctx, "order-1", "abc123"), ErrOrderNotFound)
	})
}

func TestRepository_ListUnsettled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE status = 'pending' AND payment_tx_hash IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderRow("order-1", "pending", "abc123")...))

	orders, err := repo.ListUnsettled(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "abc123", *orders[0].PaymentTxHash)
}
