package checkout

import (
	"context"
	"testing"

	"solshop-be/internal/cart"
	"solshop-be/internal/currency"
	"solshop-be/internal/order"
	"solshop-be/internal/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCartService is a mock implementation of cart.Service
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetItems(ctx context.Context, userKey string) ([]cart.CartItem, error) {
	args := m.Called(ctx, userKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.CartItem), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userKey string, item cart.CartItem) (*cart.CartItem, error) {
	args := m.Called(ctx, userKey, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.CartItem), args.Error(1)
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, userKey, itemID string, quantity int) error {
	args := m.Called(ctx, userKey, itemID, quantity)
	return args.Error(0)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userKey, itemID string) error {
	args := m.Called(ctx, userKey, itemID)
	return args.Error(0)
}

func (m *MockCartService) Clear(ctx context.Context, userKey string) error {
	args := m.Called(ctx, userKey)
	return args.Error(0)
}

// Totals mirrors the real derivation so scenarios only have to set up
// cart lines.
func (m *MockCartService) Totals(items []cart.CartItem) cart.Totals {
	totals := make(cart.Totals)
	for _, item := range items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		totals[item.Currency] = totals[item.Currency].Add(line)
	}
	return totals
}

// MockOrderService is a mock implementation of order.Service
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, userID string, items []cart.CartItem, addr order.ShippingAddress, cur currency.Currency) (*order.Order, error) {
	args := m.Called(ctx, userID, items, addr, cur)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID string, to order.Status, txHash *string) (*order.Order, error) {
	args := m.Called(ctx, orderID, to, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) AttachTxHash(ctx context.Context, orderID, txHash string) error {
	args := m.Called(ctx, orderID, txHash)
	return args.Error(0)
}

func (m *MockOrderService) Cancel(ctx context.Context, userID, orderID string) (*order.Order, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrdersForUser(ctx context.Context, userID string) ([]*order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

// MockSubmitter is a mock implementation of the Submitter interface
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, params payment.SubmitParams) (*payment.Receipt, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Receipt), args.Error(1)
}

func validAddress() order.ShippingAddress {
	return order.ShippingAddress{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "+15550100",
		Address:  "1 Analytical Way",
		City:     "London",
		State:    "LDN",
		ZipCode:  "E1 6AN",
		Country:  "UK",
	}
}

func solLines() []cart.CartItem {
	return []cart.CartItem{
		{
			ID:          "line-1",
			ProductID:   "prod-1",
			ProductName: "Vintage Jacket",
			UnitPrice:   decimal.RequireFromString("0.05"),
			Currency:    currency.SOL,
			Quantity:    2,
		},
		{
			ID:          "line-2",
			ProductID:   "prod-2",
			ProductName: "Canvas Tote",
			UnitPrice:   decimal.RequireFromString("10"),
			Currency:    currency.SOL,
			Quantity:    1,
		},
	}
}

func newFixture() (*Orchestrator, *MockCartService, *MockOrderService, *MockSubmitter) {
	carts := new(MockCartService)
	orders := new(MockOrderService)
	submitter := new(MockSubmitter)
	return NewOrchestrator(carts, orders, submitter, "MerchantWallet111"), carts, orders, submitter
}

// advance walks a fresh flow to the payment step.
func advance(t *testing.T, o *Orchestrator, userKey string) {
	t.Helper()
	_, err := o.Begin(userKey)
	require.NoError(t, err)
	_, err = o.SubmitShipping(userKey, validAddress())
	require.NoError(t, err)
}

func TestFlowSteps(t *testing.T) {
	o, _, _, _ := newFixture()

	t.Run("BeginStartsAtShipping", func(t *testing.T) {
		st, err := o.Begin("user-1")
		require.NoError(t, err)
		assert.Equal(t, StepShipping, st.Step)
	})

	t.Run("IncompleteShippingStaysPut", func(t *testing.T) {
		addr := validAddress()
		addr.City = ""

		st, err := o.SubmitShipping("user-1", addr)
		var verr *order.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "city")
		assert.Equal(t, StepShipping, st.Step)
	})

	t.Run("ValidShippingAdvances", func(t *testing.T) {
		st, err := o.SubmitShipping("user-1", validAddress())
		require.NoError(t, err)
		assert.Equal(t, StepPayment, st.Step)
		require.NotNil(t, st.Address)
		assert.Equal(t, "London", st.Address.City)
	})

	t.Run("BackReturnsToShipping", func(t *testing.T) {
		st, err := o.Back("user-1")
		require.NoError(t, err)
		assert.Equal(t, StepShipping, st.Step)

		_, err = o.Back("user-1")
		assert.ErrorIs(t, err, ErrWrongStep)
	})

	t.Run("MissingUserKey", func(t *testing.T) {
		_, err := o.Begin("")
		assert.ErrorIs(t, err, ErrMissingUserKey)
	})

	t.Run("StateStartsUnknownUsersFresh", func(t *testing.T) {
		st, err := o.State("stranger")
		require.NoError(t, err)
		assert.Equal(t, StepShipping, st.Step)
	})
}

func TestSubmit_Success(t *testing.T) {
	o, carts, orders, submitter := newFixture()
	ctx := context.Background()
	advance(t, o, "user-1")

	hash := "abc123"
	pending := &order.Order{ID: "order-1", UserID: "user-1", Status: order.StatusPending}

	carts.On("GetItems", ctx, "user-1").Return(solLines(), nil)
	orders.On("Create", ctx, "user-1", solLines(), validAddress(), currency.SOL).Return(pending, nil)
	submitter.On("Submit", ctx, payment.SubmitParams{
		Payee:     "MerchantWallet111",
		Amount:    decimal.RequireFromString("0.05").Mul(decimal.NewFromInt(2)).Add(decimal.RequireFromString("10")),
		Currency:  currency.SOL,
		Reference: "order-1",
	}).Return(&payment.Receipt{TxHash: hash, Confirmed: true}, nil)
	orders.On("UpdateStatus", ctx, "order-1", order.StatusPaid, &hash).
		Return(&order.Order{ID: "order-1", Status: order.StatusPaid, PaymentTxHash: &hash}, nil)
	carts.On("Clear", ctx, "user-1").Return(nil)

	st, err := o.Submit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StepSuccess, st.Step)
	assert.Equal(t, "order-1", st.OrderID)
	assert.Equal(t, "abc123", st.TxHash)

	carts.AssertExpectations(t)
	orders.AssertExpectations(t)
	submitter.AssertExpectations(t)
}

func TestSubmit_SigningRejectedKeepsCartAndOrder(t *testing.T) {
	o, carts, orders, submitter := newFixture()
	ctx := context.Background()
	advance(t, o, "user-1")

	pending := &order.Order{ID: "order-1", UserID: "user-1", Status: order.StatusPending}

	carts.On("GetItems", ctx, "user-1").Return(solLines(), nil)
	orders.On("Create", ctx, "user-1", solLines(), validAddress(), currency.SOL).Return(pending, nil)
	submitter.On("Submit", ctx, mock.AnythingOfType("payment.SubmitParams")).
		Return(nil, payment.ErrSigningRejected)

	st, err := o.Submit(ctx, "user-1")
	assert.ErrorIs(t, err, payment.ErrSigningRejected)
	assert.Equal(t, StepPayment, st.Step)
	assert.Equal(t, "order-1", st.OrderID)
	assert.NotEmpty(t, st.LastError)

	// The pending order survives for retry; the cart is untouched.
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "AttachTxHash", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_TimeoutRecordsHashForReconciliation(t *testing.T) {
	o, carts, orders, submitter := newFixture()
	ctx := context.Background()
	advance(t, o, "user-1")

	pending := &order.Order{ID: "order-1", UserID: "user-1", Status: order.StatusPending}

	carts.On("GetItems", ctx, "user-1").Return(solLines(), nil)
	orders.On("Create", ctx, "user-1", solLines(), validAddress(), currency.SOL).Return(pending, nil)
	submitter.On("Submit", ctx, mock.AnythingOfType("payment.SubmitParams")).
		Return(&payment.Receipt{TxHash: "abc123", Confirmed: false}, payment.ErrTimeout)
	orders.On("AttachTxHash", ctx, "order-1", "abc123").Return(nil)

	st, err := o.Submit(ctx, "user-1")
	assert.ErrorIs(t, err, payment.ErrTimeout)
	assert.Equal(t, StepPayment, st.Step)
	assert.Equal(t, "abc123", st.TxHash)

	orders.AssertExpectations(t)
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestSubmit_EmptyCart(t *testing.T) {
	o, carts, orders, _ := newFixture()
	ctx := context.Background()
	advance(t, o, "user-1")

	carts.On("GetItems", ctx, "user-1").Return([]cart.CartItem{}, nil)

	st, err := o.Submit(ctx, "user-1")
	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.Equal(t, StepPayment, st.Step)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_MixedCurrencies(t *testing.T) {
	o, carts, orders, _ := newFixture()
	ctx := context.Background()
	advance(t, o, "user-1")

	lines := solLines()
	lines[1].Currency = currency.USDC
	carts.On("GetItems", ctx, "user-1").Return(lines, nil)

	st, err := o.Submit(ctx, "user-1")
	assert.ErrorIs(t, err, ErrMixedCurrencies)
	assert.Equal(t, StepPayment, st.Step)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_WrongStep(t *testing.T) {
	o, _, _, _ := newFixture()
	ctx := context.Background()

	_, err := o.Begin("user-1")
	require.NoError(t, err)

	_, err = o.Submit(ctx, "user-1")
	assert.ErrorIs(t, err, ErrWrongStep)

	_, err = o.Submit(ctx, "nobody")
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(payment.ErrSigningRejected))
	assert.True(t, IsRecoverable(payment.ErrInsufficientFunds))
	assert.True(t, IsRecoverable(payment.ErrNetwork))
	assert.False(t, IsRecoverable(payment.ErrTimeout))
	assert.False(t, IsRecoverable(context.Canceled))
}
