package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"solshop-be/internal/cart"
	"solshop-be/internal/checkout"
	"solshop-be/internal/currency"
	"solshop-be/internal/exchange"
	"solshop-be/internal/order"
	"solshop-be/internal/payment"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	Carts    cart.Service
	Orders   order.Service
	Checkout *checkout.Orchestrator
	Rates    exchange.Service
}

func NewHandler(carts cart.Service, orders order.Service, co *checkout.Orchestrator, rates exchange.Service) *Handler {
	return &Handler{
		Carts:    carts,
		Orders:   orders,
		Checkout: co,
		Rates:    rates,
	}
}

type cartItemRequest struct {
	ProductID     string  `json:"productId"`
	ProductName   string  `json:"productName"`
	ProductImage  string  `json:"productImage"`
	ShopName      string  `json:"shopName"`
	UnitPrice     string  `json:"unitPrice"`
	Currency      string  `json:"currency"`
	Quantity      int     `json:"quantity"`
	SelectedSize  *string `json:"selectedSize,omitempty"`
	SelectedColor *string `json:"selectedColor,omitempty"`
}

type cartItemResponse struct {
	ID            string  `json:"id"`
	ProductID     string  `json:"productId"`
	ProductName   string  `json:"productName"`
	ProductImage  string  `json:"productImage,omitempty"`
	ShopName      string  `json:"shopName,omitempty"`
	UnitPrice     string  `json:"unitPrice"`
	Currency      string  `json:"currency"`
	Quantity      int     `json:"quantity"`
	LineTotal     string  `json:"lineTotal"`
	SelectedSize  *string `json:"selectedSize,omitempty"`
	SelectedColor *string `json:"selectedColor,omitempty"`
}

type cartResponse struct {
	Items     []cartItemResponse `json:"items"`
	Totals    map[string]string  `json:"totals"`
	TotalsUSD map[string]string  `json:"totalsUsd,omitempty"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type shippingRequest struct {
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
	City     string  `json:"city"`
	State    string  `json:"state"`
	ZipCode  string  `json:"zipCode"`
	Country  string  `json:"country"`
	Notes    *string `json:"notes,omitempty"`
}

type checkoutStateResponse struct {
	Step        string   `json:"step"`
	OrderID     string   `json:"orderId,omitempty"`
	TxHash      string   `json:"txHash,omitempty"`
	LastError   string   `json:"lastError,omitempty"`
	Recoverable *bool    `json:"recoverable,omitempty"`
	Fields      []string `json:"fields,omitempty"`
}

type orderItemResponse struct {
	ProductID     string  `json:"productId"`
	ProductName   string  `json:"productName"`
	ProductImage  string  `json:"productImage,omitempty"`
	ShopName      string  `json:"shopName,omitempty"`
	UnitPrice     string  `json:"unitPrice"`
	Quantity      int     `json:"quantity"`
	SelectedSize  *string `json:"selectedSize,omitempty"`
	SelectedColor *string `json:"selectedColor,omitempty"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	Currency      string              `json:"currency"`
	TotalAmount   string              `json:"totalAmount"`
	PaymentTxHash string              `json:"paymentTxHash,omitempty"`
	CreatedAt     string              `json:"createdAt"`
	Items         []orderItemResponse `json:"items"`
}

// userKey extracts the caller identity. Wallet-based identity and
// guest sessions both arrive as an opaque key; there is no account
// system behind it.
func userKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get("X-User-ID")
	if key == "" {
		writeError(w, http.StatusUnauthorized, "missing user id")
		return "", false
	}
	return key, true
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	items, err := h.Carts.GetItems(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	resp := cartResponse{
		Items:  make([]cartItemResponse, 0, len(items)),
		Totals: make(map[string]string),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toCartItemResponse(item))
	}

	totals := h.Carts.Totals(items)
	for cur, amount := range totals {
		resp.Totals[cur.String()] = amount.String()
	}

	// USD figures are informational; a rate outage never blocks the cart.
	usd := make(map[string]string)
	for cur, amount := range totals {
		v, err := h.Rates.ConvertToUSD(r.Context(), amount, cur)
		if err != nil {
			usd = nil
			break
		}
		usd[cur.String()] = v.String()
	}
	resp.TotalsUSD = usd

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit price")
		return
	}
	cur, err := currency.Parse(req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown currency")
		return
	}

	item, err := h.Carts.AddItem(r.Context(), key, cart.CartItem{
		ProductID:     req.ProductID,
		ProductName:   req.ProductName,
		ProductImage:  req.ProductImage,
		ShopName:      req.ShopName,
		UnitPrice:     price,
		Currency:      cur,
		Quantity:      req.Quantity,
		SelectedSize:  req.SelectedSize,
		SelectedColor: req.SelectedColor,
	})
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidItem), errors.Is(err, cart.ErrInvalidQuantity),
			errors.Is(err, currency.ErrUnknownCurrency):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to add item")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toCartItemResponse(*item))
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemID")

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if err := h.Carts.UpdateQuantity(r.Context(), key, itemID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidItem), errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update quantity")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemID")

	if err := h.Carts.RemoveItem(r.Context(), key, itemID); err != nil {
		if errors.Is(err, cart.ErrInvalidItem) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to remove item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	if err := h.Carts.Clear(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	st, err := h.Checkout.Begin(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start checkout")
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(st, nil))
}

func (h *Handler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	var req shippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	st, err := h.Checkout.SubmitShipping(key, order.ShippingAddress{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		City:     req.City,
		State:    req.State,
		ZipCode:  req.ZipCode,
		Country:  req.Country,
		Notes:    req.Notes,
	})
	if err != nil {
		var verr *order.ValidationError
		switch {
		case errors.As(err, &verr):
			resp := toStateResponse(st, err)
			resp.Fields = verr.Fields
			writeJSON(w, http.StatusBadRequest, resp)
		case errors.Is(err, checkout.ErrWrongStep):
			writeJSON(w, http.StatusConflict, toStateResponse(st, err))
		default:
			writeError(w, http.StatusInternalServerError, "failed to submit shipping")
		}
		return
	}

	writeJSON(w, http.StatusOK, toStateResponse(st, nil))
}

func (h *Handler) CheckoutBack(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	st, err := h.Checkout.Back(key)
	if err != nil {
		if errors.Is(err, checkout.ErrWrongStep) {
			writeJSON(w, http.StatusConflict, toStateResponse(st, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to go back")
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(st, nil))
}

func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	st, err := h.Checkout.Submit(r.Context(), key)
	if err != nil {
		writeJSON(w, submitStatus(err), toStateResponse(st, err))
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(st, nil))
}

func (h *Handler) CheckoutState(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	st, err := h.Checkout.State(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load checkout state")
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(st, nil))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	orders, err := h.Orders.GetOrdersForUser(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "orderID")

	o, err := h.Orders.Cancel(r.Context(), key, orderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "order can no longer be cancelled")
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel order")
		}
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ConvertRate converts an amount between currencies, or to a USD
// reference value when "to" is omitted.
func (h *Handler) ConvertRate(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	from, err := currency.Parse(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown currency")
		return
	}

	var converted decimal.Decimal
	target := r.URL.Query().Get("to")
	if target == "" || target == "USD" {
		converted, err = h.Rates.ConvertToUSD(r.Context(), amount, from)
		target = "USD"
	} else {
		var to currency.Currency
		to, err = currency.Parse(target)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown currency")
			return
		}
		converted, err = h.Rates.ConvertBetween(r.Context(), amount, from, to)
	}
	if err != nil {
		if errors.Is(err, exchange.ErrRateUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "exchange rate unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "conversion failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"amount": amount.String(),
		"from":   from.String(),
		"to":     target,
		"result": converted.String(),
	})
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, checkout.ErrWrongStep), errors.Is(err, checkout.ErrNoShippingInfo):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrCartEmpty), errors.Is(err, checkout.ErrMixedCurrencies):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, payment.ErrSigningRejected):
		return http.StatusForbidden
	case errors.Is(err, payment.ErrNotConnected):
		return http.StatusPreconditionFailed
	case errors.Is(err, payment.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func toCartItemResponse(item cart.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:            item.ID,
		ProductID:     item.ProductID,
		ProductName:   item.ProductName,
		ProductImage:  item.ProductImage,
		ShopName:      item.ShopName,
		UnitPrice:     item.UnitPrice.String(),
		Currency:      item.Currency.String(),
		Quantity:      item.Quantity,
		LineTotal:     item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).String(),
		SelectedSize:  item.SelectedSize,
		SelectedColor: item.SelectedColor,
	}
}

func toStateResponse(st checkout.State, err error) checkoutStateResponse {
	resp := checkoutStateResponse{
		Step:      string(st.Step),
		OrderID:   st.OrderID,
		TxHash:    st.TxHash,
		LastError: st.LastError,
	}
	if err != nil {
		recoverable := checkout.IsRecoverable(err)
		resp.Recoverable = &recoverable
	}
	return resp
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		Status:      string(o.Status),
		Currency:    o.Currency.String(),
		TotalAmount: o.TotalAmount.String(),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		Items:       make([]orderItemResponse, 0, len(o.Items)),
	}
	if o.PaymentTxHash != nil {
		resp.PaymentTxHash = *o.PaymentTxHash
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			ProductImage:  item.ProductImage,
			ShopName:      item.ShopName,
			UnitPrice:     item.UnitPrice.String(),
			Quantity:      item.Quantity,
			SelectedSize:  item.SelectedSize,
			SelectedColor: item.SelectedColor,
		})
	}
	return resp
}
