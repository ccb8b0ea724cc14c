package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"solshop-be/internal/currency"
	"solshop-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FixedSource serves rates pinned in configuration. Used when no price
// API is reachable and in tests.
type FixedSource struct {
	Rates map[currency.Currency]decimal.Decimal
}

func (f FixedSource) GetUSDRate(ctx context.Context, c currency.Currency) (Rate, error) {
	usd, ok := f.Rates[c]
	if !ok {
		return Rate{}, fmt.Errorf("no fixed rate for %s", c)
	}
	return Rate{Currency: c, USD: usd, AsOf: time.Now().UTC()}, nil
}

// priceIDs maps native units to the price API's asset ids.
var priceIDs = map[currency.Currency]string{
	currency.SOL:  "solana",
	currency.USDC: "usd-coin",
}

// HTTPSource quotes USD prices from a CoinGecko-compatible price API.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (h *HTTPSource) GetUSDRate(ctx context.Context, c currency.Currency) (Rate, error) {
	id, ok := priceIDs[c]
	if !ok {
		return Rate{}, fmt.Errorf("no price id for %s", c)
	}

	values := url.Values{}
	values.Set("ids", id)
	values.Set("vs_currencies", "usd")
	endpoint := h.baseURL + "/simple/price?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Rate{}, err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		logger.FromCtx(ctx).Warn("rate fetch failed",
			zap.String("currency", c.String()),
			zap.Error(err),
		)
		return Rate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Rate{}, fmt.Errorf("price api status %d", resp.StatusCode)
	}

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Rate{}, err
	}

	quote, ok := body[id]
	if !ok {
		return Rate{}, fmt.Errorf("price api returned no quote for %s", id)
	}

	return Rate{
		Currency: c,
		USD:      decimal.NewFromFloat(quote.USD),
		AsOf:     time.Now().UTC(),
	}, nil
}
