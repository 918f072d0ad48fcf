package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/infra"
)

// FMPClient is the secondary fundamentals provider.
type FMPClient struct {
	baseURL string
	key     string
	hc      *http.Client
}

// NewFMPClient creates a client for the secondary provider.
func NewFMPClient(cfg config.ProviderConfig, hc *http.Client) *FMPClient {
	return &FMPClient{baseURL: cfg.BaseURL, key: cfg.Key, hc: hc}
}

// FMPQuote is the raw quote payload from the secondary provider.
type FMPQuote struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	EPS       *float64 `json:"eps"`
	BookValue *float64 `json:"bookValue"`
	Dividend  *float64 `json:"dividend"`
}

// FMPCashFlow is the raw annual cash-flow payload.
type FMPCashFlow struct {
	FreeCashFlow              float64 `json:"freeCashFlow"`
	WeightedAverageShsOutstanding float64 `json:"weightedAverageShsOutstanding"`
}

// Quote fetches the quote for symbol. The endpoint returns a one-element
// array; an empty array is treated as an error.
func (c *FMPClient) Quote(ctx context.Context, symbol string) (FMPQuote, error) {
	var quotes []FMPQuote
	u := fmt.Sprintf("%s/quote/%s?apikey=%s", c.baseURL, url.PathEscape(symbol), c.key)
	if err := infra.GetJSON(ctx, c.hc, u, &quotes); err != nil {
		return FMPQuote{}, fmt.Errorf("fmp quote %s: %w", symbol, err)
	}
	if len(quotes) == 0 {
		return FMPQuote{}, fmt.Errorf("fmp quote %s: empty result", symbol)
	}
	return quotes[0], nil
}

// CashFlow fetches the latest annual cash-flow statement for symbol.
func (c *FMPClient) CashFlow(ctx context.Context, symbol string) (FMPCashFlow, error) {
	var statements []FMPCashFlow
	u := fmt.Sprintf("%s/cash-flow-statement/%s?period=annual&limit=1&apikey=%s", c.baseURL, url.PathEscape(symbol), c.key)
	if err := infra.GetJSON(ctx, c.hc, u, &statements); err != nil {
		return FMPCashFlow{}, fmt.Errorf("fmp cash flow %s: %w", symbol, err)
	}
	if len(statements) == 0 {
		return FMPCashFlow{}, fmt.Errorf("fmp cash flow %s: empty result", symbol)
	}
	return statements[0], nil
}
