// Package marketdata wraps the external quote and fundamentals providers,
// applies the cache layer, and normalizes responses for the dashboard.
package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/infra"
)

// FinnhubClient is the primary quote/profile/metrics provider.
type FinnhubClient struct {
	baseURL string
	key     string
	hc      *http.Client
}

// NewFinnhubClient creates a client for the primary provider.
func NewFinnhubClient(cfg config.ProviderConfig, hc *http.Client) *FinnhubClient {
	return &FinnhubClient{baseURL: cfg.BaseURL, key: cfg.Key, hc: hc}
}

// FinnhubQuote is the raw quote payload. Price is a pointer: a missing or
// null "c" field is the provider's way of saying the symbol had no data, and
// must be distinguishable from a legitimate zero price.
type FinnhubQuote struct {
	Price     *float64 `json:"c"`
	Change    float64  `json:"d"`
	ChangePct float64  `json:"dp"`
	PrevClose float64  `json:"pc"`
	High      float64  `json:"h"`
	Low       float64  `json:"l"`
	Open      float64  `json:"o"`
}

// FinnhubProfile is the raw company profile payload.
type FinnhubProfile struct {
	Name      string  `json:"name"`
	Currency  string  `json:"currency"`
	Exchange  string  `json:"exchange"`
	Industry  string  `json:"finnhubIndustry"`
	MarketCap float64 `json:"marketCapitalization"` // in millions
	Logo      string  `json:"logo"`
	WebURL    string  `json:"weburl"`
}

// MetricData carries the ratio fields used for screening. The provider
// reports yield, payout ratio, and ROE as percentages; the *Fraction helpers
// convert them. Nil means the provider did not report the figure.
type MetricData struct {
	PEBasicExclExtraTTM         *float64 `json:"peBasicExclExtraTTM"`
	DividendYieldIndicatedAnnual *float64 `json:"dividendYieldIndicatedAnnual"`
	PayoutRatioTTM              *float64 `json:"payoutRatioTTM"`
	DebtEquityRatioTTM          *float64 `json:"debtEquityRatioTTM"`
	ReturnOnEquityTTM           *float64 `json:"returnOnEquityTTM"`
	MarketCapitalization        *float64 `json:"marketCapitalization"` // in millions
}

// YieldFraction converts the percent-scaled dividend yield to a fraction.
func (m MetricData) YieldFraction() *float64 { return percentToFraction(m.DividendYieldIndicatedAnnual) }

// PayoutFraction converts the percent-scaled payout ratio to a fraction.
func (m MetricData) PayoutFraction() *float64 { return percentToFraction(m.PayoutRatioTTM) }

// ROEFraction converts the percent-scaled return on equity to a fraction.
func (m MetricData) ROEFraction() *float64 { return percentToFraction(m.ReturnOnEquityTTM) }

func percentToFraction(p *float64) *float64 {
	if p == nil {
		return nil
	}
	f := *p / 100
	return &f
}

// DividendPayment is one historical payout.
type DividendPayment struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Amount float64 `json:"amount"`
}

// ScreenerRow is one symbol from the bulk screener endpoint.
type ScreenerRow struct {
	Symbol string `json:"symbol"`
}

// Quote fetches the raw quote for symbol.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (FinnhubQuote, error) {
	var q FinnhubQuote
	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s", c.baseURL, url.QueryEscape(symbol), c.key)
	if err := infra.GetJSON(ctx, c.hc, u, &q); err != nil {
		return FinnhubQuote{}, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	return q, nil
}

// Profile fetches the raw company profile for symbol.
func (c *FinnhubClient) Profile(ctx context.Context, symbol string) (FinnhubProfile, error) {
	var p FinnhubProfile
	u := fmt.Sprintf("%s/stock/profile2?symbol=%s&token=%s", c.baseURL, url.QueryEscape(symbol), c.key)
	if err := infra.GetJSON(ctx, c.hc, u, &p); err != nil {
		return FinnhubProfile{}, fmt.Errorf("finnhub profile %s: %w", symbol, err)
	}
	return p, nil
}

// Metrics fetches the full metric set for symbol.
func (c *FinnhubClient) Metrics(ctx context.Context, symbol string) (MetricData, error) {
	var resp struct {
		Metric MetricData `json:"metric"`
	}
	u := fmt.Sprintf("%s/stock/metric?symbol=%s&metric=all&token=%s", c.baseURL, url.QueryEscape(symbol), c.key)
	if err := infra.GetJSON(ctx, c.hc, u, &resp); err != nil {
		return MetricData{}, fmt.Errorf("finnhub metrics %s: %w", symbol, err)
	}
	return resp.Metric, nil
}

// Dividends fetches the payout history for symbol between from and to.
func (c *FinnhubClient) Dividends(ctx context.Context, symbol string, from, to time.Time) ([]DividendPayment, error) {
	var payouts []DividendPayment
	u := fmt.Sprintf("%s/stock/dividend?symbol=%s&from=%s&to=%s&token=%s",
		c.baseURL, url.QueryEscape(symbol), from.Format("2006-01-02"), to.Format("2006-01-02"), c.key)
	if err := infra.GetJSON(ctx, c.hc, u, &payouts); err != nil {
		return nil, fmt.Errorf("finnhub dividends %s: %w", symbol, err)
	}
	return payouts, nil
}

// Screen runs the bulk screener with a market-cap floor and a minimum
// indicated dividend yield (as a percentage).
func (c *FinnhubClient) Screen(ctx context.Context, minMarketCap, minYieldPct float64) ([]ScreenerRow, error) {
	var resp struct {
		Result []ScreenerRow `json:"result"`
	}
	u := fmt.Sprintf("%s/stock/screener?marketCapMoreThan=%v&dividendMoreThan=%v&token=%s",
		c.baseURL, minMarketCap, minYieldPct, c.key)
	if err := infra.GetJSON(ctx, c.hc, u, &resp); err != nil {
		return nil, fmt.Errorf("finnhub screener: %w", err)
	}
	return resp.Result, nil
}
