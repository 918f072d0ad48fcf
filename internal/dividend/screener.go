package dividend

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/blueoak/oakdash/internal/infra"
	"github.com/blueoak/oakdash/internal/marketdata"
	"github.com/blueoak/oakdash/pkg/models"
)

// MarketAPI is the slice of the primary provider the screening pipeline
// needs. *marketdata.FinnhubClient satisfies it.
type MarketAPI interface {
	Quote(ctx context.Context, symbol string) (marketdata.FinnhubQuote, error)
	Metrics(ctx context.Context, symbol string) (marketdata.MetricData, error)
	Screen(ctx context.Context, minMarketCap, minYieldPct float64) ([]marketdata.ScreenerRow, error)
}

// essentialMetrics fetches the minimal metric set for one candidate. The
// metrics and quote calls run concurrently, but each passes through the
// shared rate limiter, so wall-clock parallelism stays bounded by its
// spacing floor.
//
// Degradation order on failure: a stale cached record tagged with its age,
// then an estimated record of named defaults. This function never fails.
func (p *Planner) essentialMetrics(ctx context.Context, symbol string) models.EssentialMetrics {
	cached, haveCached := p.essential.Get(ctx, symbol)
	if haveCached && p.essential.Valid(cached) {
		if m, err := infra.Decode[models.EssentialMetrics](cached); err == nil {
			m.FromCache = true
			return m
		}
	}

	var (
		quote    marketdata.FinnhubQuote
		quoteErr error
		metrics  marketdata.MetricData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quote, quoteErr = infra.QueueDo(gctx, p.queue, func(ctx context.Context) (marketdata.FinnhubQuote, error) {
			return p.api.Quote(ctx, symbol)
		})
		return nil
	})
	g.Go(func() error {
		// A failed metrics call degrades to an empty metric set; only the
		// quote is load-bearing.
		m, err := infra.QueueDo(gctx, p.queue, func(ctx context.Context) (marketdata.MetricData, error) {
			return p.api.Metrics(ctx, symbol)
		})
		if err == nil {
			metrics = m
		}
		return nil
	})
	_ = g.Wait()

	// A zero price is rejected here: screening needs a tradable price to
	// size positions, unlike the plain quote path.
	if quoteErr != nil || quote.Price == nil || *quote.Price == 0 {
		if haveCached {
			if m, err := infra.Decode[models.EssentialMetrics](cached); err == nil {
				m.DataAge = fmt.Sprintf("%dh old", int(p.essential.Age(cached).Hours()))
				m.FromCache = true
				return m
			}
		}
		return marketdata.FallbackMetrics(symbol)
	}

	m := models.EssentialMetrics{
		Symbol:               symbol,
		Price:                *quote.Price,
		MarketCap:            1000 * 1e6,
		PERatio:              20,
		Yield:                0.03,
		FreeCashFlow:         1e6, // provider free tier has no FCF; assume positive
		Sector:               "Unknown",
		DividendHistoryYears: 5,
		DataAge:              "Fresh",
	}
	if metrics.MarketCapitalization != nil && *metrics.MarketCapitalization != 0 {
		m.MarketCap = *metrics.MarketCapitalization * 1e6
	}
	if metrics.PEBasicExclExtraTTM != nil && *metrics.PEBasicExclExtraTTM != 0 {
		m.PERatio = *metrics.PEBasicExclExtraTTM
	}
	if y := metrics.YieldFraction(); y != nil && *y != 0 {
		m.Yield = *y
	}
	if d := metrics.DebtEquityRatioTTM; d != nil && *d != 0 {
		m.DebtToEquity = d
	}
	// A reported zero means the provider has no meaningful figure; treat it
	// as unavailable rather than failing the ratio checks against 0.
	if pr := metrics.PayoutFraction(); pr != nil && *pr != 0 {
		m.PayoutRatio = pr
	}
	if roe := metrics.ROEFraction(); roe != nil && *roe != 0 {
		m.ROE = roe
	}

	_ = p.essential.Set(ctx, symbol, m)
	return m
}

// screenCandidate evaluates one candidate's metrics against the criteria.
// Reject reasons accumulate rather than short-circuiting, so a rejected
// candidate reports everything wrong with it. Optional metrics the provider
// did not supply produce warnings, never rejections.
func screenCandidate(m models.EssentialMetrics, criteria models.ScreeningCriteria) models.ScreenResult {
	result := models.ScreenResult{Data: &m}

	if m.MarketCap < criteria.MinMarketCap {
		result.Reasons = append(result.Reasons, "Market Cap too low")
	}
	if m.Yield < criteria.MinYield {
		result.Reasons = append(result.Reasons, "Yield too low")
	}
	// A zero P/E means the figure is not meaningful, not that the stock is
	// free; skip the check.
	if m.PERatio > criteria.MaxPE && m.PERatio != 0 {
		result.Reasons = append(result.Reasons, "P/E too high")
	}
	if m.PayoutRatio != nil && *m.PayoutRatio > criteria.MaxPayoutRatio {
		result.Reasons = append(result.Reasons, "Payout ratio too high")
	}
	if m.DebtToEquity != nil && *m.DebtToEquity > criteria.MaxDebtToEquity {
		result.Reasons = append(result.Reasons, "Debt/Equity too high")
	}
	if m.ROE != nil && *m.ROE < criteria.MinROE {
		result.Reasons = append(result.Reasons, "ROE too low")
	}
	if m.FreeCashFlow <= 0 {
		result.Reasons = append(result.Reasons, "Negative free cash flow")
	}

	if m.PayoutRatio == nil {
		result.Warnings = append(result.Warnings, "Payout ratio unavailable")
	}
	if m.DebtToEquity == nil {
		result.Warnings = append(result.Warnings, "Debt/Equity unavailable")
	}
	if m.ROE == nil {
		result.Warnings = append(result.Warnings, "ROE unavailable")
	}
	if m.FromCache {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Data from cache (%s)", m.DataAge))
	}

	result.Passed = len(result.Reasons) == 0
	return result
}
