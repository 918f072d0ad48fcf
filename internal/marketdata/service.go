package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/infra"
	"github.com/blueoak/oakdash/pkg/models"
)

// ErrUnavailable is returned by read paths when no data could be obtained.
// It means "no data available now", not a fault the caller should retry or
// surface as an exception; transport details are deliberately not attached.
var ErrUnavailable = errors.New("market data unavailable")

// Defaults used when the profile fetch degrades. Profile failure never fails
// a quote that succeeded.
const (
	defaultCurrency = "USD"
	defaultExchange = "NASDAQ"
	defaultSector   = "Technology"
)

// Service mediates between dashboard consumers and the external providers:
// it checks the cache layer first, issues staggered provider calls on a miss,
// and normalizes responses.
type Service struct {
	finnhub *FinnhubClient
	fmp     *FMPClient

	price      *infra.Cache
	profile    *infra.Cache
	historical *infra.Cache
	featured   *infra.Cache

	// batch paces sequential multi-symbol fetches; it enforces the stagger
	// between provider calls but carries no per-minute cap.
	batch *infra.CallQueue

	featuredSymbols []string
	indexSymbols    []string

	now func() time.Time
}

// NewService wires the provider clients and cache categories.
func NewService(cfg *config.Config, backend infra.Backend, hc *http.Client) *Service {
	if hc == nil {
		hc = infra.NewHTTPClient(cfg.HTTP.Timeout)
	}
	return &Service{
		finnhub:         NewFinnhubClient(cfg.Providers.Finnhub, hc),
		fmp:             NewFMPClient(cfg.Providers.FMP, hc),
		price:           infra.NewCache(backend, "price:", cfg.Cache.PriceTTL),
		profile:         infra.NewCache(backend, "profile:", cfg.Cache.ProfileTTL),
		historical:      infra.NewCache(backend, "historical:", cfg.Cache.HistoricalTTL),
		featured:        infra.NewCache(backend, "featured:", cfg.Cache.FeaturedTTL),
		batch:           infra.NewCallQueue(0, time.Minute, cfg.Limiter.BatchStagger),
		featuredSymbols: cfg.Watchlist.FeaturedSymbols,
		indexSymbols:    cfg.Watchlist.IndexSymbols,
		now:             time.Now,
	}
}

// Finnhub exposes the primary provider client for the screening pipeline.
func (s *Service) Finnhub() *FinnhubClient { return s.finnhub }

// FetchQuoteAndProfile returns the combined quote and profile for symbol.
//
// The quote half is hard: a missing, null, or NaN price means the whole call
// returns ErrUnavailable (a zero price is a valid number). The profile half is
// soft: any profile failure degrades to named defaults. Network errors on
// either half never propagate.
func (s *Service) FetchQuoteAndProfile(ctx context.Context, symbol string) (*models.CombinedStock, error) {
	quote, quoteCached := s.quoteFor(ctx, symbol)
	profile := s.profileFor(ctx, symbol)

	if quote.Price == nil || math.IsNaN(*quote.Price) {
		return nil, fmt.Errorf("%w: %s has no valid price", ErrUnavailable, symbol)
	}

	stock := &models.CombinedStock{
		Symbol:         symbol,
		CompanyName:    symbol + " Inc.",
		CurrentPrice:   *quote.Price,
		DailyChange:    quote.Change,
		DailyChangePct: quote.ChangePct,
		PreviousClose:  quote.PrevClose,
		High:           quote.High,
		Low:            quote.Low,
		Open:           quote.Open,
		Currency:       defaultCurrency,
		Exchange:       defaultExchange,
		Sector:         defaultSector,
		DataSource:     "Finnhub",
		Provenance:     models.ProvenanceFresh,
		LastUpdated:    s.now(),
	}
	if quoteCached {
		stock.Provenance = models.ProvenanceCached
	}

	if profile.Name != "" {
		stock.CompanyName = profile.Name
	}
	if profile.Currency != "" {
		stock.Currency = profile.Currency
	}
	if profile.Exchange != "" {
		stock.Exchange = profile.Exchange
	}
	if profile.Industry != "" {
		stock.Sector = profile.Industry
	}
	if profile.MarketCap != 0 {
		cap := profile.MarketCap * 1e6 // provider reports millions
		stock.MarketCap = &cap
	}
	stock.LogoURL = profile.Logo
	stock.WebsiteURL = profile.WebURL

	return stock, nil
}

// quoteFor returns the cached quote when fresh, otherwise fetches one. A
// fetched quote is cached only when it carries a valid price. Failures yield
// a zero-value quote whose nil price marks it invalid.
func (s *Service) quoteFor(ctx context.Context, symbol string) (FinnhubQuote, bool) {
	if e, ok := s.price.Fresh(ctx, symbol); ok {
		if q, err := infra.Decode[FinnhubQuote](e); err == nil {
			return q, true
		}
	}
	q, err := s.finnhub.Quote(ctx, symbol)
	if err != nil {
		return FinnhubQuote{}, false
	}
	if q.Price != nil && !math.IsNaN(*q.Price) {
		_ = s.price.Set(ctx, symbol, q)
	}
	return q, false
}

// profileFor returns the cached profile when fresh, otherwise fetches one.
// Failures yield an empty profile; callers substitute defaults.
func (s *Service) profileFor(ctx context.Context, symbol string) FinnhubProfile {
	if e, ok := s.profile.Fresh(ctx, symbol); ok {
		if p, err := infra.Decode[FinnhubProfile](e); err == nil {
			return p
		}
	}
	p, err := s.finnhub.Profile(ctx, symbol)
	if err != nil {
		return FinnhubProfile{}
	}
	_ = s.profile.Set(ctx, symbol, p)
	return p
}

// GetFeaturedStocks returns the featured watchlist. On a cache miss, or when
// forceRefresh is set, the fixed symbol list is fetched sequentially through
// the batch queue, collecting only the symbols that yielded data. An
// all-failed pass is never cached, so the next call retries immediately.
func (s *Service) GetFeaturedStocks(ctx context.Context, forceRefresh bool) []models.CombinedStock {
	const cacheKey = "watchlist"
	if !forceRefresh {
		if e, ok := s.featured.Fresh(ctx, cacheKey); ok {
			if stocks, err := infra.Decode[[]models.CombinedStock](e); err == nil {
				return stocks
			}
		}
	}

	results := make([]models.CombinedStock, 0, len(s.featuredSymbols))
	for _, symbol := range s.featuredSymbols {
		stock, err := infra.QueueDo(ctx, s.batch, func(ctx context.Context) (*models.CombinedStock, error) {
			return s.FetchQuoteAndProfile(ctx, symbol)
		})
		if err != nil || stock == nil {
			continue
		}
		results = append(results, *stock)
	}

	if len(results) > 0 {
		_ = s.featured.Set(ctx, cacheKey, results)
	}
	return results
}

// GetMarketIndices fetches the fixed index list sequentially through the
// batch queue. Per-symbol failures are skipped, never aborting the batch.
func (s *Service) GetMarketIndices(ctx context.Context) map[string]models.IndexQuote {
	results := make(map[string]models.IndexQuote)
	for _, symbol := range s.indexSymbols {
		stock, err := infra.QueueDo(ctx, s.batch, func(ctx context.Context) (*models.CombinedStock, error) {
			return s.FetchQuoteAndProfile(ctx, symbol)
		})
		if err != nil || stock == nil {
			continue
		}
		results[symbol] = models.IndexQuote{
			Price:     stock.CurrentPrice,
			Change:    stock.DailyChange,
			ChangePct: stock.DailyChangePct,
		}
	}
	return results
}

// SearchStocks matches query case-insensitively against the static reference
// universe, on symbol or company name. Queries under two characters return
// nothing.
func (s *Service) SearchStocks(query string) []models.SearchResult {
	if len(query) < 2 {
		return nil
	}
	q := strings.ToLower(query)
	var out []models.SearchResult
	for _, entry := range referenceUniverse {
		if strings.Contains(strings.ToLower(entry.Symbol), q) ||
			strings.Contains(strings.ToLower(entry.CompanyName), q) {
			out = append(out, entry)
		}
	}
	return out
}

// GetFMPQuote returns the fundamentals quote from the secondary provider,
// falling back to the primary provider for price and name only. Unlike the
// other read paths this one propagates an error when both providers fail:
// callers need to know fundamentals are entirely unavailable.
func (s *Service) GetFMPQuote(ctx context.Context, symbol string) (*models.FundamentalsQuote, error) {
	quote, fmpErr := s.fmp.Quote(ctx, symbol)
	if fmpErr == nil {
		name := quote.Name
		if name == "" {
			name = symbol + " Inc."
		}
		price := 0.0
		if quote.Price != nil {
			price = *quote.Price
		}
		dividend := 0.0
		if quote.Dividend != nil {
			dividend = *quote.Dividend
		}
		return &models.FundamentalsQuote{
			Symbol:         nonEmpty(quote.Symbol, symbol),
			CompanyName:    name,
			CurrentPrice:   price,
			EPS:            quote.EPS,
			BookValue:      quote.BookValue,
			DividendAnnual: &dividend,
		}, nil
	}

	stock, err := s.FetchQuoteAndProfile(ctx, symbol)
	if err != nil {
		// Both providers failed: surface the original secondary-provider
		// error, not the fallback's.
		return nil, fmpErr
	}
	return &models.FundamentalsQuote{
		Symbol:       stock.Symbol,
		CompanyName:  stock.CompanyName,
		CurrentPrice: stock.CurrentPrice,
	}, nil
}

// GetHistoricalAnalysisData is cache-only: on a miss it stores and returns a
// fixed conservative-default payload. No historical endpoint is called; the
// defaults exist so the valuation calculators always have assumptions to
// start from.
func (s *Service) GetHistoricalAnalysisData(ctx context.Context, symbol string) models.HistoricalAnalysis {
	if e, ok := s.historical.Fresh(ctx, symbol); ok {
		if h, err := infra.Decode[models.HistoricalAnalysis](e); err == nil {
			return h
		}
	}
	h := models.HistoricalAnalysis{
		Symbol:              symbol,
		HistoricalEPSGrowth: 6,
		ConservativePE:      15,
		MaxPE:               25,
		Calculated:          false,
		YearsOfEPSData:      0,
		Source:              "Conservative Defaults",
		Note:                "Manually adjust P/E assumptions based on your research",
	}
	_ = s.historical.Set(ctx, symbol, h)
	return h
}

// GetComprehensiveMetrics assembles a best-effort metrics record for symbol
// from the quote/profile, metric, and dividend-history endpoints. Every
// external call is independently guarded: any subset may fail and the record
// is still returned, populated with named fallback constants. This function
// never fails for network reasons.
func (s *Service) GetComprehensiveMetrics(ctx context.Context, symbol string) models.EssentialMetrics {
	cacheKey := "comprehensive:" + symbol
	if e, ok := s.profile.Fresh(ctx, cacheKey); ok {
		if m, err := infra.Decode[models.EssentialMetrics](e); err == nil {
			m.FromCache = true
			return m
		}
	}

	m := FallbackMetrics(symbol)

	stock, err := infra.QueueDo(ctx, s.batch, func(ctx context.Context) (*models.CombinedStock, error) {
		return s.FetchQuoteAndProfile(ctx, symbol)
	})
	if err == nil && stock != nil {
		// Only a live quote earns fresh provenance; an all-fallback record
		// keeps the estimated label from FallbackMetrics.
		m.DataAge = "Fresh"
		if stock.CurrentPrice != 0 {
			m.Price = stock.CurrentPrice
		}
		if stock.MarketCap != nil {
			m.MarketCap = *stock.MarketCap
		}
		if stock.Sector != "" {
			m.Sector = stock.Sector
		}
	}

	metrics, err := infra.QueueDo(ctx, s.batch, func(ctx context.Context) (MetricData, error) {
		return s.finnhub.Metrics(ctx, symbol)
	})
	if err == nil {
		if metrics.PEBasicExclExtraTTM != nil {
			m.PERatio = *metrics.PEBasicExclExtraTTM
		}
		if y := metrics.YieldFraction(); y != nil {
			m.Yield = *y
		}
		// Zero ratios mean the provider has nothing to report; keep them nil
		// so downstream checks treat them as unavailable.
		if p := metrics.PayoutFraction(); p != nil && *p != 0 {
			m.PayoutRatio = p
		}
		if d := metrics.DebtEquityRatioTTM; d != nil && *d != 0 {
			m.DebtToEquity = d
		}
		if r := metrics.ROEFraction(); r != nil && *r != 0 {
			m.ROE = r
		}
	}

	payouts, err := infra.QueueDo(ctx, s.batch, func(ctx context.Context) ([]DividendPayment, error) {
		return s.finnhub.Dividends(ctx, symbol, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), s.now())
	})
	if err == nil && len(payouts) > 0 {
		m.DividendHistoryYears = distinctPayoutYears(payouts)
	}

	// The primary provider's free tier has no cash-flow data; the secondary
	// one does. A failure here leaves the assumed-positive fallback in place.
	cashFlow, err := infra.QueueDo(ctx, s.batch, func(ctx context.Context) (FMPCashFlow, error) {
		return s.fmp.CashFlow(ctx, symbol)
	})
	if err == nil && cashFlow.FreeCashFlow != 0 {
		m.FreeCashFlow = cashFlow.FreeCashFlow
	}

	_ = s.profile.Set(ctx, cacheKey, m)
	return m
}

// ClearCaches empties every cache category owned by the service.
func (s *Service) ClearCaches(ctx context.Context) {
	_ = s.price.Flush(ctx)
	_ = s.profile.Flush(ctx)
	_ = s.historical.Flush(ctx)
	_ = s.featured.Flush(ctx)
}

// FallbackMetrics returns the named fallback constants used when a symbol's
// metrics cannot be fetched at all.
func FallbackMetrics(symbol string) models.EssentialMetrics {
	return models.EssentialMetrics{
		Symbol:               symbol,
		Price:                100,
		MarketCap:            1e9,
		PERatio:              20,
		Yield:                0.03,
		FreeCashFlow:         1e6, // provider free tier has no FCF; assume positive
		Sector:               "Unknown",
		DividendHistoryYears: 5,
		DataAge:              "Estimated",
	}
}

// distinctPayoutYears counts distinct calendar years with at least one payout.
func distinctPayoutYears(payouts []DividendPayment) int {
	years := make(map[string]struct{})
	for _, p := range payouts {
		if len(p.Date) >= 4 {
			years[p.Date[:4]] = struct{}{}
		}
	}
	return len(years)
}

func nonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
