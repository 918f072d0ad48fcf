package api

import (
	"net/http"
	"time"
)

// ConfigView is the sanitized configuration returned by GET /api/v1/config.
// Provider keys are reported only as configured/missing, never echoed.
type ConfigView struct {
	Providers struct {
		FinnhubKeySet bool `json:"finnhub_key_set"`
		FMPKeySet     bool `json:"fmp_key_set"`
	} `json:"providers"`
	Cache struct {
		RedisConfigured bool          `json:"redis_configured"`
		PriceTTL        time.Duration `json:"price_ttl"`
		ProfileTTL      time.Duration `json:"profile_ttl"`
		HistoricalTTL   time.Duration `json:"historical_ttl"`
		FeaturedTTL     time.Duration `json:"featured_ttl"`
		FundamentalTTL  time.Duration `json:"fundamental_ttl"`
	} `json:"cache"`
	Limiter struct {
		CallsPerMinute int           `json:"calls_per_minute"`
		MinSpacing     time.Duration `json:"min_spacing"`
		BatchStagger   time.Duration `json:"batch_stagger"`
	} `json:"limiter"`
	Watchlist struct {
		FeaturedSymbols []string `json:"featured_symbols"`
		IndexSymbols    []string `json:"index_symbols"`
	} `json:"watchlist"`
	Dividend struct {
		PortfolioSize int `json:"portfolio_size"`
		MaxCandidates int `json:"max_candidates"`
	} `json:"dividend"`
}

// handleGetConfig returns the running configuration with secrets redacted.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var view ConfigView
	view.Providers.FinnhubKeySet = s.cfg.Providers.Finnhub.Key != ""
	view.Providers.FMPKeySet = s.cfg.Providers.FMP.Key != ""
	view.Cache.RedisConfigured = s.cfg.Cache.RedisURL != ""
	view.Cache.PriceTTL = s.cfg.Cache.PriceTTL
	view.Cache.ProfileTTL = s.cfg.Cache.ProfileTTL
	view.Cache.HistoricalTTL = s.cfg.Cache.HistoricalTTL
	view.Cache.FeaturedTTL = s.cfg.Cache.FeaturedTTL
	view.Cache.FundamentalTTL = s.cfg.Cache.FundamentalTTL
	view.Limiter.CallsPerMinute = s.cfg.Limiter.CallsPerMinute
	view.Limiter.MinSpacing = s.cfg.Limiter.MinSpacing
	view.Limiter.BatchStagger = s.cfg.Limiter.BatchStagger
	view.Watchlist.FeaturedSymbols = s.cfg.Watchlist.FeaturedSymbols
	view.Watchlist.IndexSymbols = s.cfg.Watchlist.IndexSymbols
	view.Dividend.PortfolioSize = s.cfg.Dividend.PortfolioSize
	view.Dividend.MaxCandidates = s.cfg.Dividend.MaxCandidates

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: view})
}
