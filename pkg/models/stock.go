// Package models defines the core data structures used throughout Oakdash.
package models

import "time"

// Provenance records how a data record was obtained.
type Provenance string

const (
	// ProvenanceFresh marks data fetched from a provider during this call.
	ProvenanceFresh Provenance = "fresh"
	// ProvenanceCached marks data served from a local cache.
	ProvenanceCached Provenance = "cached"
	// ProvenanceEstimated marks data filled in from fallback defaults.
	ProvenanceEstimated Provenance = "estimated"
)

// Quote represents a real-time quote from the primary provider.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	PrevClose float64   `json:"prev_close"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Open      float64   `json:"open"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile represents company reference data from the primary provider.
type Profile struct {
	Name       string  `json:"name"`
	Currency   string  `json:"currency"`
	Exchange   string  `json:"exchange"`
	Sector     string  `json:"sector"`
	MarketCap  float64 `json:"market_cap"` // raw value in account currency
	LogoURL    string  `json:"logo_url,omitempty"`
	WebsiteURL string  `json:"website_url,omitempty"`
}

// Fundamentals holds per-share fundamental figures. All fields are pointers:
// nil means the provider did not supply the value, which is distinct from zero.
type Fundamentals struct {
	EPS          *float64 `json:"eps"`
	PERatio      *float64 `json:"pe_ratio"`
	BookValue    *float64 `json:"book_value"`
	FCFPerShare  *float64 `json:"fcf_per_share"`
	FreeCashFlow *float64 `json:"free_cash_flow"`
}

// CombinedStock merges a quote with profile data and fundamental placeholders.
// It is only constructed when the quote carried a valid numeric price; profile
// fields degrade to defaults independently of the quote.
type CombinedStock struct {
	Symbol         string       `json:"symbol"`
	CompanyName    string       `json:"company_name"`
	CurrentPrice   float64      `json:"current_price"`
	DailyChange    float64      `json:"daily_change"`
	DailyChangePct float64      `json:"daily_change_percent"`
	PreviousClose  float64      `json:"previous_close"`
	High           float64      `json:"high"`
	Low            float64      `json:"low"`
	Open           float64      `json:"open"`
	Currency       string       `json:"currency"`
	Exchange       string       `json:"exchange"`
	Sector         string       `json:"sector"`
	MarketCap      *float64     `json:"market_cap"` // nil when the profile had none
	LogoURL        string       `json:"logo,omitempty"`
	WebsiteURL     string       `json:"website,omitempty"`
	Fundamentals   Fundamentals `json:"fundamentals"`
	Dividend       *float64     `json:"dividend"`
	DataSource     string       `json:"data_source"`
	Provenance     Provenance   `json:"provenance"`
	LastUpdated    time.Time    `json:"last_updated"`
}

// IndexQuote is the compact quote shape returned for market indices.
type IndexQuote struct {
	Price     float64 `json:"current_price"`
	Change    float64 `json:"daily_change"`
	ChangePct float64 `json:"daily_change_percent"`
}

// FundamentalsQuote is the quote shape returned by the secondary provider,
// carrying the per-share figures the primary provider's free tier lacks.
// Pointer fields are nil when the value is unavailable (e.g. after falling
// back to the primary provider, which supplies price and name only).
type FundamentalsQuote struct {
	Symbol         string   `json:"symbol"`
	CompanyName    string   `json:"company_name"`
	CurrentPrice   float64  `json:"current_price"`
	EPS            *float64 `json:"eps"`
	BookValue      *float64 `json:"book_value"`
	DividendAnnual *float64 `json:"dividend_annual"`
}

// HistoricalAnalysis holds long-horizon assumptions used by the valuation
// calculators. When no real historical series has been computed the record
// carries conservative defaults and Calculated is false.
type HistoricalAnalysis struct {
	Symbol            string  `json:"symbol"`
	HistoricalEPSGrowth float64 `json:"historical_eps_growth"` // percent
	ConservativePE    float64 `json:"conservative_pe_ratio"`
	MaxPE             float64 `json:"max_pe_ratio"`
	Calculated        bool    `json:"calculated"`
	YearsOfEPSData    int     `json:"years_of_eps_data"`
	Source            string  `json:"source"`
	Note              string  `json:"note,omitempty"`
}

// SearchResult is a minimal profile entry from the static search universe.
type SearchResult struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Sector      string `json:"sector"`
}

// NewsItem is a single market headline from an RSS news source.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}
