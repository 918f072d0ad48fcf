package models

// RiskTolerance selects a named set of screening threshold overrides.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// ScreeningCriteria are the thresholds a dividend candidate is judged against.
type ScreeningCriteria struct {
	MinMarketCap     float64 `json:"min_market_cap"`
	MinYield         float64 `json:"min_yield"` // fraction, e.g. 0.03
	MaxPE            float64 `json:"max_pe"`
	MaxPayoutRatio   float64 `json:"max_payout_ratio"` // fraction
	MaxDebtToEquity  float64 `json:"max_debt_to_equity"`
	MinROE           float64 `json:"min_roe"` // fraction
	MinDividendYears int     `json:"min_dividend_years"`
	MinGrowth        float64 `json:"min_growth"` // fraction
}

// EssentialMetrics is the minimal per-symbol financial snapshot needed for
// screening. A record is created per screening pass and replaced wholesale on
// refresh, never mutated. Pointer fields are nil when the provider did not
// report the figure; missing optional metrics yield warnings, not rejections.
type EssentialMetrics struct {
	Symbol               string   `json:"symbol"`
	Price                float64  `json:"price"`
	MarketCap            float64  `json:"market_cap"`
	PERatio              float64  `json:"pe_ratio"`
	Yield                float64  `json:"yield"` // fraction
	PayoutRatio          *float64 `json:"payout_ratio"`
	DebtToEquity         *float64 `json:"debt_to_equity"`
	ROE                  *float64 `json:"roe"`
	FreeCashFlow         float64  `json:"free_cash_flow"`
	Sector               string   `json:"sector"`
	DividendHistoryYears int      `json:"dividend_history_years"`
	DataAge              string   `json:"data_age"` // "Fresh", "Estimated", or "Nh old"
	FromCache            bool     `json:"from_cache"`
}

// ScreenResult is the outcome of evaluating one candidate against criteria.
// Reasons accumulate; a candidate passes iff it collected none.
type ScreenResult struct {
	Passed   bool              `json:"passed"`
	Reasons  []string          `json:"reasons"`
	Data     *EssentialMetrics `json:"data"`
	Warnings []string          `json:"warnings"`
}

// Candidate is one symbol emitted by the coarse pre-screen pass.
type Candidate struct {
	Symbol string `json:"symbol"`
}

// PortfolioLine is one holding of a generated dividend plan.
type PortfolioLine struct {
	Symbol                 string   `json:"symbol"`
	Sector                 string   `json:"sector"`
	SharesNeeded           float64  `json:"shares_needed"`
	ExpectedAnnualDividend float64  `json:"expected_annual_dividend"`
	PortfolioPercentage    float64  `json:"portfolio_percentage"`
	InvestmentNeeded       float64  `json:"investment_needed"`
	Yield                  float64  `json:"yield"` // percent
	PERatio                float64  `json:"pe_ratio"`
	PayoutRatio            *float64 `json:"payout_ratio"`
	DebtToEquity           *float64 `json:"debt_to_equity"`
	Warnings               []string `json:"warnings"`
	DataAge                string   `json:"data_age,omitempty"`
}

// DataFreshness tallies how each holding's metrics were obtained.
type DataFreshness struct {
	Cached    int `json:"cached"`
	Fresh     int `json:"fresh"`
	Estimated int `json:"estimated"`
}

// DividendPlan is the full output of a plan-generation run.
type DividendPlan struct {
	Portfolio        []PortfolioLine    `json:"portfolio"`
	TotalInvestment  float64            `json:"total_investment"`
	AnnualIncome     float64            `json:"annual_income"`
	PortfolioYield   float64            `json:"portfolio_yield"` // percent
	SectorAllocation map[string]float64 `json:"sector_allocation"`
	DataFreshness    DataFreshness      `json:"data_freshness"`
	Warnings         []string           `json:"warnings"`
}

// Progress reports plan-generation progress to an observer. It has no effect
// on control flow.
type Progress struct {
	Step       int     `json:"step"`
	Total      int     `json:"total"`
	Message    string  `json:"message"`
	Percentage float64 `json:"percentage"`
}
