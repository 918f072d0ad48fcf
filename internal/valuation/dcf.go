// Package valuation implements the intrinsic-value calculators: a
// three-scenario discounted-cash-flow model, a ten-year P/E-reversion
// return projection, and a savings-goal contribution solver.
package valuation

import (
	"errors"
	"math"
)

// DCFInput are the per-share assumptions for a discounted-cash-flow run.
// Rates are fractions (0.08 for 8%).
type DCFInput struct {
	FCFPerShare        float64 `json:"fcf_per_share"`
	GrowthRate         float64 `json:"growth_rate"`
	DiscountRate       float64 `json:"discount_rate"`
	TerminalGrowthRate float64 `json:"terminal_growth_rate"`
	Years              int     `json:"projection_years"`
}

// DCFProjection is one projected year of the base scenario.
type DCFProjection struct {
	Year         int     `json:"year"`
	ProjectedFCF float64 `json:"projected_fcf"`
	PresentValue float64 `json:"present_value"`
}

// DCFScenario is the outcome of one growth/discount assumption pair.
type DCFScenario struct {
	IntrinsicValue float64         `json:"intrinsic_value"`
	PVOfCashFlows  float64         `json:"pv_of_cash_flows"`
	PVOfTerminal   float64         `json:"pv_of_terminal"`
	TerminalValue  float64         `json:"terminal_value"`
	GrowthRate     float64         `json:"growth_rate"`
	DiscountRate   float64         `json:"discount_rate"`
	Projections    []DCFProjection `json:"projections"`
}

// DCFResult bundles the base scenario with a conservative and an optimistic
// variant, plus the value range they span.
type DCFResult struct {
	Base         DCFScenario `json:"base"`
	Conservative DCFScenario `json:"conservative"`
	Optimistic   DCFScenario `json:"optimistic"`
	RangeMin     float64     `json:"range_min"`
	RangeMax     float64     `json:"range_max"`
}

var (
	ErrNonPositiveFCF   = errors.New("fcf per share must be positive")
	ErrTerminalExceeds  = errors.New("discount rate must exceed terminal growth rate")
	ErrNonPositiveYears = errors.New("projection years must be positive")
)

// RunDCF computes intrinsic value per share under three scenarios. The
// conservative case lowers growth by 2pp (floored at 1%) and raises the
// discount rate by 1pp; the optimistic case raises growth by 2pp and lowers
// the discount rate by 0.5pp (floored at 5%). The terminal value uses a
// Gordon growth model on the final projected year.
func RunDCF(in DCFInput) (*DCFResult, error) {
	if in.FCFPerShare <= 0 {
		return nil, ErrNonPositiveFCF
	}
	if in.Years <= 0 {
		return nil, ErrNonPositiveYears
	}
	if in.DiscountRate <= in.TerminalGrowthRate {
		return nil, ErrTerminalExceeds
	}

	base := dcfScenario(in, in.GrowthRate, in.DiscountRate)
	conservative := dcfScenario(in, math.Max(0.01, in.GrowthRate-0.02), in.DiscountRate+0.01)
	optimistic := dcfScenario(in, in.GrowthRate+0.02, math.Max(0.05, in.DiscountRate-0.005))

	return &DCFResult{
		Base:         base,
		Conservative: conservative,
		Optimistic:   optimistic,
		RangeMin:     conservative.IntrinsicValue,
		RangeMax:     optimistic.IntrinsicValue,
	}, nil
}

// Recommendation grades a DCF outcome against the current market price.
type Recommendation struct {
	Verdict        string  `json:"verdict"`
	MarginOfSafety float64 `json:"margin_of_safety"` // vs the base case, fraction of price
}

// Recommend derives a buy/hold/sell verdict from the margin of safety. The
// buy thresholds are judged against the conservative case, the sell
// thresholds against the base case.
func Recommend(res *DCFResult, currentPrice float64) Recommendation {
	marginOfSafety := (res.Base.IntrinsicValue - currentPrice) / currentPrice
	conservativeMargin := (res.RangeMin - currentPrice) / currentPrice

	verdict := "Strong Sell"
	switch {
	case conservativeMargin > 0.25:
		verdict = "Strong Buy"
	case conservativeMargin > 0.10:
		verdict = "Buy"
	case marginOfSafety > -0.10:
		verdict = "Hold"
	case marginOfSafety > -0.25:
		verdict = "Sell"
	}
	return Recommendation{Verdict: verdict, MarginOfSafety: marginOfSafety}
}

func dcfScenario(in DCFInput, growth, discount float64) DCFScenario {
	var pv float64
	projections := make([]DCFProjection, 0, in.Years)

	for year := 1; year <= in.Years; year++ {
		projected := in.FCFPerShare * math.Pow(1+growth, float64(year))
		pvOfYear := projected / math.Pow(1+discount, float64(year))
		pv += pvOfYear
		projections = append(projections, DCFProjection{
			Year:         year,
			ProjectedFCF: projected,
			PresentValue: pvOfYear,
		})
	}

	finalFCF := in.FCFPerShare * math.Pow(1+growth, float64(in.Years))
	terminal := finalFCF * (1 + in.TerminalGrowthRate) / (discount - in.TerminalGrowthRate)
	pvOfTerminal := terminal / math.Pow(1+discount, float64(in.Years))

	return DCFScenario{
		IntrinsicValue: pv + pvOfTerminal,
		PVOfCashFlows:  pv,
		PVOfTerminal:   pvOfTerminal,
		TerminalValue:  terminal,
		GrowthRate:     growth,
		DiscountRate:   discount,
		Projections:    projections,
	}
}
