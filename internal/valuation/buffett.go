package valuation

import "math"

// projectionYears is the horizon of the P/E-reversion return model.
const projectionYears = 10

// BuffettInput holds the current figures and growth assumptions for a
// ten-year return projection. Growth rates are percentages (8 for 8%).
type BuffettInput struct {
	Price          float64 `json:"price"`
	EPS            float64 `json:"eps"`
	Dividend       float64 `json:"dividend"` // annual, per share
	EPSGrowth      float64 `json:"eps_growth_pct"`
	DividendGrowth float64 `json:"dividend_growth_pct"`
}

// BuffettResult is one projected outcome at an assumed exit P/E.
type BuffettResult struct {
	IRR                  float64 `json:"irr"` // fraction
	TotalFutureValue     float64 `json:"total_future_value"`
	ProjectedFuturePrice float64 `json:"projected_future_price"`
	TotalDividends       float64 `json:"total_dividends"`
}

// BuffettScenario labels a result with the exit P/E that produced it.
type BuffettScenario struct {
	Label       string        `json:"label"`
	PE          float64       `json:"pe"`
	Result      BuffettResult `json:"result"`
	FuturePrice float64       `json:"future_price"`
}

// ProjectReturn estimates the annualized return of holding for ten years and
// selling at futurePE. The cash flows are ten years of growing dividends
// plus the exit price in year ten; the IRR is solved by bisection against
// the current price. A non-positive price yields IRR -1, meaning the
// position is priced as a total loss.
func ProjectReturn(in BuffettInput, futurePE float64) BuffettResult {
	if in.Price <= 0 {
		return BuffettResult{IRR: -1}
	}

	epsGrowth := in.EPSGrowth / 100
	divGrowth := in.DividendGrowth / 100

	projectedEPS := in.EPS * math.Pow(1+epsGrowth, projectionYears)
	futurePrice := projectedEPS * futurePE

	var totalDividends float64
	cashFlows := make([]float64, projectionYears)
	for year := 1; year <= projectionYears; year++ {
		dividend := in.Dividend * math.Pow(1+divGrowth, float64(year))
		totalDividends += dividend
		cashFlows[year-1] = dividend
	}
	cashFlows[projectionYears-1] += futurePrice

	low, high := -0.99, 2.0
	for i := 0; i < 100; i++ {
		mid := (low + high) / 2
		if mid == low || mid == high {
			break
		}
		var npv float64
		for j, cf := range cashFlows {
			npv += cf / math.Pow(1+mid, float64(j+1))
		}
		if npv > in.Price {
			low = mid
		} else {
			high = mid
		}
	}

	return BuffettResult{
		IRR:                  (low + high) / 2,
		TotalFutureValue:     futurePrice + totalDividends,
		ProjectedFuturePrice: futurePrice,
		TotalDividends:       totalDividends,
	}
}

// ProjectScenarios runs the return projection at each exit P/E assumption.
// NaN assumptions are skipped, so the result may hold fewer scenarios than
// were requested.
func ProjectScenarios(in BuffettInput, conservativePE, maxPE, avgPE float64) []BuffettScenario {
	var scenarios []BuffettScenario
	add := func(label string, pe float64) {
		if math.IsNaN(pe) {
			return
		}
		r := ProjectReturn(in, pe)
		scenarios = append(scenarios, BuffettScenario{
			Label:       label,
			PE:          pe,
			Result:      r,
			FuturePrice: r.ProjectedFuturePrice,
		})
	}
	add("Conservative (10-Yr Min P/E)", conservativePE)
	add("Max P/E (10-Yr High)", maxPE)
	add("Average P/E (High+Low)/2", avgPE)
	return scenarios
}
