package valuation

import (
	"errors"
	"math"
	"testing"
)

func TestRunDCF(t *testing.T) {
	t.Run("single year hand check", func(t *testing.T) {
		// Year 1: FCF 10 discounted at 10% = 9.0909. Terminal value
		// 10*1.025/0.075 = 136.6667, discounted = 124.2424.
		res, err := RunDCF(DCFInput{
			FCFPerShare:        10,
			GrowthRate:         0,
			DiscountRate:       0.10,
			TerminalGrowthRate: 0.025,
			Years:              1,
		})
		if err != nil {
			t.Fatalf("RunDCF: %v", err)
		}
		want := 10/1.1 + (10*1.025/0.075)/1.1
		if math.Abs(res.Base.IntrinsicValue-want) > 1e-9 {
			t.Errorf("base intrinsic = %v, want %v", res.Base.IntrinsicValue, want)
		}
		if len(res.Base.Projections) != 1 {
			t.Errorf("projections = %d, want 1", len(res.Base.Projections))
		}
	})

	t.Run("scenario ordering", func(t *testing.T) {
		res, err := RunDCF(DCFInput{
			FCFPerShare:        5,
			GrowthRate:         0.08,
			DiscountRate:       0.10,
			TerminalGrowthRate: 0.025,
			Years:              10,
		})
		if err != nil {
			t.Fatalf("RunDCF: %v", err)
		}
		if !(res.Conservative.IntrinsicValue < res.Base.IntrinsicValue &&
			res.Base.IntrinsicValue < res.Optimistic.IntrinsicValue) {
			t.Errorf("scenarios out of order: cons=%v base=%v opt=%v",
				res.Conservative.IntrinsicValue, res.Base.IntrinsicValue, res.Optimistic.IntrinsicValue)
		}
		if res.RangeMin != res.Conservative.IntrinsicValue || res.RangeMax != res.Optimistic.IntrinsicValue {
			t.Errorf("range = [%v, %v]", res.RangeMin, res.RangeMax)
		}
	})

	t.Run("conservative growth floors at one percent", func(t *testing.T) {
		res, err := RunDCF(DCFInput{
			FCFPerShare:        5,
			GrowthRate:         0.005,
			DiscountRate:       0.10,
			TerminalGrowthRate: 0.02,
			Years:              5,
		})
		if err != nil {
			t.Fatalf("RunDCF: %v", err)
		}
		if res.Conservative.GrowthRate != 0.01 {
			t.Errorf("conservative growth = %v, want floor of 0.01", res.Conservative.GrowthRate)
		}
	})

	t.Run("input validation", func(t *testing.T) {
		tests := []struct {
			name string
			in   DCFInput
			want error
		}{
			{"negative fcf", DCFInput{FCFPerShare: -1, DiscountRate: 0.1, Years: 5}, ErrNonPositiveFCF},
			{"zero years", DCFInput{FCFPerShare: 5, DiscountRate: 0.1}, ErrNonPositiveYears},
			{"terminal exceeds discount", DCFInput{FCFPerShare: 5, DiscountRate: 0.02, TerminalGrowthRate: 0.03, Years: 5}, ErrTerminalExceeds},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := RunDCF(tt.in); !errors.Is(err, tt.want) {
					t.Errorf("err = %v, want %v", err, tt.want)
				}
			})
		}
	})
}

func TestRecommend(t *testing.T) {
	res := &DCFResult{
		Base:     DCFScenario{IntrinsicValue: 100},
		RangeMin: 80,
	}

	tests := []struct {
		name  string
		price float64
		want  string
	}{
		{"deep discount to conservative case", 60, "Strong Buy"},
		{"modest discount to conservative case", 70, "Buy"},
		{"near fair value", 105, "Hold"},
		{"rich vs base case", 120, "Sell"},
		{"far above base case", 150, "Strong Sell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recommend(res, tt.price)
			if rec.Verdict != tt.want {
				t.Errorf("verdict = %q, want %q", rec.Verdict, tt.want)
			}
		})
	}

	rec := Recommend(res, 80)
	if math.Abs(rec.MarginOfSafety-0.25) > 1e-9 {
		t.Errorf("margin of safety = %v, want 0.25", rec.MarginOfSafety)
	}
}

func TestProjectReturn(t *testing.T) {
	t.Run("non-positive price is total loss", func(t *testing.T) {
		r := ProjectReturn(BuffettInput{Price: 0, EPS: 5}, 15)
		if r.IRR != -1 {
			t.Errorf("IRR = %v, want -1", r.IRR)
		}
	})

	t.Run("known irr from single exit cash flow", func(t *testing.T) {
		// No dividends, flat EPS of 10, exit at P/E 15: one cash flow of 150
		// in year ten. Priced at 150/1.1^10 the return is exactly 10%.
		price := 150 / math.Pow(1.1, 10)
		r := ProjectReturn(BuffettInput{Price: price, EPS: 10}, 15)
		if math.Abs(r.IRR-0.10) > 1e-6 {
			t.Errorf("IRR = %v, want 0.10", r.IRR)
		}
		if r.ProjectedFuturePrice != 150 {
			t.Errorf("future price = %v, want 150", r.ProjectedFuturePrice)
		}
		if r.TotalDividends != 0 {
			t.Errorf("dividends = %v, want 0", r.TotalDividends)
		}
	})

	t.Run("flat dividends accumulate", func(t *testing.T) {
		r := ProjectReturn(BuffettInput{Price: 100, EPS: 10, Dividend: 1}, 15)
		if math.Abs(r.TotalDividends-10) > 1e-9 {
			t.Errorf("total dividends = %v, want 10 over ten years", r.TotalDividends)
		}
		if math.Abs(r.TotalFutureValue-(r.ProjectedFuturePrice+r.TotalDividends)) > 1e-9 {
			t.Errorf("future value = %v, parts sum to %v",
				r.TotalFutureValue, r.ProjectedFuturePrice+r.TotalDividends)
		}
	})
}

func TestProjectScenarios(t *testing.T) {
	in := BuffettInput{Price: 100, EPS: 8, Dividend: 2, EPSGrowth: 6, DividendGrowth: 5}

	scenarios := ProjectScenarios(in, 15, 25, 20)
	if len(scenarios) != 3 {
		t.Fatalf("scenarios = %d, want 3", len(scenarios))
	}
	// A higher exit P/E cannot yield a lower return.
	if scenarios[1].Result.IRR < scenarios[0].Result.IRR {
		t.Errorf("max-P/E IRR %v below conservative %v",
			scenarios[1].Result.IRR, scenarios[0].Result.IRR)
	}

	partial := ProjectScenarios(in, 15, math.NaN(), 20)
	if len(partial) != 2 {
		t.Errorf("scenarios = %d, want NaN assumption skipped", len(partial))
	}
}

func TestPlanGoal(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		in := GoalInput{TargetAmount: 100000, InitialCapital: 10000, MonthlyReturnPct: 1, Years: 10}
		res, err := PlanGoal(in)
		if err != nil {
			t.Fatalf("PlanGoal: %v", err)
		}
		if res.Achieved {
			t.Fatal("goal should need contributions")
		}
		if res.Months != 120 {
			t.Errorf("months = %d, want 120", res.Months)
		}

		// Compounding the plan forward must land on the target.
		r := 0.01
		compound := math.Pow(1+r, 120)
		fv := in.InitialCapital*compound + res.MonthlyContribution*((compound-1)/r)
		if math.Abs(fv-in.TargetAmount) > 1e-6 {
			t.Errorf("plan compounds to %v, want %v", fv, in.TargetAmount)
		}
	})

	t.Run("achieved without contributions", func(t *testing.T) {
		res, err := PlanGoal(GoalInput{TargetAmount: 10000, InitialCapital: 10000, MonthlyReturnPct: 1, Years: 1})
		if err != nil {
			t.Fatalf("PlanGoal: %v", err)
		}
		if !res.Achieved || res.MonthlyContribution != 0 {
			t.Errorf("result = %+v, want achieved with zero contribution", res)
		}
	})

	t.Run("input validation", func(t *testing.T) {
		bad := []GoalInput{
			{TargetAmount: 0, InitialCapital: 1, MonthlyReturnPct: 1, Years: 1},
			{TargetAmount: 100, InitialCapital: -1, MonthlyReturnPct: 1, Years: 1},
			{TargetAmount: 100, InitialCapital: 1, MonthlyReturnPct: 0, Years: 1},
			{TargetAmount: 100, InitialCapital: 1, MonthlyReturnPct: 1, Years: 0},
		}
		for _, in := range bad {
			if _, err := PlanGoal(in); !errors.Is(err, ErrInvalidGoal) {
				t.Errorf("PlanGoal(%+v) err = %v, want ErrInvalidGoal", in, err)
			}
		}
	})
}
