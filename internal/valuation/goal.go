package valuation

import (
	"errors"
	"math"
)

// GoalInput describes a savings target: grow InitialCapital to TargetAmount
// over Years at MonthlyReturnPct compounded monthly.
type GoalInput struct {
	TargetAmount     float64 `json:"target_amount"`
	InitialCapital   float64 `json:"initial_capital"`
	MonthlyReturnPct float64 `json:"monthly_return_pct"`
	Years            float64 `json:"years"`
}

// GoalResult is the required monthly contribution and its decomposition.
// When the initial capital alone compounds past the target, Achieved is set
// and the contribution is zero.
type GoalResult struct {
	MonthlyContribution float64 `json:"monthly_contribution"`
	TotalContributions  float64 `json:"total_contributions"`
	TotalGrowth         float64 `json:"total_growth"`
	Months              int     `json:"months"`
	Achieved            bool    `json:"achieved_without_contribution"`
}

var ErrInvalidGoal = errors.New("goal inputs must be positive")

// PlanGoal solves the future-value-of-annuity equation for the monthly
// contribution: FV = PV*(1+r)^n + C*((1+r)^n - 1)/r.
func PlanGoal(in GoalInput) (*GoalResult, error) {
	if in.TargetAmount <= 0 || in.InitialCapital < 0 || in.MonthlyReturnPct <= 0 || in.Years <= 0 {
		return nil, ErrInvalidGoal
	}

	r := in.MonthlyReturnPct / 100
	n := in.Years * 12
	compound := math.Pow(1+r, n)

	contribution := (in.TargetAmount - in.InitialCapital*compound) / ((compound - 1) / r)
	if contribution <= 0 {
		return &GoalResult{Months: int(n), Achieved: true}, nil
	}

	total := contribution * n
	return &GoalResult{
		MonthlyContribution: contribution,
		TotalContributions:  total,
		TotalGrowth:         in.TargetAmount - (in.InitialCapital + total),
		Months:              int(n),
	}, nil
}
