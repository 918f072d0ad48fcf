// Package dividend implements the dividend-portfolio screening pipeline:
// a coarse pre-screen, per-candidate evaluation against risk-based criteria,
// and equal-weight allocation of exactly five holdings.
package dividend

import "github.com/blueoak/oakdash/pkg/models"

// CriteriaForRisk returns the screening thresholds for a risk tolerance.
// Unknown values fall back to the medium profile.
func CriteriaForRisk(risk models.RiskTolerance) models.ScreeningCriteria {
	c := models.ScreeningCriteria{
		MinMarketCap:     70e6,
		MinYield:         0.03,
		MaxPE:            25,
		MaxPayoutRatio:   0.85,
		MaxDebtToEquity:  1.0,
		MinROE:           0.08,
		MinDividendYears: 5,
		MinGrowth:        0.03,
	}
	switch risk {
	case models.RiskLow:
		c.MaxPayoutRatio = 0.65
		c.MaxDebtToEquity = 0.8
		c.MinYield = 0.02
	case models.RiskHigh:
		c.MaxPayoutRatio = 1.0
		c.MaxDebtToEquity = 2.0
		c.MinYield = 0.04
		c.MaxPE = 30
	}
	return c
}
