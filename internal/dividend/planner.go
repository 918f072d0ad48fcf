package dividend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/infra"
	"github.com/blueoak/oakdash/internal/marketdata"
	"github.com/blueoak/oakdash/pkg/models"
)

// ProgressFunc observes plan-generation progress. It is purely
// informational and must not block for long; nil disables reporting.
type ProgressFunc func(models.Progress)

// Planner generates equal-weight dividend portfolios. All provider calls go
// through its rate-limited queue; every per-candidate failure degrades
// gracefully, so a run only fails on cancellation.
type Planner struct {
	api       MarketAPI
	queue     *infra.CallQueue
	essential *infra.Cache
	prescreen *infra.Cache

	portfolioSize int
	maxCandidates int
}

// NewPlanner wires a planner over the primary provider client.
func NewPlanner(cfg *config.Config, api MarketAPI, backend infra.Backend) *Planner {
	return &Planner{
		api:           api,
		queue:         infra.NewCallQueue(cfg.Limiter.CallsPerMinute, time.Minute, cfg.Limiter.MinSpacing),
		essential:     infra.NewCache(backend, "essential:", cfg.Cache.FundamentalTTL),
		prescreen:     infra.NewCache(backend, "prescreen:", cfg.Cache.PreScreenTTL),
		portfolioSize: cfg.Dividend.PortfolioSize,
		maxCandidates: cfg.Dividend.MaxCandidates,
	}
}

// holding is a screened candidate carried into allocation.
type holding struct {
	models.EssentialMetrics
	Warnings []string
}

// GeneratePlan builds a dividend portfolio targeting targetAnnualIncome.
//
// The run proceeds pre-screen, detailed screening, then backfill until the
// configured holding count is reached: first from the rejected pool with a
// relaxed-criteria warning, then from a fixed list of reliable payers. The
// portfolio is always exactly portfolioSize holdings unless no candidate at
// all is obtainable, in which case an empty plan with a warning is returned.
func (p *Planner) GeneratePlan(ctx context.Context, targetAnnualIncome float64, risk models.RiskTolerance, progress ProgressFunc) (*models.DividendPlan, error) {
	criteria := CriteriaForRisk(risk)

	report := func(step, total int, msg string) {
		if progress == nil {
			return
		}
		pct := 0.0
		if total > 0 {
			pct = float64(step) / float64(total) * 100
		}
		progress(models.Progress{Step: step, Total: total, Message: msg, Percentage: pct})
	}

	total := 3 + p.maxCandidates
	report(0, total, "Starting dividend plan generation...")

	candidates := p.preScreen(ctx, criteria, report, total)
	if len(candidates) > p.maxCandidates {
		candidates = candidates[:p.maxCandidates]
	}
	total = 3 + len(candidates)
	report(3, total, fmt.Sprintf("Analyzing %d candidate stocks...", len(candidates)))

	var passed, rejected []holding
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("plan generation aborted: %w", err)
		}
		report(4+i, total, fmt.Sprintf("Analyzing %s...", c.Symbol))

		m := p.essentialMetrics(ctx, c.Symbol)
		result := screenCandidate(m, criteria)
		h := holding{EssentialMetrics: m, Warnings: result.Warnings}
		if result.Passed {
			passed = append(passed, h)
		} else {
			rejected = append(rejected, h)
		}
	}

	sortByYield(passed)

	if len(passed) < p.portfolioSize {
		report(total-1, total, "Expanding search with relaxed criteria...")
		sortByYield(rejected)
		for _, h := range rejected {
			if len(passed) >= p.portfolioSize {
				break
			}
			h.Warnings = append(h.Warnings, "Relaxed criteria applied")
			passed = append(passed, h)
		}
	}

	for _, symbol := range reliableFallbacks {
		if len(passed) >= p.portfolioSize {
			break
		}
		if containsSymbol(passed, symbol) {
			continue
		}
		m := p.essentialMetrics(ctx, symbol)
		passed = append(passed, holding{
			EssentialMetrics: m,
			Warnings:         []string{"Added as reliable fallback stock"},
		})
	}

	if len(passed) > p.portfolioSize {
		passed = passed[:p.portfolioSize]
	}
	report(total, total, fmt.Sprintf("Building portfolio with %d stocks", len(passed)))

	if len(passed) == 0 {
		return &models.DividendPlan{
			Portfolio:        []models.PortfolioLine{},
			SectorAllocation: map[string]float64{},
			Warnings:         []string{"No stocks passed screening. Try adjusting risk tolerance."},
		}, nil
	}

	return p.allocate(passed, targetAnnualIncome), nil
}

// allocate distributes the income target equally across holdings and sizes
// each position from its price and yield.
func (p *Planner) allocate(holdings []holding, targetAnnualIncome float64) *models.DividendPlan {
	weight := 1.0 / float64(len(holdings))

	var totalInvestment float64
	var freshness models.DataFreshness
	portfolio := make([]models.PortfolioLine, 0, len(holdings))

	for _, h := range holdings {
		targetDividend := targetAnnualIncome * weight
		dividendPerShare := h.Price * h.Yield
		shares := 0.0
		if dividendPerShare > 0 {
			shares = targetDividend / dividendPerShare
		}
		investment := shares * h.Price
		totalInvestment += investment

		switch {
		case h.FromCache:
			freshness.Cached++
		case h.DataAge == "Estimated":
			freshness.Estimated++
		default:
			freshness.Fresh++
		}

		portfolio = append(portfolio, models.PortfolioLine{
			Symbol:                 h.Symbol,
			Sector:                 sectorFor(h.Symbol, h.Sector),
			SharesNeeded:           shares,
			ExpectedAnnualDividend: targetDividend,
			PortfolioPercentage:    weight * 100,
			InvestmentNeeded:       investment,
			Yield:                  h.Yield * 100,
			PERatio:                h.PERatio,
			PayoutRatio:            h.PayoutRatio,
			DebtToEquity:           h.DebtToEquity,
			Warnings:               h.Warnings,
			DataAge:                h.DataAge,
		})
	}

	sectorAllocation := make(map[string]float64)
	for _, line := range portfolio {
		sectorAllocation[line.Sector] += line.InvestmentNeeded
	}
	for sector, invested := range sectorAllocation {
		if totalInvestment > 0 {
			sectorAllocation[sector] = invested / totalInvestment * 100
		} else {
			sectorAllocation[sector] = 0
		}
	}

	portfolioYield := 0.0
	if totalInvestment > 0 {
		portfolioYield = targetAnnualIncome / totalInvestment * 100
	}

	var warnings []string
	if len(portfolio) < p.portfolioSize {
		warnings = append(warnings, fmt.Sprintf("Limited to %d stocks due to screening criteria", len(portfolio)))
	}

	return &models.DividendPlan{
		Portfolio:        portfolio,
		TotalInvestment:  totalInvestment,
		AnnualIncome:     targetAnnualIncome,
		PortfolioYield:   portfolioYield,
		SectorAllocation: sectorAllocation,
		DataFreshness:    freshness,
		Warnings:         warnings,
	}
}

// preScreen runs the coarse screener filter, cached per criteria
// fingerprint. On any screener failure the curated fallback universe is
// substituted, so pre-screening never fails a run.
func (p *Planner) preScreen(ctx context.Context, criteria models.ScreeningCriteria, report func(int, int, string), total int) []models.Candidate {
	fingerprint := criteriaFingerprint(criteria)
	if e, ok := p.prescreen.Fresh(ctx, fingerprint); ok {
		if cached, err := infra.Decode[[]models.Candidate](e); err == nil {
			return cached
		}
	}

	report(1, total, "Pre-screening stocks with basic criteria...")

	rows, err := infra.QueueDo(ctx, p.queue, func(ctx context.Context) ([]marketdata.ScreenerRow, error) {
		return p.api.Screen(ctx, criteria.MinMarketCap, criteria.MinYield*100)
	})
	if err != nil {
		report(2, total, "Using fallback stock universe")
		candidates := make([]models.Candidate, len(fallbackUniverse))
		for i, s := range fallbackUniverse {
			candidates[i] = models.Candidate{Symbol: s}
		}
		return candidates
	}

	candidates := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, models.Candidate{Symbol: row.Symbol})
	}
	_ = p.prescreen.Set(ctx, fingerprint, candidates)

	report(2, total, fmt.Sprintf("Found %d candidates from pre-screening", len(candidates)))
	return candidates
}

// criteriaFingerprint derives a stable cache key from the criteria values.
func criteriaFingerprint(c models.ScreeningCriteria) string {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", c)
	}
	return string(b)
}

func sortByYield(hs []holding) {
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].Yield > hs[j].Yield })
}

func containsSymbol(hs []holding, symbol string) bool {
	for _, h := range hs {
		if h.Symbol == symbol {
			return true
		}
	}
	return false
}
