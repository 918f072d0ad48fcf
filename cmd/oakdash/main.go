// Oakdash — personal finance dashboard backend
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/blueoak/oakdash/api"
	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/dividend"
	"github.com/blueoak/oakdash/internal/infra"
	"github.com/blueoak/oakdash/internal/marketdata"
	"github.com/blueoak/oakdash/internal/refresh"
	"github.com/blueoak/oakdash/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "oakdash",
	Short: "Oakdash — personal finance dashboard backend",
	Long: `Oakdash serves cached, rate-limited market data from Finnhub and
Financial Modeling Prep, screens dividend stocks into equal-weight income
portfolios, and runs DCF, return-projection, and savings-goal calculators.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Local .env files are optional; missing is not an error.
		_ = godotenv.Load()

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(criteriaCmd)
	rootCmd.AddCommand(statusCmd)
}

// newBackend builds the cache backend configured for this process: Redis
// when a URL is set, in-memory otherwise.
func newBackend() infra.Backend {
	return infra.NewBackend(cfg.Cache.RedisURL, cfg.Cache.Retention)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Oakdash %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := newBackend()
		market := marketdata.NewService(cfg, backend, nil)
		planner := dividend.NewPlanner(cfg, market.Finnhub(), backend)
		news := marketdata.NewNewsService(cfg, backend)

		scheduler := refresh.NewScheduler(market, backend)
		if err := scheduler.Register(cfg); err != nil {
			return fmt.Errorf("failed to register refresh jobs: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		srv := api.NewServer(cfg, market, planner, news, version)
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting Oakdash API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Fetch the current quote and profile for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		market := marketdata.NewService(cfg, newBackend(), nil)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		stock, err := market.FetchQuoteAndProfile(ctx, symbol)
		if err != nil {
			return err
		}

		fmt.Printf("%s — %s (%s)\n", stock.Symbol, stock.CompanyName, stock.Exchange)
		fmt.Printf("  Price:   %.2f %s (%+.2f, %+.2f%%)\n",
			stock.CurrentPrice, stock.Currency, stock.DailyChange, stock.DailyChangePct)
		fmt.Printf("  Range:   %.2f – %.2f (open %.2f, prev close %.2f)\n",
			stock.Low, stock.High, stock.Open, stock.PreviousClose)
		if stock.MarketCap != nil {
			fmt.Printf("  Mkt Cap: %.0f\n", *stock.MarketCap)
		}
		fmt.Printf("  Sector:  %s\n", stock.Sector)
		fmt.Printf("  Source:  %s (%s)\n", stock.DataSource, stock.Provenance)
		return nil
	},
}

// --- Search Command ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the reference universe by symbol or company name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		market := marketdata.NewService(cfg, newBackend(), nil)
		results := market.SearchStocks(args[0])
		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, r := range results {
			fmt.Printf("  %-6s %-30s %s\n", r.Symbol, r.CompanyName, r.Sector)
		}
		return nil
	},
}

// --- Plan Command ---

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate an equal-weight dividend income portfolio",
	Long: `Generate a dividend portfolio sized to an income target.

Examples:
  oakdash plan --annual 12000
  oakdash plan --monthly 1000 --risk low`,
	RunE: func(cmd *cobra.Command, args []string) error {
		annual, _ := cmd.Flags().GetFloat64("annual")
		monthly, _ := cmd.Flags().GetFloat64("monthly")
		riskFlag, _ := cmd.Flags().GetString("risk")

		target := annual
		if target == 0 {
			target = monthly * 12
		}
		if target <= 0 {
			return fmt.Errorf("provide a positive income target via --annual or --monthly")
		}

		risk := models.RiskTolerance(riskFlag)
		switch risk {
		case models.RiskLow, models.RiskMedium, models.RiskHigh:
		default:
			return fmt.Errorf("risk must be one of low, medium, high")
		}

		backend := newBackend()
		market := marketdata.NewService(cfg, backend, nil)
		planner := dividend.NewPlanner(cfg, market.Finnhub(), backend)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		plan, err := planner.GeneratePlan(ctx, target, risk, func(p models.Progress) {
			fmt.Printf("  [%3.0f%%] %s\n", p.Percentage, p.Message)
		})
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("Dividend plan — %.2f/yr target, %s risk\n", target, risk)
		fmt.Println(strings.Repeat("─", 72))
		for _, line := range plan.Portfolio {
			fmt.Printf("  %-6s %-22s %8.1f sh  %12.2f  yield %.2f%%\n",
				line.Symbol, line.Sector, line.SharesNeeded, line.InvestmentNeeded, line.Yield)
			for _, w := range line.Warnings {
				fmt.Printf("         ⚠ %s\n", w)
			}
		}
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("  Total investment: %.2f   Portfolio yield: %.2f%%\n",
			plan.TotalInvestment, plan.PortfolioYield)
		fmt.Printf("  Data freshness: %d fresh, %d cached, %d estimated\n",
			plan.DataFreshness.Fresh, plan.DataFreshness.Cached, plan.DataFreshness.Estimated)
		for _, w := range plan.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().Float64("annual", 0, "target annual dividend income")
	planCmd.Flags().Float64("monthly", 0, "target monthly dividend income")
	planCmd.Flags().String("risk", "medium", "risk tolerance (low, medium, high)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Oakdash — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Printf("  API Server:  %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("  Cache:       price %s, profile %s, fundamentals %s\n",
			cfg.Cache.PriceTTL, cfg.Cache.ProfileTTL, cfg.Cache.FundamentalTTL)
		fmt.Printf("  Rate limit:  %d calls/min, %s spacing\n",
			cfg.Limiter.CallsPerMinute, cfg.Limiter.MinSpacing)
		fmt.Printf("  Watchlist:   %s\n", strings.Join(cfg.Watchlist.FeaturedSymbols, ", "))
		fmt.Println()

		fmt.Println("  Credentials:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-17s %s\n", k.Name+":", status)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Criteria Command ---

var criteriaCmd = &cobra.Command{
	Use:   "criteria [risk]",
	Short: "Show the screening thresholds for a risk tolerance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		risk := models.RiskTolerance(args[0])
		switch risk {
		case models.RiskLow, models.RiskMedium, models.RiskHigh:
		default:
			return fmt.Errorf("risk must be one of low, medium, high")
		}
		c := dividend.CriteriaForRisk(risk)
		fmt.Printf("Screening criteria — %s risk\n", risk)
		fmt.Printf("  Min market cap:     %.0f\n", c.MinMarketCap)
		fmt.Printf("  Min yield:          %.2f%%\n", c.MinYield*100)
		fmt.Printf("  Max P/E:            %.0f\n", c.MaxPE)
		fmt.Printf("  Max payout ratio:   %.0f%%\n", c.MaxPayoutRatio*100)
		fmt.Printf("  Max debt/equity:    %.2f\n", c.MaxDebtToEquity)
		fmt.Printf("  Min ROE:            %.0f%%\n", c.MinROE*100)
		fmt.Printf("  Min dividend years: %d\n", c.MinDividendYears)
		return nil
	},
}
