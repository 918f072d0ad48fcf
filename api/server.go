// Package api provides the HTTP REST API server for Oakdash.
//
// It exposes endpoints for quotes, featured stocks, market indices, symbol
// search, market news, dividend plan generation, the valuation calculators,
// and WebSocket streaming of plan progress.
package api

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/dividend"
	"github.com/blueoak/oakdash/internal/marketdata"
	"github.com/blueoak/oakdash/internal/valuation"
	"github.com/blueoak/oakdash/pkg/models"
)

// planTimeout bounds a single plan-generation request. A cold run screens up
// to MaxCandidates symbols through the call queue, so it needs far more than
// the general request deadline.
const planTimeout = 10 * time.Minute

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	market  *marketdata.Service
	planner *dividend.Planner
	news    *marketdata.NewsService
	wsHub   *WSHub
	version string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, market *marketdata.Service, planner *dividend.Planner, news *marketdata.NewsService, version string) *Server {
	srv := &Server{
		cfg:     cfg,
		market:  market,
		planner: planner,
		news:    news,
		wsHub:   NewWSHub(),
		version: version,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout: 30 * time.Second,
		// Must outlast planTimeout or the server cuts off a slow plan
		// response mid-write.
		WriteTimeout: planTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(120 * time.Second))

		r.Get("/health", s.handleHealth)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", s.handleHealth)

			// Stocks
			r.Get("/stocks/{symbol}", s.handleStock)
			r.Get("/stocks/{symbol}/metrics", s.handleStockMetrics)
			r.Get("/stocks/{symbol}/historical", s.handleStockHistorical)
			r.Get("/stocks/{symbol}/fundamentals", s.handleStockFundamentals)

			// Watchlist
			r.Get("/featured", s.handleFeatured)
			r.Get("/indices", s.handleIndices)

			// Search
			r.Get("/search", s.handleSearch)

			// News
			r.Get("/news", s.handleNews)

			// Dividend screening criteria
			r.Get("/dividend/criteria/{risk}", s.handleCriteria)

			// Valuation calculators
			r.Post("/valuation/dcf", s.handleDCF)
			r.Post("/valuation/buffett", s.handleBuffett)
			r.Post("/valuation/goal", s.handleGoal)

			// Configuration (sanitized)
			r.Get("/config", s.handleGetConfig)

			// Cache administration
			r.Delete("/cache", s.handleClearCache)
		})
	})

	// A cold plan run spends minutes inside the rate limiter, so it gets a
	// wider deadline than the rest of the API.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(planTimeout))
		r.Post("/api/v1/dividend/plan", s.handleDividendPlan)
	})

	// The progress stream holds its connection open indefinitely.
	r.Get("/api/v1/ws", s.handleWebSocket)

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PlanRequest is the body for POST /api/v1/dividend/plan. Exactly one of
// the income targets must be positive; a monthly target is annualized.
type PlanRequest struct {
	TargetAnnualIncome  float64 `json:"target_annual_income,omitempty"`
	TargetMonthlyIncome float64 `json:"target_monthly_income,omitempty"`
	RiskTolerance       string  `json:"risk_tolerance,omitempty"`
}

// DCFRequest is the body for POST /api/v1/valuation/dcf. CurrentPrice is
// optional; when positive the response includes a recommendation.
type DCFRequest struct {
	valuation.DCFInput
	CurrentPrice float64 `json:"current_price,omitempty"`
}

// DCFResponse pairs a DCF result with its optional recommendation.
type DCFResponse struct {
	*valuation.DCFResult
	Recommendation *valuation.Recommendation `json:"recommendation,omitempty"`
}

// BuffettRequest is the body for POST /api/v1/valuation/buffett.
type BuffettRequest struct {
	valuation.BuffettInput
	ConservativePE float64 `json:"conservative_pe"`
	MaxPE          float64 `json:"max_pe"`
	AvgPE          float64 `json:"avg_pe"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": s.version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	stock, err := s.market.FetchQuoteAndProfile(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusNotFound, "no data available for "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: stock})
}

func (s *Server) handleStockMetrics(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	metrics := s.market.GetComprehensiveMetrics(r.Context(), symbol)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: metrics})
}

func (s *Server) handleStockHistorical(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	h := s.market.GetHistoricalAnalysisData(r.Context(), symbol)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h})
}

func (s *Server) handleStockFundamentals(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	q, err := s.market.GetFMPQuote(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fundamentals unavailable for "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: q})
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"
	stocks := s.market.GetFeaturedStocks(r.Context(), force)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: stocks})
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	indices := s.market.GetMarketIndices(r.Context())
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: indices})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	results := s.market.SearchStocks(query)
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	items, err := s.news.MarketNews(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if items == nil {
		items = []models.NewsItem{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

func (s *Server) handleDividendPlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := req.TargetAnnualIncome
	if target == 0 {
		target = req.TargetMonthlyIncome * 12
	}
	if target <= 0 {
		writeError(w, http.StatusBadRequest, "a positive income target is required")
		return
	}

	risk := models.RiskTolerance(req.RiskTolerance)
	if risk == "" {
		risk = models.RiskMedium
	}

	// The route's timeout middleware owns the deadline here; see planTimeout.
	plan, err := s.planner.GeneratePlan(r.Context(), target, risk, func(p models.Progress) {
		s.wsHub.Broadcast(WSMessage{Type: "plan_progress", Data: p})
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "plan_complete",
		Data: map[string]interface{}{
			"holdings":         len(plan.Portfolio),
			"total_investment": plan.TotalInvestment,
		},
	})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plan})
}

func (s *Server) handleCriteria(w http.ResponseWriter, r *http.Request) {
	risk := models.RiskTolerance(chi.URLParam(r, "risk"))
	switch risk {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		writeError(w, http.StatusBadRequest, "risk must be one of low, medium, high")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: dividend.CriteriaForRisk(risk)})
}

func (s *Server) handleDCF(w http.ResponseWriter, r *http.Request) {
	var req DCFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := valuation.RunDCF(req.DCFInput)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	out := DCFResponse{DCFResult: res}
	if req.CurrentPrice > 0 {
		rec := valuation.Recommend(res, req.CurrentPrice)
		out.Recommendation = &rec
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleBuffett(w http.ResponseWriter, r *http.Request) {
	var req BuffettRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// JSON has no NaN; an omitted exit P/E arrives as zero and means "skip".
	scenarios := valuation.ProjectScenarios(req.BuffettInput, zeroToNaN(req.ConservativePE), zeroToNaN(req.MaxPE), zeroToNaN(req.AvgPE))
	if len(scenarios) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "at least one exit P/E assumption is required")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: scenarios})
}

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	var in valuation.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := valuation.PlanGoal(in)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.market.ClearCaches(r.Context())
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]string{"status": "cleared"}})
}

// ============================================================
// Helpers
// ============================================================

func normalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func zeroToNaN(v float64) float64 {
	if v == 0 {
		return math.NaN()
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
