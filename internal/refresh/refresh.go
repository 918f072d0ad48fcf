// Package refresh runs the periodic background tasks: re-warming the
// featured watchlist and index quotes, and sweeping expired cache entries.
package refresh

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/infra"
	"github.com/blueoak/oakdash/internal/marketdata"
)

// Scheduler owns the cron instance driving the refresh tasks. Stop cancels
// future firings; a task already running finishes.
type Scheduler struct {
	cron    *cron.Cron
	market  *marketdata.Service
	backend infra.Backend
	ctx     context.Context
	cancel  context.CancelFunc

	taskTimeout time.Duration
}

// NewScheduler creates a scheduler over the market data service.
func NewScheduler(market *marketdata.Service, backend infra.Backend) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:        cron.New(),
		market:      market,
		backend:     backend,
		ctx:         ctx,
		cancel:      cancel,
		taskTimeout: 5 * time.Minute,
	}
}

// Register adds the refresh tasks at the configured intervals.
func (s *Scheduler) Register(cfg *config.Config) error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", cfg.Refresh.Featured), s.refreshFeatured); err != nil {
		return fmt.Errorf("register featured refresh: %w", err)
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", cfg.Refresh.Indices), s.refreshIndices); err != nil {
		return fmt.Errorf("register indices refresh: %w", err)
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", cfg.Cache.SweepInterval), s.sweep(cfg.Cache.Retention)); err != nil {
		return fmt.Errorf("register cache sweep: %w", err)
	}
	return nil
}

// Start begins firing the registered tasks.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[INFO] refresh scheduler started")
}

// Stop cancels in-flight tasks and halts the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Println("[INFO] refresh scheduler stopped")
}

func (s *Scheduler) refreshFeatured() {
	ctx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	stocks := s.market.GetFeaturedStocks(ctx, true)
	if len(stocks) == 0 {
		log.Println("[WARN] featured refresh fetched no symbols")
		return
	}
	log.Printf("[INFO] featured refresh: %d symbols", len(stocks))
}

func (s *Scheduler) refreshIndices() {
	ctx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	indices := s.market.GetMarketIndices(ctx)
	if len(indices) == 0 {
		log.Println("[WARN] index refresh fetched no symbols")
		return
	}
	log.Printf("[INFO] index refresh: %d symbols", len(indices))
}

func (s *Scheduler) sweep(retention time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
		defer cancel()

		if err := s.backend.Sweep(ctx, retention); err != nil {
			log.Printf("[ERROR] cache sweep: %v", err)
		}
	}
}
