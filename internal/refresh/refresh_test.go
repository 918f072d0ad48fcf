package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/infra"
	"github.com/blueoak/oakdash/internal/marketdata"
)

// sweepCounter wraps the memory backend and counts Sweep calls.
type sweepCounter struct {
	*infra.MemoryBackend
	sweeps atomic.Int64
}

func (b *sweepCounter) Sweep(ctx context.Context, olderThan time.Duration) error {
	b.sweeps.Add(1)
	return b.MemoryBackend.Sweep(ctx, olderThan)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Refresh.Featured = time.Hour
	cfg.Refresh.Indices = time.Hour
	cfg.Cache.SweepInterval = time.Hour
	cfg.Cache.Retention = 24 * time.Hour
	cfg.HTTP.Timeout = time.Second
	return cfg
}

func TestRegisterAcceptsConfiguredIntervals(t *testing.T) {
	cfg := testConfig()
	backend := infra.NewMemoryBackend()
	market := marketdata.NewService(cfg, backend, nil)

	s := NewScheduler(market, backend)
	if err := s.Register(cfg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	cfg := testConfig()
	backend := infra.NewMemoryBackend()
	market := marketdata.NewService(cfg, backend, nil)

	s := NewScheduler(market, backend)
	if err := s.Register(cfg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	s.Start()
	s.Stop()

	// After Stop the scheduler context is cancelled.
	if s.ctx.Err() == nil {
		t.Error("scheduler context should be cancelled after Stop")
	}
}

func TestSweepTaskCallsBackend(t *testing.T) {
	cfg := testConfig()
	backend := &sweepCounter{MemoryBackend: infra.NewMemoryBackend()}
	market := marketdata.NewService(cfg, backend, nil)

	s := NewScheduler(market, backend)
	task := s.sweep(cfg.Cache.Retention)
	task()

	if got := backend.sweeps.Load(); got != 1 {
		t.Errorf("sweep calls = %d, want 1", got)
	}
}
