package infra

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time            { return c.t }
func (c *fakeClock) Advance(d time.Duration)   { c.t = c.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := newFakeClock()
	backend := NewMemoryBackend()
	backend.now = clock.Now
	c := NewCache(backend, "test:", ttl)
	c.now = clock.Now
	return c, clock
}

func TestCacheFreshWithinTimeout(t *testing.T) {
	c, clock := newTestCache(60 * time.Second)
	ctx := context.Background()

	if err := c.Set(ctx, "AAPL", "payload"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock.Advance(59 * time.Second)
	if _, ok := c.Fresh(ctx, "AAPL"); !ok {
		t.Fatal("expected entry to be fresh within the timeout")
	}

	clock.Advance(1 * time.Second)
	if _, ok := c.Fresh(ctx, "AAPL"); ok {
		t.Fatal("expected entry to be stale at exactly the timeout")
	}
}

func TestCacheValidBoundaries(t *testing.T) {
	c, clock := newTestCache(60 * time.Second)
	ctx := context.Background()

	if err := c.Set(ctx, "k", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	e, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected entry present")
	}

	tests := []struct {
		name    string
		advance time.Duration
		valid   bool
	}{
		{"at store time", 0, true},
		{"just before timeout", 59*time.Second + 999*time.Millisecond, true},
		{"at timeout", 1 * time.Millisecond, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Advance(tt.advance)
			if got := c.Valid(e); got != tt.valid {
				t.Fatalf("Valid = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestCacheValidRejectsFutureEntry(t *testing.T) {
	c, clock := newTestCache(60 * time.Second)
	ctx := context.Background()

	clock.Advance(10 * time.Second)
	if err := c.Set(ctx, "k", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	e, _ := c.Get(ctx, "k")

	// A clock that moved backwards must not report the entry as valid.
	clock.Advance(-20 * time.Second)
	if c.Valid(e) {
		t.Fatal("entry stored in the future must not be valid")
	}
}

func TestCacheMissForAbsentKey(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	if _, ok := c.Get(context.Background(), "nope"); ok {
		t.Fatal("expected miss for absent key")
	}
	if _, ok := c.Fresh(context.Background(), "nope"); ok {
		t.Fatal("expected Fresh miss for absent key")
	}
}

func TestCacheStaleEntryStillReadable(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "JNJ", map[string]float64{"price": 150}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clock.Advance(3 * time.Hour)

	e, ok := c.Get(ctx, "JNJ")
	if !ok {
		t.Fatal("stale entry must remain readable until overwritten or swept")
	}
	if c.Valid(e) {
		t.Fatal("entry should be stale")
	}
	if got := c.Age(e); got != 3*time.Hour {
		t.Fatalf("Age = %v, want 3h", got)
	}
}

func TestCacheOverwriteRefreshesTimestamp(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "k", "old")
	clock.Advance(2 * time.Minute)
	_ = c.Set(ctx, "k", "new")

	e, ok := c.Fresh(ctx, "k")
	if !ok {
		t.Fatal("overwritten entry should be fresh again")
	}
	v, err := Decode[string](e)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v != "new" {
		t.Fatalf("got %q, want new", v)
	}
}

func TestCacheFlushScopedToPrefix(t *testing.T) {
	backend := NewMemoryBackend()
	price := NewCache(backend, "price:", time.Minute)
	profile := NewCache(backend, "profile:", time.Hour)
	ctx := context.Background()

	_ = price.Set(ctx, "AAPL", 1.0)
	_ = profile.Set(ctx, "AAPL", "Apple Inc.")

	if err := price.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, ok := price.Get(ctx, "AAPL"); ok {
		t.Fatal("price entry should be flushed")
	}
	if _, ok := profile.Get(ctx, "AAPL"); !ok {
		t.Fatal("profile entry should survive a price flush")
	}
}

func TestMemoryBackendSweep(t *testing.T) {
	clock := newFakeClock()
	backend := NewMemoryBackend()
	backend.now = clock.Now
	c := NewCache(backend, "x:", time.Minute)
	c.now = clock.Now
	ctx := context.Background()

	_ = c.Set(ctx, "old", 1)
	clock.Advance(48 * time.Hour)
	_ = c.Set(ctx, "new", 2)

	if err := backend.Sweep(ctx, 24*time.Hour); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if _, ok := c.Get(ctx, "old"); ok {
		t.Fatal("swept entry should be gone")
	}
	if _, ok := c.Get(ctx, "new"); !ok {
		t.Fatal("recent entry should survive the sweep")
	}
}

func TestNewBackendFallsBackToMemory(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty url", ""},
		{"malformed url", "not-a-redis-url"},
		{"unreachable server", "redis://127.0.0.1:1/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend(tt.url, time.Hour)
			if _, ok := b.(*MemoryBackend); !ok {
				t.Fatalf("expected memory fallback, got %T", b)
			}
		})
	}
}
