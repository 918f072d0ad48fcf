package infra

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// virtualClock drives a CallQueue without real waiting: sleep advances the
// clock instead of blocking.
type virtualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newVirtualQueue(budget int, window, spacing time.Duration) (*CallQueue, *virtualClock) {
	clock := &virtualClock{t: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)}
	q := NewCallQueue(budget, window, spacing)
	q.now = func() time.Time {
		clock.mu.Lock()
		defer clock.mu.Unlock()
		return clock.t
	}
	q.sleep = func(_ context.Context, d time.Duration) error {
		clock.mu.Lock()
		clock.t = clock.t.Add(d)
		clock.mu.Unlock()
		return nil
	}
	return q, clock
}

func dispatchTimes(t *testing.T, q *CallQueue, n int) []time.Time {
	t.Helper()
	times := make([]time.Time, 0, n)
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		if _, err := q.Do(context.Background(), func(context.Context) (any, error) {
			mu.Lock()
			times = append(times, q.now())
			mu.Unlock()
			return nil, nil
		}); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	return times
}

func TestQueueMinimumSpacing(t *testing.T) {
	q, _ := newVirtualQueue(60, time.Minute, time.Second)

	times := dispatchTimes(t, q, 4)
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < time.Second {
			t.Fatalf("dispatch %d only %v after previous, want >= 1s", i, gap)
		}
	}
}

func TestQueueBudgetPerWindow(t *testing.T) {
	q, _ := newVirtualQueue(2, time.Minute, 0)

	times := dispatchTimes(t, q, 5)

	// No more than 2 dispatches in any rolling 60s window.
	for i := range times {
		count := 0
		for j := i; j < len(times); j++ {
			if times[j].Sub(times[i]) < time.Minute {
				count++
			}
		}
		if count > 2 {
			t.Fatalf("%d dispatches within one window starting at %v", count, times[i])
		}
	}

	// The third call must have waited for the window to reset.
	if wait := times[2].Sub(times[0]); wait < time.Minute {
		t.Fatalf("third dispatch after %v, want >= window", wait)
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q, _ := newVirtualQueue(0, time.Minute, 0)

	release := make(chan struct{})
	blockerRunning := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = q.Do(context.Background(), func(context.Context) (any, error) {
			close(blockerRunning)
			<-release
			return nil, nil
		})
	}()
	<-blockerRunning

	// Enqueue three more in a known order while the drain is busy.
	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		want := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Do(context.Background(), func(context.Context) (any, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
		}()
		// Wait for this call to be queued before enqueuing the next, so the
		// FIFO positions are deterministic.
		for q.Len() < want {
			time.Sleep(time.Millisecond)
		}
	}

	close(release)
	wg.Wait()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("dispatch order = %v, want [1 2 3]", order)
	}
}

func TestQueueFailureDoesNotStallDrain(t *testing.T) {
	q, _ := newVirtualQueue(0, time.Minute, 0)
	boom := errors.New("provider exploded")

	if _, err := q.Do(context.Background(), func(context.Context) (any, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected the call's own error, got %v", err)
	}

	v, err := q.Do(context.Background(), func(context.Context) (any, error) {
		return "still alive", nil
	})
	if err != nil {
		t.Fatalf("queue stalled after a failed call: %v", err)
	}
	if v != "still alive" {
		t.Fatalf("got %v", v)
	}
}

func TestQueueAbandonedCallerSkipped(t *testing.T) {
	q, _ := newVirtualQueue(0, time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dispatched := false
	_, err := q.Do(ctx, func(context.Context) (any, error) {
		dispatched = true
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// Drain the queue with a follow-up call; the cancelled one must not run.
	if _, err := q.Do(context.Background(), func(context.Context) (any, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if dispatched {
		t.Fatal("cancelled call must not be dispatched")
	}
}

func TestQueueDoTyped(t *testing.T) {
	q, _ := newVirtualQueue(0, time.Minute, 0)

	got, err := QueueDo(context.Background(), q, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("QueueDo: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}
