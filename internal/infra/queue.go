package infra

import (
	"context"
	"sync"
	"time"
)

// Call is a unit of outbound work dispatched by a CallQueue.
type Call func(ctx context.Context) (any, error)

type callResult struct {
	value any
	err   error
}

type pendingCall struct {
	ctx  context.Context
	call Call
	done chan callResult
}

// CallQueue serializes outbound provider calls. Calls are dispatched strictly
// FIFO, one at a time, with a minimum spacing between dispatches and at most
// budget dispatches per rolling window. A failed call delivers its error to
// the enqueuer only; the drain loop always moves on to the next call.
//
// There is no priority and no cancellation of queued work: a caller whose
// context expires stops waiting, but its call is still paced and dispatched
// (and fails fast against the expired context).
type CallQueue struct {
	mu       sync.Mutex
	queue    []*pendingCall
	draining bool

	budget  int           // max dispatches per window; 0 disables the cap
	window  time.Duration // rolling window length
	spacing time.Duration // min gap between consecutive dispatches; 0 disables

	dispatched   int
	windowStart  time.Time
	lastDispatch time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewCallQueue creates a queue enforcing at most budget dispatches per window
// and at least spacing between consecutive dispatches.
func NewCallQueue(budget int, window, spacing time.Duration) *CallQueue {
	q := &CallQueue{
		budget:  budget,
		window:  window,
		spacing: spacing,
		now:     time.Now,
	}
	q.sleep = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	return q
}

// Do enqueues call and blocks until it has been dispatched and completed, or
// until ctx expires. The returned error is either the call's own error or
// ctx.Err(); queue-level pacing never produces an error.
func (q *CallQueue) Do(ctx context.Context, call Call) (any, error) {
	p := &pendingCall{ctx: ctx, call: call, done: make(chan callResult, 1)}

	q.mu.Lock()
	q.queue = append(q.queue, p)
	start := !q.draining
	if start {
		q.draining = true
		if q.windowStart.IsZero() {
			q.windowStart = q.now()
		}
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}

	select {
	case r := <-p.done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of calls waiting for dispatch.
func (q *CallQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// drain is the single queue-drain loop. Only one runs at a time; enqueuing
// while a drain is active does not start a second one.
func (q *CallQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		p := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()

		// Pacing uses the background context: one abandoned caller must not
		// stall the queue for everyone behind it.
		q.pace(context.Background())

		if err := p.ctx.Err(); err != nil {
			p.done <- callResult{err: err}
			continue
		}

		q.mu.Lock()
		q.dispatched++
		q.lastDispatch = q.now()
		q.mu.Unlock()

		value, err := p.call(p.ctx)
		p.done <- callResult{value: value, err: err}
	}
}

// pace blocks until the next dispatch is allowed: the per-window budget has
// room and the minimum spacing since the previous dispatch has elapsed.
func (q *CallQueue) pace(ctx context.Context) {
	for {
		q.mu.Lock()
		now := q.now()
		if now.Sub(q.windowStart) >= q.window {
			q.dispatched = 0
			q.windowStart = now
		}
		if q.budget > 0 && q.dispatched >= q.budget {
			wait := q.window - now.Sub(q.windowStart)
			q.mu.Unlock()
			if q.sleep(ctx, wait) != nil {
				return
			}
			continue
		}
		if q.spacing > 0 && !q.lastDispatch.IsZero() {
			if gap := now.Sub(q.lastDispatch); gap < q.spacing {
				wait := q.spacing - gap
				q.mu.Unlock()
				if q.sleep(ctx, wait) != nil {
					return
				}
				continue
			}
		}
		q.mu.Unlock()
		return
	}
}

// QueueDo runs fn through q and converts the untyped result back to T.
func QueueDo[T any](ctx context.Context, q *CallQueue, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := q.Do(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	return v.(T), nil
}
