// Package ratelimit throttles outbound calls with a token bucket that
// releases waiting callers strictly in the order they arrived.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/bewie03/bubblemap/pkg/clock"
)

// Default configuration values (Blockfrost free tier allows 10 req/s)
const (
	DefaultRequestsPerSecond = 10.0
	DefaultBurst             = 10
)

// Option configures the Limiter
type Option func(*Limiter)

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithWaitObserver registers a callback receiving how long each caller queued
func WithWaitObserver(fn func(time.Duration)) Option {
	return func(l *Limiter) { l.observeWait = fn }
}

type waiter struct {
	wake chan struct{}
}

// Limiter is a token bucket with a FIFO queue of waiters.
//
// The bucket starts full. Permits refill linearly at the configured rate and
// never exceed the burst ceiling. Only the waiter at the head of the queue may
// take a permit; when it does, the next waiter is woken straight away so a full
// bucket drains without waiting for a refill tick.
type Limiter struct {
	mu          sync.Mutex
	clock       clock.Clock
	rate        float64
	burst       float64
	interval    time.Duration
	tokens      float64
	last        time.Time
	queue       []*waiter
	observeWait func(time.Duration)
}

// New creates a limiter allowing rps permits per second with the given burst ceiling.
// Non-positive values fall back to the defaults.
func New(rps float64, burst int, opts ...Option) *Limiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if burst < 1 {
		burst = DefaultBurst
	}

	l := &Limiter{
		clock:       clock.SystemClock{},
		rate:        rps,
		burst:       float64(burst),
		interval:    time.Duration(float64(time.Second) / rps),
		observeWait: func(time.Duration) {},
	}
	for _, opt := range opts {
		opt(l)
	}

	l.tokens = l.burst
	l.last = l.clock.Now()

	return l
}

// Wait blocks until the caller is at the head of the queue and a permit is available.
// It only fails when ctx is done, in which case the caller leaves the queue.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := l.clock.Now()
	w := &waiter{wake: make(chan struct{}, 1)}

	l.mu.Lock()
	l.queue = append(l.queue, w)
	l.mu.Unlock()

	for {
		if l.tryAcquire(w) {
			l.observeWait(l.clock.Now().Sub(start))
			return nil
		}

		select {
		case <-ctx.Done():
			l.leave(w)
			return ctx.Err()
		case <-w.wake:
		case <-l.clock.After(l.interval):
		}
	}
}

// Do waits for a permit and runs op. Errors returned by op reach the caller unchanged.
func (l *Limiter) Do(ctx context.Context, op func(context.Context) error) error {
	if err := l.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Schedule waits for a permit on l and runs op, returning its result.
func Schedule[T any](ctx context.Context, l *Limiter, op func(context.Context) (T, error)) (T, error) {
	if err := l.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return op(ctx)
}

// Pending returns the number of callers waiting for a permit
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Available returns the number of permits currently in the bucket
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// Interval returns the time it takes to refill a single permit
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

func (l *Limiter) tryAcquire(w *waiter) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 || l.queue[0] != w {
		return false
	}

	l.refill()
	if l.tokens < 1 {
		return false
	}

	l.tokens--
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.wakeHead()

	return true
}

// refill must be called with mu held
func (l *Limiter) refill() {
	now := l.clock.Now()
	elapsed := now.Sub(l.last)
	if elapsed <= 0 {
		return
	}
	l.tokens = math.Min(l.burst, l.tokens+elapsed.Seconds()*l.rate)
	l.last = now
}

// wakeHead must be called with mu held
func (l *Limiter) wakeHead() {
	if len(l.queue) == 0 {
		return
	}
	select {
	case l.queue[0].wake <- struct{}{}:
	default:
	}
}

func (l *Limiter) leave(w *waiter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, q := range l.queue {
		if q != w {
			continue
		}
		l.queue = append(l.queue[:i], l.queue[i+1:]...)
		if i == 0 {
			l.wakeHead()
		}
		return
	}
}
