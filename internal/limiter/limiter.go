// Package limiter bounds the number of in-flight generation calls,
// queueing excess callers in strict arrival order.
package limiter

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Limiter grants at most bound concurrent slots. Waiters are promoted in
// strict FIFO order; a slot is always released when its holder settles,
// whether by success, failure, or panic.
type Limiter struct {
	mu      sync.Mutex
	bound   int
	active  int
	waiters []chan struct{}
	gauge   prometheus.Gauge // queue depth, may be nil
}

// New creates a limiter with the given concurrency bound (minimum 1).
func New(bound int) *Limiter {
	if bound < 1 {
		bound = 1
	}
	return &Limiter{bound: bound}
}

// WithQueueGauge publishes the waiter count to g. Passed explicitly, no
// global registry coupling.
func (l *Limiter) WithQueueGauge(g prometheus.Gauge) *Limiter {
	l.gauge = g
	return l
}

// Do runs task while holding a slot. Callers past the bound wait in FIFO
// order until a slot frees. The task's error is returned as-is; the slot is
// released even if task panics. Waiting stops early when ctx is done.
func (l *Limiter) Do(ctx context.Context, task func() error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return task()
}

func (l *Limiter) acquire(ctx context.Context) error {
	l.mu.Lock()
	// No queue-jumping: a free slot goes to the head of the queue first.
	if l.active < l.bound && len(l.waiters) == 0 {
		l.active++
		l.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	l.waiters = append(l.waiters, ready)
	l.setGauge()
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range l.waiters {
			if w == ready {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				l.setGauge()
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		l.mu.Unlock()
		// The grant raced the cancellation and won: we own a slot now.
		// Hand it straight to the next waiter.
		l.release()
		return ctx.Err()
	}
}

func (l *Limiter) release() {
	l.mu.Lock()
	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		l.setGauge()
		l.mu.Unlock()
		// Slot ownership transfers to next; active count is unchanged.
		close(next)
		return
	}
	l.active--
	l.mu.Unlock()
}

// QueueDepth returns the number of callers currently waiting.
func (l *Limiter) QueueDepth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

// setGauge must be called with mu held.
func (l *Limiter) setGauge() {
	if l.gauge != nil {
		l.gauge.Set(float64(len(l.waiters)))
	}
}
