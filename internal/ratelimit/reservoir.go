// Package ratelimit implements the shared token reservoir that bounds calls
// to the embedding service. One Reservoir is constructed at process start and
// handed to every embedding call site; per-call-site instances would not
// honor the global budget.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Reservoir is a token reservoir with a fixed capacity, refilled by a fixed
// amount at fixed intervals. Acquire blocks until tokens are available; it
// never fails due to rate limiting alone. Available tokens never exceed the
// capacity.
type Reservoir struct {
	mu           sync.Mutex
	capacity     int
	refillAmount int
	interval     time.Duration
	tokens       int
	lastRefill   time.Time

	now func() time.Time // replaced in tests
}

// NewReservoir creates a full Reservoir. capacity is the initial fill and the
// hard ceiling; refillAmount tokens are restored every interval.
func NewReservoir(capacity, refillAmount int, interval time.Duration) *Reservoir {
	if capacity <= 0 {
		capacity = 1
	}
	if refillAmount <= 0 {
		refillAmount = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	r := &Reservoir{
		capacity:     capacity,
		refillAmount: refillAmount,
		interval:     interval,
		tokens:       capacity,
		now:          time.Now,
	}
	r.lastRefill = r.now()
	return r
}

// Acquire debits n tokens, blocking until the reservoir holds at least n.
// It returns early only when ctx is cancelled.
func (r *Reservoir) Acquire(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if n > r.capacity {
		return fmt.Errorf("cannot acquire %d tokens from reservoir of capacity %d", n, r.capacity)
	}

	for {
		r.mu.Lock()
		r.refillLocked()
		if r.tokens >= n {
			r.tokens -= n
			r.mu.Unlock()
			return nil
		}
		wait := r.lastRefill.Add(r.interval).Sub(r.now())
		r.mu.Unlock()

		if wait <= 0 {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available reports the tokens currently held, after applying any due refills.
func (r *Reservoir) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	return r.tokens
}

// refillLocked credits all refill intervals elapsed since the last refill.
// Callers must hold r.mu.
func (r *Reservoir) refillLocked() {
	elapsed := r.now().Sub(r.lastRefill)
	if elapsed < r.interval {
		return
	}
	intervals := int(elapsed / r.interval)
	r.tokens += intervals * r.refillAmount
	if r.tokens > r.capacity {
		r.tokens = r.capacity
	}
	r.lastRefill = r.lastRefill.Add(time.Duration(intervals) * r.interval)
}
