package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance reservoir time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestReservoir_InitialFill(t *testing.T) {
	r := NewReservoir(15, 10, 30*time.Second)
	assert.Equal(t, 15, r.Available())
}

func TestReservoir_AcquireDebitsTokens(t *testing.T) {
	r := NewReservoir(15, 10, 30*time.Second)

	for i := 0; i < 15; i++ {
		require.NoError(t, r.Acquire(context.Background(), 1))
	}
	assert.Equal(t, 0, r.Available())
}

func TestReservoir_RefillNeverExceedsCapacity(t *testing.T) {
	clock := newFakeClock()
	r := NewReservoir(15, 10, 30*time.Second)
	r.now = clock.Now
	r.lastRefill = clock.Now()

	require.NoError(t, r.Acquire(context.Background(), 3))
	assert.Equal(t, 12, r.Available())

	// Two intervals restore 20 tokens but the reservoir clamps at capacity.
	clock.Advance(60 * time.Second)
	assert.Equal(t, 15, r.Available())
}

func TestReservoir_RefillIsDiscrete(t *testing.T) {
	clock := newFakeClock()
	r := NewReservoir(15, 10, 30*time.Second)
	r.now = clock.Now
	r.lastRefill = clock.Now()

	require.NoError(t, r.Acquire(context.Background(), 15))
	assert.Equal(t, 0, r.Available())

	// Mid-interval: no partial refill.
	clock.Advance(29 * time.Second)
	assert.Equal(t, 0, r.Available())

	clock.Advance(1 * time.Second)
	assert.Equal(t, 10, r.Available())
}

func TestReservoir_AcquireBlocksUntilRefill(t *testing.T) {
	r := NewReservoir(2, 2, 50*time.Millisecond)

	require.NoError(t, r.Acquire(context.Background(), 2))

	start := time.Now()
	require.NoError(t, r.Acquire(context.Background(), 1))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestReservoir_AcquireRespectsContextCancel(t *testing.T) {
	r := NewReservoir(1, 1, time.Hour)
	require.NoError(t, r.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Acquire(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReservoir_AcquireMoreThanCapacityFails(t *testing.T) {
	r := NewReservoir(5, 5, time.Second)
	err := r.Acquire(context.Background(), 6)
	assert.Error(t, err)
}

func TestReservoir_AcquireZeroIsNoop(t *testing.T) {
	r := NewReservoir(5, 5, time.Second)
	require.NoError(t, r.Acquire(context.Background(), 0))
	assert.Equal(t, 5, r.Available())
}

func TestReservoir_ConcurrentAcquireNeverOverdraws(t *testing.T) {
	r := NewReservoir(10, 10, 20*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, r.Acquire(context.Background(), 1))
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, r.Available(), 0)
}
