package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestSlidingWindowUnderCapacityDoesNotWait(t *testing.T) {
	clk := newFakeClock()
	l := NewSlidingWindow(5, WithClock(clk))

	for i := 0; i < 5; i++ {
		waited, err := l.Wait(context.Background())
		require.NoError(t, err)
		assert.Zero(t, waited)
		clk.Advance(time.Second)
	}
	assert.Zero(t, l.Waits())
	assert.Empty(t, clk.sleeps)
}

func TestSlidingWindowBlocksNPlusOne(t *testing.T) {
	clk := newFakeClock()
	l := NewSlidingWindow(3, WithClock(clk))

	for i := 0; i < 3; i++ {
		_, err := l.Wait(context.Background())
		require.NoError(t, err)
		clk.Advance(10 * time.Second)
	}
	// 30s since the oldest call; the 4th must wait the remaining 30s.
	waited, err := l.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, waited)
	assert.GreaterOrEqual(t, waited, Window-30*time.Second)
	assert.LessOrEqual(t, waited, Window)
	assert.Equal(t, int64(1), l.Waits())
}

func TestSlidingWindowProceedsAfterWindowElapses(t *testing.T) {
	clk := newFakeClock()
	l := NewSlidingWindow(2, WithClock(clk))

	for i := 0; i < 2; i++ {
		_, err := l.Wait(context.Background())
		require.NoError(t, err)
	}
	clk.Advance(61 * time.Second)

	waited, err := l.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Equal(t, 1, l.InFlight())
}

func TestSlidingWindowBoundaryEntryIsReplaced(t *testing.T) {
	clk := newFakeClock()
	l := NewSlidingWindow(1, WithClock(clk))

	_, err := l.Wait(context.Background())
	require.NoError(t, err)
	clk.Advance(Window)

	waited, err := l.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Equal(t, 1, l.InFlight())
}

func TestSlidingWindowWaitHookAndCancel(t *testing.T) {
	clk := newFakeClock()
	var hooked []time.Duration
	l := NewSlidingWindow(1, WithClock(clk), WithWaitHook(func(d time.Duration) { hooked = append(hooked, d) }))

	_, err := l.Wait(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{Window}, hooked)
}

func TestSlidingWindowDefaultCapacity(t *testing.T) {
	assert.Equal(t, 60, NewSlidingWindow(0).Capacity())
}

func TestSlidingWindowConcurrentCallersNeverExceedCapacity(t *testing.T) {
	clk := newFakeClock()
	l := NewSlidingWindow(10, WithClock(clk))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Wait(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, l.InFlight())
	assert.Zero(t, l.Waits())
}

func TestKeyedLimiter(t *testing.T) {
	k := NewKeyed(1, 2, time.Minute)
	assert.True(t, k.Allow("10.0.0.1"))
	assert.True(t, k.Allow("10.0.0.1"))
	assert.False(t, k.Allow("10.0.0.1"))
	assert.True(t, k.Allow("10.0.0.2"))
	assert.Equal(t, 2, k.Len())
}
