package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is the trailing interval the sliding limiter counts calls over.
const Window = 60 * time.Second

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RealClock is the wall-clock implementation.
var RealClock Clock = realClock{}

// SlidingWindow admits at most capacity calls in any trailing 60s window.
// One instance is shared by every caller that draws on the same upstream budget.
type SlidingWindow struct {
	mu       sync.Mutex
	capacity int
	calls    []time.Time // ascending
	waits    int64
	clock    Clock
	onWait   func(time.Duration)
}

type Option func(*SlidingWindow)

func WithClock(c Clock) Option {
	return func(s *SlidingWindow) { s.clock = c }
}

// WithWaitHook is called once per blocking wait, before sleeping.
func WithWaitHook(fn func(time.Duration)) Option {
	return func(s *SlidingWindow) { s.onWait = fn }
}

// NewSlidingWindow builds a limiter for perMinute calls. Non-positive values
// fall back to 60.
func NewSlidingWindow(perMinute int, opts ...Option) *SlidingWindow {
	if perMinute <= 0 {
		perMinute = 60
	}
	s := &SlidingWindow{
		capacity: perMinute,
		calls:    make([]time.Time, 0, perMinute),
		clock:    RealClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until a call may proceed and then records it. It returns the
// time spent waiting, or ctx.Err() if the context ends first.
func (s *SlidingWindow) Wait(ctx context.Context) (time.Duration, error) {
	var waited time.Duration
	for {
		s.mu.Lock()
		now := s.clock.Now()
		s.pruneLocked(now)

		if len(s.calls) < s.capacity {
			s.calls = append(s.calls, now)
			s.mu.Unlock()
			return waited, nil
		}

		wait := Window - now.Sub(s.calls[0])
		if wait <= 0 {
			// Oldest entry sits exactly on the boundary; it leaves the window now.
			s.calls = append(s.calls[1:], now)
			s.mu.Unlock()
			return waited, nil
		}
		s.waits++
		hook := s.onWait
		s.mu.Unlock()

		if hook != nil {
			hook(wait)
		}
		if err := s.clock.Sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// pruneLocked drops timestamps older than the window.
func (s *SlidingWindow) pruneLocked(now time.Time) {
	i := 0
	for i < len(s.calls) && now.Sub(s.calls[i]) > Window {
		i++
	}
	if i > 0 {
		s.calls = append(s.calls[:0], s.calls[i:]...)
	}
}

// Waits returns how many times a caller had to block.
func (s *SlidingWindow) Waits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waits
}

// InFlight returns the number of calls currently inside the window.
func (s *SlidingWindow) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.clock.Now())
	return len(s.calls)
}

func (s *SlidingWindow) Capacity() int { return s.capacity }
