package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter keeps one token bucket per key, e.g. per client IP.
type KeyedLimiter struct {
	mu      sync.Mutex
	m       map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewKeyed allows perSecond requests per key with the given burst.
// Buckets unused for idleTTL are dropped lazily.
func NewKeyed(perSecond float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		m:       make(map[string]*entry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: idleTTL,
	}
}

// Allow returns true if one token can be consumed for key.
func (k *KeyedLimiter) Allow(key string) bool {
	now := time.Now()
	k.mu.Lock()
	e, ok := k.m[key]
	if !ok {
		if len(k.m) > 1024 {
			k.sweepLocked(now)
		}
		e = &entry{lim: rate.NewLimiter(k.limit, k.burst)}
		k.m[key] = e
	}
	e.seen = now
	k.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

func (k *KeyedLimiter) sweepLocked(now time.Time) {
	for key, e := range k.m {
		if now.Sub(e.seen) > k.idleTTL {
			delete(k.m, key)
		}
	}
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
