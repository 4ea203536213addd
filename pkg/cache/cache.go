package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Sentinel TTL results, matching Redis TTL semantics.
const (
	NoExpiry  time.Duration = -1
	KeyAbsent time.Duration = -2
)

// Stats is a point-in-time view of lookup counters and key count.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	TotalKeys int64   `json:"total_keys"`
}

// Store is a key/value cache with TTL. Every Get counts as a hit or a miss.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	Stats(ctx context.Context) (Stats, error)
	Health(ctx context.Context) bool
	Close() error
}

// GetOrCompute returns the cached value under key or, on a miss, calls
// factory, stores its result for ttl and returns it. A ttl <= 0 skips the
// store. Errors other than a miss are returned without calling factory.
func GetOrCompute[T any](ctx context.Context, s Store, key string, ttl time.Duration, factory func(context.Context) (T, error)) (T, error) {
	var out T
	err := s.Get(ctx, key, &out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return out, err
	}

	out, err = factory(ctx)
	if err != nil {
		return out, err
	}
	if ttl > 0 {
		if err := s.Set(ctx, key, out, ttl); err != nil {
			return out, err
		}
	}
	return out, nil
}

type counters struct {
	hits   int64
	misses int64
}

func (c *counters) snapshot(totalKeys int64) Stats {
	st := Stats{Hits: c.hits, Misses: c.misses, TotalKeys: totalKeys}
	if total := c.hits + c.misses; total > 0 {
		st.HitRate = float64(c.hits) / float64(total)
	}
	return st
}
