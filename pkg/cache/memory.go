package cache

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"
)

type memoryItem struct {
	data       []byte
	expireAt   time.Time // zero means no expiry
	lastAccess time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && !now.Before(m.expireAt)
}

// MemoryCache implements Store in process memory with LRU eviction.
// Values are stored encoded so reads behave like the Redis store.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	maxSize int
	now     func() time.Time
	stats   counters
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         10000,
		CleanupInterval: 5 * time.Minute,
		Now:             time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:    make(map[string]*memoryItem),
		maxSize: cfg.MaxSize,
		now:     cfg.Now,
		done:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		mc.ticker = time.NewTicker(cfg.CleanupInterval)
		go mc.cleanupLoop()
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	if _, exists := mc.data[key]; !exists && mc.maxSize > 0 && len(mc.data) >= mc.maxSize {
		mc.evictLocked(now)
	}

	item := &memoryItem{data: data, lastAccess: now}
	if ttl > 0 {
		item.expireAt = now.Add(ttl)
	}
	mc.data[key] = item
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	now := mc.now()
	item, ok := mc.data[key]
	if ok && item.expired(now) {
		delete(mc.data, key)
		ok = false
	}
	if !ok {
		mc.stats.misses++
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	item.lastAccess = now
	data := item.data
	mc.mu.Unlock()

	err := decode(data, dest)

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if err != nil {
		mc.stats.misses++
		return fmt.Errorf("%w: decode %s: %v", ErrCacheMiss, key, err)
	}
	mc.stats.hits++
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, key string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.data[key]
	if !ok {
		return false, nil
	}
	delete(mc.data, key)
	return !item.expired(mc.now()), nil
}

func (mc *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.data[key]
	return ok && !item.expired(mc.now()), nil
}

func (mc *MemoryCache) TTL(_ context.Context, key string) (time.Duration, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	item, ok := mc.data[key]
	if !ok || item.expired(now) {
		return KeyAbsent, nil
	}
	if item.expireAt.IsZero() {
		return NoExpiry, nil
	}
	return item.expireAt.Sub(now), nil
}

// DeleteByPattern supports the glob syntax of path.Match (*, ?, [...]).
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var removed int64
	for key := range mc.data {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return removed, err
		}
		if ok {
			delete(mc.data, key)
			removed++
		}
	}
	return removed, nil
}

func (mc *MemoryCache) Stats(_ context.Context) (Stats, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	var live int64
	for _, item := range mc.data {
		if !item.expired(now) {
			live++
		}
	}
	return mc.stats.snapshot(live), nil
}

func (mc *MemoryCache) Health(context.Context) bool {
	select {
	case <-mc.done:
		return false
	default:
		return true
	}
}

// evictLocked drops expired items, or the least recently used one if none expired.
func (mc *MemoryCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
		dropped   bool
	)
	for key, item := range mc.data {
		if item.expired(now) {
			delete(mc.data, key)
			dropped = true
			continue
		}
		if oldestKey == "" || item.lastAccess.Before(oldest) {
			oldestKey, oldest = key, item.lastAccess
		}
	}
	if !dropped && oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}

func (mc *MemoryCache) cleanupLoop() {
	for {
		select {
		case <-mc.ticker.C:
			mc.mu.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
				}
			}
			mc.mu.Unlock()
		case <-mc.done:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		if mc.ticker != nil {
			mc.ticker.Stop()
		}
		close(mc.done)
	})
	return nil
}
