package marketdata

import "sync"

// Stats summarizes upstream usage since the client was created.
type Stats struct {
	APICalls       int64            `json:"api_calls"`
	CacheHits      int64            `json:"cache_hits"`
	CacheMisses    int64            `json:"cache_misses"`
	CacheHitRate   float64          `json:"cache_hit_rate"`
	RateLimitWaits int64            `json:"rate_limit_waits"`
	Errors         map[string]int64 `json:"errors"`
}

type statsTracker struct {
	mu     sync.Mutex
	calls  int64
	hits   int64
	misses int64
	waits  int64
	errors map[string]int64
}

func newStatsTracker() *statsTracker {
	return &statsTracker{errors: make(map[string]int64)}
}

func (s *statsTracker) call() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *statsTracker) lookup(hit bool) {
	s.mu.Lock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
	s.mu.Unlock()
}

func (s *statsTracker) wait() {
	s.mu.Lock()
	s.waits++
	s.mu.Unlock()
}

func (s *statsTracker) track(key string) {
	s.mu.Lock()
	s.errors[key]++
	s.mu.Unlock()
}

func (s *statsTracker) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make(map[string]int64, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	st := Stats{
		APICalls:       s.calls,
		CacheHits:      s.hits,
		CacheMisses:    s.misses,
		RateLimitWaits: s.waits,
		Errors:         errs,
	}
	if total := s.hits + s.misses; total > 0 {
		st.CacheHitRate = float64(s.hits) / float64(total)
	}
	return st
}
