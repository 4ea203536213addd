package marketdata

import "time"

// TTLConfig holds the cache lifetime per data class. Zero means always fresh.
type TTLConfig struct {
	Quote           time.Duration
	News            time.Duration
	Candles         time.Duration
	Financials      time.Duration
	Recommendations time.Duration
	Insiders        time.Duration
	Earnings        time.Duration
	Profile         time.Duration
	Peers           time.Duration
}

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// DefaultTTLs returns the always-fresh / daily / weekly tiers.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		Candles:         day,
		Financials:      day,
		Recommendations: day,
		Insiders:        day,
		Earnings:        day,
		Profile:         week,
		Peers:           week,
	}
}

// RetryPolicy bounds the retry loop of a single fetch.
type RetryPolicy struct {
	MaxAttempts       int
	RateLimitBackoff  time.Duration
	ServerBackoffBase time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		RateLimitBackoff:  60 * time.Second,
		ServerBackoffBase: time.Second,
	}
}

// serverBackoff is 2^attempt * base, attempt counted from 1.
func (p RetryPolicy) serverBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * p.ServerBackoffBase
}

// CacheErrorPolicy decides what happens when the cache itself fails.
type CacheErrorPolicy string

const (
	// OnCacheErrorFresh fetches upstream and skips the store.
	OnCacheErrorFresh CacheErrorPolicy = "fresh"
	// OnCacheErrorFail returns models.ErrCacheUnavailable.
	OnCacheErrorFail CacheErrorPolicy = "fail"
)

// DefaultWindowDays is the FetchAll range when none is given.
const DefaultWindowDays = 30
