package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "regimeguard"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	upstreamCalls  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	rateLimitWaits prometheus.Histogram
	errorsTotal    *prometheus.CounterVec
	regimes        *prometheus.CounterVec
	vetoes         *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		upstreamCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Upstream market-data API calls, one per attempt",
			},
			[]string{"endpoint"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by data class and result",
			},
			[]string{"class", "result"},
		),
		rateLimitWaits: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_limit_wait_seconds",
				Help:      "Time spent blocked on the upstream rate limiter",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60},
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		regimes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "regime_classifications_total",
				Help:      "Classifications by regime",
			},
			[]string{"regime"},
		),
		vetoes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "veto_decisions_total",
				Help:      "Veto decisions by severity, none when the signal passed",
			},
			[]string{"severity"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordUpstreamCall(endpoint string) {
	r.upstreamCalls.WithLabelValues(endpoint).Inc()
}

func (r *Recorder) RecordCacheLookup(class string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(class, result).Inc()
}

func (r *Recorder) RecordRateLimitWait(seconds float64) {
	r.rateLimitWaits.Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordRegime(regime string) {
	r.regimes.WithLabelValues(regime).Inc()
}

func (r *Recorder) RecordVeto(severity string) {
	if severity == "" {
		severity = "none"
	}
	r.vetoes.WithLabelValues(severity).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordUpstreamCall(string)      {}
func (Nop) RecordCacheLookup(string, bool) {}
func (Nop) RecordRateLimitWait(float64)    {}
func (Nop) RecordError(string)             {}
func (Nop) RecordRegime(string)            {}
func (Nop) RecordVeto(string)              {}
func (Nop) RecordLatency(string, float64)  {}
