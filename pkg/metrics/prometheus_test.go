package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordUpstreamCall("quote")
	r.RecordUpstreamCall("quote")
	r.RecordCacheLookup("candles", true)
	r.RecordCacheLookup("candles", false)
	r.RecordCacheLookup("candles", false)
	r.RecordError("rate_limit_exceeded")
	r.RecordRegime("BULL_TREND")
	r.RecordVeto("")
	r.RecordVeto("HIGH")
	r.RecordRateLimitWait(1.5)
	r.RecordLatency("evaluate", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.upstreamCalls.WithLabelValues("quote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("candles", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("candles", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("rate_limit_exceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.regimes.WithLabelValues("BULL_TREND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.vetoes.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.vetoes.WithLabelValues("HIGH")))
}

func TestNewWithRegistry_Twice(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
