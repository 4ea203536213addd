package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu      sync.Mutex
	batches [][]AggregatedLogEntry
}

func (s *memSink) PublishLogs(_ context.Context, entries []AggregatedLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, entries)
	return nil
}

func (s *memSink) all() []AggregatedLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel).With(String("component", "test"))

	l.Info("evaluated",
		String("symbol", "AAPL"),
		Int("bars", 250),
		Float64("rsi", 71.5),
		Bool("veto", true),
		Duration("took_ms", 1500*time.Millisecond),
		Strings("reasons", []string{"a", "b"}),
		Error(errors.New("boom")),
	)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "evaluated", line["message"])
	assert.Equal(t, "test", line["component"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.EqualValues(t, 250, line["bars"])
	assert.EqualValues(t, 1500, line["took_ms"])
	assert.Equal(t, "a, b", line["reasons"])
	assert.Equal(t, "boom", line["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestCollectorAggregatesWarnAndError(t *testing.T) {
	sink := &memSink{}
	l := NewWriter(&bytes.Buffer{}, zerolog.DebugLevel)
	l.AddCollector(&CollectionConfig{FlushInterval: time.Hour, CountThreshold: 100, Sink: sink})

	for i := 0; i < 3; i++ {
		l.Warn("upstream slow", String("endpoint", "candle"))
	}
	l.Error("upstream failed", String("endpoint", "quote"))
	l.Info("not collected")
	l.Debug("not collected")

	l.RemoveCollector()

	entries := sink.all()
	require.Len(t, entries, 2)
	byMsg := map[string]AggregatedLogEntry{}
	for _, e := range entries {
		byMsg[e.Message] = e
	}
	assert.Equal(t, 3, byMsg["upstream slow"].Count)
	assert.Equal(t, "warn", byMsg["upstream slow"].Level)
	assert.Equal(t, "candle", byMsg["upstream slow"].Fields["endpoint"])
	assert.Equal(t, 1, byMsg["upstream failed"].Count)
	assert.Equal(t, "error", byMsg["upstream failed"].Level)
}

func TestCollectorDistinctFieldsAreSeparateEntries(t *testing.T) {
	sink := &memSink{}
	c := NewLogCollector(&CollectionConfig{FlushInterval: time.Hour, Sink: sink})

	c.AddLog("warn", "retry", map[string]interface{}{"attempt": 1}, "x.go:1")
	c.AddLog("warn", "retry", map[string]interface{}{"attempt": 2}, "x.go:1")
	c.AddLog("warn", "retry", map[string]interface{}{"attempt": 1}, "x.go:1")
	assert.Equal(t, 2, c.Pending())

	c.Close()
	assert.Len(t, sink.all(), 2)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	sink := &memSink{}
	c := NewLogCollector(&CollectionConfig{FlushInterval: time.Hour, CountThreshold: 2, Sink: sink})
	defer c.Close()

	c.AddLog("warn", "a", nil, "x.go:1")
	c.AddLog("warn", "b", nil, "x.go:2")

	assert.Eventually(t, func() bool { return len(sink.all()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, c.Pending())
}
