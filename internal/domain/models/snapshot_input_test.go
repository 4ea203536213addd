package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshotInput(t *testing.T) {
	in, err := DecodeSnapshotInput([]byte(`{"rsi":"high","VIX":35,"macd_condition":["x"],"unknown":1,"symbol":"msft"}`))
	require.NoError(t, err)

	snap, reset, err := in.Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"MACDCondition", "RSI"}, reset)
	assert.Equal(t, 50.0, snap.RSI)
	assert.Equal(t, 35.0, snap.VIX.Value)
	assert.Equal(t, VIXExtreme, snap.VIX.Bucket)
	assert.Equal(t, MACDNeutral, snap.MACD.Condition)
	assert.Equal(t, Symbol("MSFT"), snap.Symbol)
}

func TestDecodeSnapshotInput_OutOfRangeAndMistyped(t *testing.T) {
	in, err := DecodeSnapshotInput([]byte(`{"rsi":150,"adx":"strong","liquidity":"high"}`))
	require.NoError(t, err)

	snap, reset, err := in.Normalize()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ADX", "RSI"}, reset)
	assert.Equal(t, 0.0, snap.ADX)
	assert.Equal(t, LiquidityHigh, snap.OBV.Liquidity)
}

func TestDecodeSnapshotInput_Body(t *testing.T) {
	in, err := DecodeSnapshotInput(nil)
	require.NoError(t, err)
	snap, reset, err := in.Normalize()
	require.NoError(t, err)
	assert.Empty(t, reset)
	assert.Equal(t, DefaultVIX, snap.VIX.Value)

	for _, body := range []string{`[1]`, `"rsi"`, `{"rsi":`} {
		_, err := DecodeSnapshotInput([]byte(body))
		assert.True(t, errors.Is(err, ErrValidation), body)
	}
}

func TestDivergenceJSON(t *testing.T) {
	raw, err := json.Marshal(OBVIndicator{})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"divergence":null`)

	raw, err = json.Marshal(OBVIndicator{Divergence: DivergenceBearish})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"divergence":"bearish"`)

	var back OBVIndicator
	require.NoError(t, json.Unmarshal([]byte(`{"divergence":null}`), &back))
	assert.Equal(t, DivergenceNone, back.Divergence)
	require.NoError(t, json.Unmarshal([]byte(`{"divergence":"bullish"}`), &back))
	assert.Equal(t, DivergenceBullish, back.Divergence)
}

func TestRegimeJSON(t *testing.T) {
	ts := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(Regime{Symbol: "AAPL", Type: RegimeBullTrend, Rule: "bull_trend", Timestamp: ts})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Len(t, fields, 4)
	assert.Equal(t, "BULL_TREND", fields["type"])
	assert.Equal(t, "bull_trend", fields["rule"])
}
