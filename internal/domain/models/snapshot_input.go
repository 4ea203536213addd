package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var snapshotValidator = validator.New()

// SnapshotInput is a partially-specified snapshot, e.g. supplied over HTTP.
// Missing or invalid fields fall back to the values in the default tags.
type SnapshotInput struct {
	Symbol            string   `json:"symbol"`
	Volatility        *float64 `json:"volatility" default:"0" validate:"gte=0"`
	Current           *float64 `json:"current" default:"0" validate:"gte=0"`
	MA50              *float64 `json:"ma50" default:"0" validate:"gte=0"`
	MA200             *float64 `json:"ma200" default:"0" validate:"gte=0"`
	Trend             string   `json:"trend" default:"unknown" validate:"oneof=strong_uptrend uptrend holding downtrend unknown"`
	PricePosition     string   `json:"price_position" default:"unknown" validate:"oneof=above below at unknown"`
	RSI               *float64 `json:"rsi" default:"50" validate:"gte=0,lte=100"`
	MACD              *float64 `json:"macd" default:"0" validate:"gte=-1e12,lte=1e12"`
	MACDSignal        *float64 `json:"macd_signal" default:"0" validate:"gte=-1e12,lte=1e12"`
	MACDHistogram     *float64 `json:"macd_histogram" default:"0" validate:"gte=-1e12,lte=1e12"`
	MACDCondition     string   `json:"macd_condition" default:"neutral" validate:"oneof=strong_bullish bullish neutral bearish strong_bearish"`
	MACDCrossover     string   `json:"macd_crossover" validate:"omitempty,oneof=buy sell no_signal"`
	BollingerUpper    *float64 `json:"bollinger_upper" default:"0" validate:"gte=0"`
	BollingerMiddle   *float64 `json:"bollinger_middle" default:"0" validate:"gte=0"`
	BollingerLower    *float64 `json:"bollinger_lower" default:"0" validate:"gte=0"`
	Bandwidth         *float64 `json:"bandwidth" default:"0.1" validate:"gte=0"`
	BollingerPosition string   `json:"bollinger_position" default:"unknown" validate:"oneof=far_above above_upper upper_half lower_half below_lower far_below unknown"`
	ADX               *float64 `json:"adx" default:"0" validate:"gte=0"`
	OBV               *float64 `json:"obv" default:"0" validate:"gte=-1e15,lte=1e15"`
	OBVMovingAverage  *float64 `json:"obv_moving_average" default:"0" validate:"gte=-1e15,lte=1e15"`
	OBVTrend          string   `json:"obv_trend" default:"neutral" validate:"oneof=bullish bearish neutral"`
	VolumeRatio       *float64 `json:"volume_ratio" default:"1" validate:"gte=0"`
	Liquidity         string   `json:"liquidity" default:"normal" validate:"oneof=low normal high"`
	VolumeTrend       string   `json:"volume_trend" default:"stable" validate:"oneof=increasing stable decreasing"`
	Divergence        string   `json:"divergence" validate:"omitempty,oneof=bullish bearish"`
	VIX               *float64 `json:"vix" default:"12" validate:"gte=0,lte=200"`

	// fields dropped by DecodeSnapshotInput, reported as reset
	dropped []string
}

// snapshotFields indexes SnapshotInput fields by lower-cased json name.
var snapshotFields = func() map[string]int {
	t := reflect.TypeOf(SnapshotInput{})
	idx := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		idx[strings.ToLower(name)] = i
	}
	return idx
}()

// DecodeSnapshotInput decodes a JSON object field by field. A field whose
// value has the wrong type is left unset and later reported by Normalize as
// reset. Only a body that is not a JSON object is an error.
func DecodeSnapshotInput(body []byte) (SnapshotInput, error) {
	var in SnapshotInput
	if len(bytes.TrimSpace(body)) == 0 {
		return in, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return in, fmt.Errorf("%w: snapshot must be a JSON object: %v", ErrValidation, err)
	}

	v := reflect.ValueOf(&in).Elem()
	t := v.Type()
	for key, msg := range raw {
		i, ok := snapshotFields[strings.ToLower(key)]
		if !ok {
			continue
		}
		dst := reflect.New(t.Field(i).Type)
		if err := json.Unmarshal(msg, dst.Interface()); err != nil {
			in.dropped = append(in.dropped, t.Field(i).Name)
			continue
		}
		v.Field(i).Set(dst.Elem())
	}
	sort.Strings(in.dropped)
	return in, nil
}

// DefaultVIX is used when no benchmark volatility is available.
const DefaultVIX = 12.0

// Normalize fills absent fields, resets invalid ones to their defaults and
// returns a complete snapshot. It only fails if the default tags themselves
// are broken.
func (in SnapshotInput) Normalize() (IndicatorSnapshot, []string, error) {
	if err := defaults.Set(&in); err != nil {
		return IndicatorSnapshot{}, nil, fmt.Errorf("apply snapshot defaults: %w", err)
	}

	reset := append([]string(nil), in.dropped...)
	if err := snapshotValidator.Struct(&in); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return IndicatorSnapshot{}, nil, fmt.Errorf("validate snapshot: %w", err)
		}
		v := reflect.ValueOf(&in).Elem()
		for _, fe := range verrs {
			f := v.FieldByName(fe.StructField())
			if f.IsValid() && f.CanSet() {
				f.Set(reflect.Zero(f.Type()))
				reset = append(reset, fe.StructField())
			}
		}
		if err := defaults.Set(&in); err != nil {
			return IndicatorSnapshot{}, nil, fmt.Errorf("apply snapshot defaults: %w", err)
		}
	}

	cond := MACDCondition(in.MACDCondition)
	cross := MACDSignal(in.MACDCrossover)
	if cross == "" {
		cross = cond.Crossover()
	}

	snap := IndicatorSnapshot{
		Symbol:        Symbol(in.Symbol),
		Volatility:    *in.Volatility,
		Trend:         TrendIndicator{Current: *in.Current, MA50: *in.MA50, MA200: *in.MA200, Trend: MATrend(in.Trend)},
		PricePosition: PricePosition(in.PricePosition),
		RSI:           *in.RSI,
		MACD: MACDIndicator{
			Value:     *in.MACD,
			Signal:    *in.MACDSignal,
			Histogram: *in.MACDHistogram,
			Condition: cond,
			Crossover: cross,
		},
		Bollinger: BollingerIndicator{
			Upper:     *in.BollingerUpper,
			Middle:    *in.BollingerMiddle,
			Lower:     *in.BollingerLower,
			Bandwidth: *in.Bandwidth,
			Position:  BandPosition(in.BollingerPosition),
		},
		ADX: *in.ADX,
		OBV: OBVIndicator{
			Value:         *in.OBV,
			MovingAverage: *in.OBVMovingAverage,
			Trend:         OBVTrend(in.OBVTrend),
			VolumeRatio:   *in.VolumeRatio,
			Liquidity:     Liquidity(in.Liquidity),
			VolumeTrend:   VolumeTrend(in.VolumeTrend),
			Divergence:    Divergence(in.Divergence),
		},
		VIX:        VIXIndicator{Value: *in.VIX, Bucket: BucketForVIX(*in.VIX)},
		ComputedAt: time.Now().UTC(),
	}
	if in.Symbol != "" {
		if s, err := NormalizeSymbol(in.Symbol); err == nil {
			snap.Symbol = s
		}
	}
	return snap, reset, nil
}

// DefaultSnapshot has every field at its documented default.
func DefaultSnapshot() IndicatorSnapshot {
	snap, _, _ := SnapshotInput{}.Normalize()
	return snap
}
