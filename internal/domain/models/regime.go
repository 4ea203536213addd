package models

import (
	"encoding/json"
	"time"
)

// RegimeType is the discrete market state assigned by the classifier.
type RegimeType string

const (
	RegimeBullTrend       RegimeType = "BULL_TREND"
	RegimeBearTrend       RegimeType = "BEAR_TREND"
	RegimeVolatilitySpike RegimeType = "VOLATILITY_SPIKE"
	RegimeStagnation      RegimeType = "STAGNATION"
	RegimeRangeBound      RegimeType = "RANGE_BOUND"
	RegimeLowLiquidity    RegimeType = "LOW_LIQUIDITY"
)

// AllRegimes lists every regime in declaration order.
var AllRegimes = []RegimeType{
	RegimeBullTrend,
	RegimeBearTrend,
	RegimeVolatilitySpike,
	RegimeStagnation,
	RegimeRangeBound,
	RegimeLowLiquidity,
}

func (r RegimeType) Valid() bool {
	for _, v := range AllRegimes {
		if r == v {
			return true
		}
	}
	return false
}

type Regime struct {
	Symbol    Symbol     `json:"symbol,omitempty"`
	Type      RegimeType `json:"type"`
	Rule      string     `json:"rule"`
	Timestamp time.Time  `json:"timestamp"`
}

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// VetoDecision: Severity is nil iff ShouldVeto is false iff Reasons is empty.
type VetoDecision struct {
	ShouldVeto bool      `json:"should_veto"`
	Reasons    []string  `json:"reasons"`
	Severity   *Severity `json:"severity"`
}

// NoVeto is the decision when nothing blocks the signal.
func NoVeto() VetoDecision {
	return VetoDecision{Reasons: []string{}}
}

// Veto builds a blocking decision.
func Veto(sev Severity, reasons ...string) VetoDecision {
	return VetoDecision{ShouldVeto: true, Reasons: reasons, Severity: &sev}
}

// SeverityString returns the severity or "" when there is none.
func (d VetoDecision) SeverityString() string {
	if d.Severity == nil {
		return ""
	}
	return string(*d.Severity)
}

// Evaluation is one full pipeline run for a symbol.
type Evaluation struct {
	ID          string            `json:"id"`
	Symbol      Symbol            `json:"symbol"`
	Quote       *Quote            `json:"quote,omitempty"`
	Snapshot    IndicatorSnapshot `json:"snapshot"`
	Regime      Regime            `json:"regime"`
	Veto        VetoDecision      `json:"veto"`
	Narrative   string            `json:"narrative,omitempty"`
	Bars        int               `json:"bars"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
	Duration    time.Duration     `json:"duration_ns"`
}

// SnapshotJSON is used by stores that keep the snapshot as a blob.
func (e *Evaluation) SnapshotJSON() string {
	b, err := json.Marshal(e.Snapshot)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Classification is the result of a pure classify+veto over a snapshot.
type Classification struct {
	Snapshot    IndicatorSnapshot `json:"snapshot"`
	Regime      Regime            `json:"regime"`
	Veto        VetoDecision      `json:"veto"`
	ResetFields []string          `json:"reset_fields,omitempty"`
}
