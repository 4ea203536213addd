package veto

import (
	"fmt"

	"RegimeGuard/internal/domain/models"
	domsvc "RegimeGuard/internal/domain/service"
	"RegimeGuard/pkg/logger"
)

// Thresholds. Regime-specific checks are strict; the extreme RSI pair is
// inclusive.
const (
	bullRSIMax      = 75.0
	bullVIXMax      = 25.0
	bearRSIMin      = 25.0
	bearVIXMax      = 40.0
	breakoutADXLow  = 20.0
	breakoutADXHigh = 25.0
	squeezeBW       = 0.05
	conflictADX     = 25.0
	extremeRSIHigh  = 80.0
	extremeRSILow   = 20.0
	panicVIX        = 35.0
)

// Engine decides whether a trade signal for a classified regime is blocked.
type Engine struct {
	log *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{log: log}
}

var _ domsvc.VetoEvaluator = (*Engine)(nil)

// Evaluate runs the CRITICAL, HIGH and MEDIUM tiers in order. A CRITICAL
// finding returns at once with a single reason; otherwise reasons accumulate
// and severity is HIGH for several, MEDIUM for one.
func (e *Engine) Evaluate(symbol models.Symbol, regime models.RegimeType, snap *models.IndicatorSnapshot) models.VetoDecision {
	if snap == nil {
		fallback := models.DefaultSnapshot()
		snap = &fallback
	}

	if reason, ok := critical(regime, snap); ok {
		e.log.Warn("critical veto", logger.String("symbol", string(symbol)),
			logger.String("regime", string(regime)), logger.String("reason", reason))
		return models.Veto(models.SeverityCritical, reason)
	}

	reasons := regimeChecks(regime, snap)
	reasons = append(reasons, crossChecks(snap)...)

	switch len(reasons) {
	case 0:
		return models.NoVeto()
	case 1:
		return models.Veto(models.SeverityMedium, reasons...)
	default:
		return models.Veto(models.SeverityHigh, reasons...)
	}
}

func critical(regime models.RegimeType, s *models.IndicatorSnapshot) (string, bool) {
	switch {
	case regime == models.RegimeVolatilitySpike:
		return fmt.Sprintf("Volatility spike regime (VIX %.1f): no new positions", s.VIX.Value), true
	case regime == models.RegimeLowLiquidity:
		return "Low liquidity regime: insufficient market depth", true
	case s.OBV.Liquidity == models.LiquidityLow:
		return fmt.Sprintf("Liquidity critically low (volume ratio %.2f)", s.OBV.VolumeRatio), true
	}
	return "", false
}

func regimeChecks(regime models.RegimeType, s *models.IndicatorSnapshot) []string {
	var reasons []string
	switch regime {
	case models.RegimeBullTrend:
		if s.RSI > bullRSIMax {
			reasons = append(reasons, fmt.Sprintf("RSI %.1f overbought in bull trend", s.RSI))
		}
		if s.OBV.Divergence == models.DivergenceBearish {
			reasons = append(reasons, "Bearish OBV divergence: volume not confirming the rally")
		}
		if p := s.Bollinger.Position; p == models.BandFarAbove || p == models.BandAboveUpper {
			reasons = append(reasons, fmt.Sprintf("Price stretched above upper Bollinger band (%s)", p))
		}
		if s.VIX.Value > bullVIXMax {
			reasons = append(reasons, fmt.Sprintf("VIX %.1f elevated for a bull trend", s.VIX.Value))
		}
	case models.RegimeBearTrend:
		if s.RSI < bearRSIMin {
			reasons = append(reasons, fmt.Sprintf("RSI %.1f severely oversold in bear trend, bounce risk", s.RSI))
		}
		if s.OBV.Divergence == models.DivergenceBullish {
			reasons = append(reasons, "Bullish OBV divergence: accumulation against the downtrend")
		}
		if p := s.Bollinger.Position; p == models.BandFarBelow || p == models.BandBelowLower {
			reasons = append(reasons, fmt.Sprintf("Price stretched below lower Bollinger band (%s)", p))
		}
		if s.VIX.Value > bearVIXMax {
			reasons = append(reasons, fmt.Sprintf("VIX %.1f at panic levels", s.VIX.Value))
		}
	case models.RegimeRangeBound:
		if s.OBV.Liquidity == models.LiquidityLow {
			reasons = append(reasons, "Low liquidity in range-bound market")
		}
		if s.ADX > breakoutADXLow && s.ADX < breakoutADXHigh {
			reasons = append(reasons, fmt.Sprintf("ADX %.1f rising: breakout pending", s.ADX))
		}
		if s.Bollinger.Bandwidth < squeezeBW {
			reasons = append(reasons, fmt.Sprintf("Bollinger squeeze (bandwidth %.3f): breakout imminent", s.Bollinger.Bandwidth))
		}
	case models.RegimeStagnation:
		reasons = append(reasons, "Stagnant market: low opportunity")
	}
	return reasons
}

func crossChecks(s *models.IndicatorSnapshot) []string {
	var reasons []string
	if s.ADX > conflictADX && s.MACD.Crossover == models.SignalNone {
		reasons = append(reasons, fmt.Sprintf("Momentum conflict: ADX %.1f without MACD confirmation", s.ADX))
	}
	if s.RSI >= extremeRSIHigh {
		reasons = append(reasons, fmt.Sprintf("RSI extremely overbought (%.1f)", s.RSI))
	} else if s.RSI <= extremeRSILow {
		reasons = append(reasons, fmt.Sprintf("RSI extremely oversold (%.1f)", s.RSI))
	}
	if s.VIX.Value > panicVIX {
		reasons = append(reasons, fmt.Sprintf("VIX %.1f above %.0f", s.VIX.Value, panicVIX))
	}
	return reasons
}
