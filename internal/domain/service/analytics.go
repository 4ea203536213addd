package service

import (
	"context"

	"RegimeGuard/internal/domain/models"
)

// RegimeClassifier maps a snapshot to exactly one regime. It never fails.
type RegimeClassifier interface {
	Classify(snap *models.IndicatorSnapshot) models.Regime
}

// VetoEvaluator gates a trade signal for a classified regime. It never fails.
type VetoEvaluator interface {
	Evaluate(symbol models.Symbol, regime models.RegimeType, snap *models.IndicatorSnapshot) models.VetoDecision
}

// Narrator produces free-text commentary on an evaluation. Its output never
// feeds back into classification or veto.
type Narrator interface {
	Narrate(ctx context.Context, e *models.Evaluation) (string, error)
	Enabled() bool
}
