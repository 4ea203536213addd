package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"RegimeGuard/internal/domain/models"
)

// evaluationRow is the flat form shared by the SQL stores. The snapshot and
// the reasons are kept as JSON text so every backend can hold them.
type evaluationRow struct {
	ID          string
	Symbol      string
	EvaluatedAt time.Time
	Regime      string
	Rule        string
	ShouldVeto  bool
	Severity    string
	Reasons     string
	Price       float64
	Bars        int
	Narrative   string
	Snapshot    string
	DurationMs  int64
}

func toRow(e *models.Evaluation) (evaluationRow, error) {
	reasons, err := json.Marshal(e.Veto.Reasons)
	if err != nil {
		return evaluationRow{}, fmt.Errorf("encode reasons: %w", err)
	}
	return evaluationRow{
		ID:          e.ID,
		Symbol:      string(e.Symbol),
		EvaluatedAt: e.EvaluatedAt.UTC(),
		Regime:      string(e.Regime.Type),
		Rule:        e.Regime.Rule,
		ShouldVeto:  e.Veto.ShouldVeto,
		Severity:    e.Veto.SeverityString(),
		Reasons:     string(reasons),
		Price:       e.Snapshot.Trend.Current,
		Bars:        e.Bars,
		Narrative:   e.Narrative,
		Snapshot:    e.SnapshotJSON(),
		DurationMs:  e.Duration.Milliseconds(),
	}, nil
}

func (r evaluationRow) evaluation() (*models.Evaluation, error) {
	e := &models.Evaluation{
		ID:          r.ID,
		Symbol:      models.Symbol(r.Symbol),
		Regime:      models.Regime{Symbol: models.Symbol(r.Symbol), Type: models.RegimeType(r.Regime), Rule: r.Rule, Timestamp: r.EvaluatedAt.UTC()},
		Narrative:   r.Narrative,
		Bars:        r.Bars,
		EvaluatedAt: r.EvaluatedAt.UTC(),
		Duration:    time.Duration(r.DurationMs) * time.Millisecond,
	}
	if err := json.Unmarshal([]byte(r.Snapshot), &e.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", r.ID, err)
	}

	var reasons []string
	if err := json.Unmarshal([]byte(r.Reasons), &reasons); err != nil {
		return nil, fmt.Errorf("decode reasons %s: %w", r.ID, err)
	}
	if r.ShouldVeto && r.Severity != "" {
		e.Veto = models.Veto(models.Severity(r.Severity), reasons...)
	} else {
		e.Veto = models.NoVeto()
	}
	return e, nil
}
