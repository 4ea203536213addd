package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"RegimeGuard/internal/domain/models"
	drepo "RegimeGuard/internal/domain/repository"
	domsvc "RegimeGuard/internal/domain/service"
	"RegimeGuard/internal/services/advisor"
	"RegimeGuard/internal/services/indicators"
	"RegimeGuard/pkg/logger"
	"RegimeGuard/pkg/metrics"
)

// MarketData is the part of the fetch client the pipeline reads from.
type MarketData interface {
	Quote(ctx context.Context, symbol models.Symbol) (*models.Quote, error)
	Candles(ctx context.Context, symbol models.Symbol, res drepo.Resolution, from, to time.Time) (models.Series, error)
}

type EvaluatorConfig struct {
	LookbackDays int
	Benchmark    models.Symbol
	Workers      int
	Timeout      time.Duration
}

func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		LookbackDays: 400,
		Benchmark:    "SPY",
		Workers:      4,
		Timeout:      2 * time.Minute,
	}
}

type EvaluateOptions struct {
	Narrate bool
}

// Evaluator runs fetch, indicators, classification and veto for a symbol.
type Evaluator struct {
	data       MarketData
	engine     *indicators.Engine
	classifier domsvc.RegimeClassifier
	veto       domsvc.VetoEvaluator
	narrator   domsvc.Narrator
	store      drepo.EvaluationStore
	pub        drepo.VerdictPublisher
	metrics    drepo.Metrics
	log        *logger.Logger
	cfg        EvaluatorConfig
	now        func() time.Time
}

type EvaluatorOption func(*Evaluator)

func WithNarrator(n domsvc.Narrator) EvaluatorOption {
	return func(e *Evaluator) {
		if n != nil {
			e.narrator = n
		}
	}
}

func WithStore(s drepo.EvaluationStore) EvaluatorOption {
	return func(e *Evaluator) { e.store = s }
}

func WithPublisher(p drepo.VerdictPublisher) EvaluatorOption {
	return func(e *Evaluator) { e.pub = p }
}

func WithEvaluatorMetrics(m drepo.Metrics) EvaluatorOption {
	return func(e *Evaluator) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithEvaluatorLogger(l *logger.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.log = l
		}
	}
}

// WithEvaluatorConfig overrides the defaults for every positive field.
func WithEvaluatorConfig(c EvaluatorConfig) EvaluatorOption {
	return func(e *Evaluator) {
		if c.LookbackDays > 0 {
			e.cfg.LookbackDays = c.LookbackDays
		}
		if c.Benchmark != "" {
			e.cfg.Benchmark = c.Benchmark
		}
		if c.Workers > 0 {
			e.cfg.Workers = c.Workers
		}
		if c.Timeout > 0 {
			e.cfg.Timeout = c.Timeout
		}
	}
}

func WithEvaluatorClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(
	data MarketData,
	engine *indicators.Engine,
	classifier domsvc.RegimeClassifier,
	veto domsvc.VetoEvaluator,
	opts ...EvaluatorOption,
) *Evaluator {
	e := &Evaluator{
		data:       data,
		engine:     engine,
		classifier: classifier,
		veto:       veto,
		narrator:   advisor.Disabled{},
		metrics:    metrics.Nop{},
		log:        logger.Nop(),
		cfg:        DefaultEvaluatorConfig(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the full pipeline for one symbol. Only an invalid symbol or
// missing candles fail it; quote, benchmark, narration, history and
// publishing degrade instead.
func (uc *Evaluator) Evaluate(ctx context.Context, raw string, opts EvaluateOptions) (*models.Evaluation, error) {
	sym, err := models.NormalizeSymbol(raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	start := uc.now()
	log := uc.log.With(logger.String("symbol", string(sym)))

	var price float64
	quote, err := uc.data.Quote(ctx, sym)
	switch {
	case err != nil:
		log.Warn("quote unavailable, using last close", logger.Error(err))
	case quote != nil:
		price = quote.Current
	}

	to := start.UTC()
	from := to.AddDate(0, 0, -uc.cfg.LookbackDays)
	series, err := uc.data.Candles(ctx, sym, drepo.ResDay, from, to)
	if err != nil {
		uc.metrics.RecordError("evaluate")
		return nil, fmt.Errorf("candles for %s: %w: %w", sym, models.ErrInsufficientData, err)
	}
	if len(series) == 0 {
		uc.metrics.RecordError("evaluate")
		return nil, fmt.Errorf("candles for %s: %w", sym, models.ErrInsufficientData)
	}

	benchmark := series
	if uc.cfg.Benchmark != sym {
		benchmark, err = uc.data.Candles(ctx, uc.cfg.Benchmark, drepo.ResDay, from, to)
		if err != nil {
			log.Warn("benchmark unavailable, using default VIX",
				logger.String("benchmark", string(uc.cfg.Benchmark)), logger.Error(err))
			benchmark = nil
		}
	}

	snap := uc.engine.ComputeWithPrice(series, benchmark, price)
	snap.Symbol = sym
	regime := uc.classifier.Classify(&snap)
	regime.Symbol = sym
	decision := uc.veto.Evaluate(sym, regime.Type, &snap)

	ev := &models.Evaluation{
		ID:          uuid.NewString(),
		Symbol:      sym,
		Quote:       quote,
		Snapshot:    snap,
		Regime:      regime,
		Veto:        decision,
		Bars:        len(series),
		EvaluatedAt: start.UTC(),
	}

	if opts.Narrate && uc.narrator.Enabled() {
		text, err := uc.narrator.Narrate(ctx, ev)
		if err != nil {
			uc.metrics.RecordError("narrate")
			log.Warn("narration failed", logger.Error(err))
		} else {
			ev.Narrative = text
		}
	}
	ev.Duration = uc.now().Sub(start)

	uc.persist(ctx, ev, log)

	uc.metrics.RecordRegime(string(regime.Type))
	uc.metrics.RecordVeto(decision.SeverityString())
	uc.metrics.RecordLatency("evaluate", ev.Duration.Seconds())

	log.Info("evaluated",
		logger.String("regime", string(regime.Type)),
		logger.String("rule", regime.Rule),
		logger.Bool("veto", decision.ShouldVeto),
		logger.String("severity", decision.SeverityString()),
		logger.Int("bars", ev.Bars),
		logger.Duration("duration_ms", ev.Duration))
	return ev, nil
}

func (uc *Evaluator) persist(ctx context.Context, ev *models.Evaluation, log *logger.Logger) {
	if uc.store != nil {
		if err := uc.store.Save(ctx, ev); err != nil {
			uc.metrics.RecordError("history_save")
			log.Warn("save evaluation failed", logger.Error(err))
		}
	}
	if uc.pub != nil {
		if err := uc.pub.Publish(ctx, ev); err != nil {
			uc.metrics.RecordError("publish")
			log.Warn("publish verdict failed", logger.Error(err))
		}
	}
}

// ClassifySnapshot runs classification and veto over a caller-supplied
// snapshot. Invalid fields are reset to defaults and reported.
func (uc *Evaluator) ClassifySnapshot(in models.SnapshotInput) (*models.Classification, error) {
	snap, reset, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	regime := uc.classifier.Classify(&snap)
	regime.Symbol = snap.Symbol
	decision := uc.veto.Evaluate(snap.Symbol, regime.Type, &snap)

	uc.metrics.RecordRegime(string(regime.Type))
	uc.metrics.RecordVeto(decision.SeverityString())
	return &models.Classification{
		Snapshot:    snap,
		Regime:      regime,
		Veto:        decision,
		ResetFields: reset,
	}, nil
}

// History returns the most recent stored evaluations, newest first.
func (uc *Evaluator) History(ctx context.Context, raw string, limit int) ([]*models.Evaluation, error) {
	sym, err := models.NormalizeSymbol(raw)
	if err != nil {
		return nil, err
	}
	if uc.store == nil {
		return []*models.Evaluation{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	out, err := uc.store.Recent(ctx, sym, limit)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", sym, err)
	}
	return out, nil
}

// NarratorEnabled reports whether narration can be requested.
func (uc *Evaluator) NarratorEnabled() bool { return uc.narrator.Enabled() }
