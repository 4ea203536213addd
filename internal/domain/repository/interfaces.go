package repository

import (
	"context"
	"time"

	"RegimeGuard/internal/domain/models"
)

// MarketDataProvider is the upstream market-data API. Failures are returned
// as *models.UpstreamError so callers can classify them.
type MarketDataProvider interface {
	Quote(ctx context.Context, symbol models.Symbol) (*models.Quote, error)
	Candles(ctx context.Context, symbol models.Symbol, res Resolution, from, to time.Time) (models.Series, error)
	Financials(ctx context.Context, symbol models.Symbol) (*models.Financials, error)
	Recommendations(ctx context.Context, symbol models.Symbol) ([]models.RecommendationTrend, error)
	InsiderTransactions(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.InsiderTransaction, error)
	InsiderSentiment(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.InsiderSentiment, error)
	Profile(ctx context.Context, symbol models.Symbol) (*models.CompanyProfile, error)
	Peers(ctx context.Context, symbol models.Symbol) ([]string, error)
	Earnings(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.EarningsEvent, error)
	News(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.NewsArticle, error)
}

// EvaluationStore keeps a history of pipeline runs.
type EvaluationStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, e *models.Evaluation) error
	Recent(ctx context.Context, symbol models.Symbol, limit int) ([]*models.Evaluation, error)
	Health(ctx context.Context) error
	Close() error
}

// VerdictPublisher emits evaluations to downstream consumers.
type VerdictPublisher interface {
	Publish(ctx context.Context, e *models.Evaluation) error
	Close() error
}

type Metrics interface {
	RecordUpstreamCall(endpoint string)
	RecordCacheLookup(class string, hit bool)
	RecordRateLimitWait(seconds float64)
	RecordError(kind string)
	RecordRegime(regime string)
	RecordVeto(severity string)
	RecordLatency(op string, seconds float64)
}
