package repository

import (
	"context"

	"RegimeGuard/internal/domain/models"
	domrepo "RegimeGuard/internal/domain/repository"
)

// NoopEvaluationStore is used when history.backend is none.
type NoopEvaluationStore struct{}

var _ domrepo.EvaluationStore = NoopEvaluationStore{}

func (NoopEvaluationStore) Init(context.Context) error                     { return nil }
func (NoopEvaluationStore) Save(context.Context, *models.Evaluation) error { return nil }
func (NoopEvaluationStore) Health(context.Context) error                   { return nil }
func (NoopEvaluationStore) Close() error                                   { return nil }
func (NoopEvaluationStore) Recent(context.Context, models.Symbol, int) ([]*models.Evaluation, error) {
	return []*models.Evaluation{}, nil
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

var _ domrepo.VerdictPublisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, *models.Evaluation) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
