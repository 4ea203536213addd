//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"RegimeGuard/internal/domain/repository"
	"RegimeGuard/pkg/config"
	"RegimeGuard/pkg/metrics"
	"RegimeGuard/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// The cleanup closes infrastructure in reverse construction order.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
		ProvideCache,
		ProvideEvaluationStore,
		ProvideVerdictPublisher,

		// Market data
		ProvideUpstreamLimiter,
		ProvideMarketDataProvider,
		ProvideMarketDataClient,

		// Use cases
		ProvideNarrator,
		ProvideEvaluator,

		// HTTP
		ProvideClientLimiter,
		ProvideHandler,
		ProvideApp,
	)
	return nil, nil, nil
}
