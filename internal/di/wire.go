//go:build wireinject
// +build wireinject

package di

import (
	"TradeCore/pkg/config"
	"TradeCore/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Decision core
		ProvideFeatureEngine,
		ProvideRouter,
		ProvideImpactCalibrator,
		ProvideOptimizer,
		ProvideRiskGuard,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// Repositories
		ProvideDecisionLog,
		ProvideAuditQuery,
		ProvideOrderPublisher,
		ProvideSnapshotStore,
		ProvideMarketStream,

		// Use cases
		ProvideOrderDispatcher,
		ProvideDispatchQueue,
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideDecisionPipeline,
		ProvideFillsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
