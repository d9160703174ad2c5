//go:build wireinject
// +build wireinject

package di

import (
	"CoinSentry/pkg/config"
	"CoinSentry/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Core pool
		ProvideTracker,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideEligibleCache,

		// Repositories
		ProvideCandleStore,
		ProvideSignalPublisher,
		ProvideSnapshotStream,

		// Use cases
		ProvideSnapshotProcessor,
		ProvideSnapshotCollector,
		ProvideKafkaSnapshotsHandler,
		ProvideFilterEngine,
		ProvideSignalGenerator,
		ProvideCycleRunner,
		ProvideStatusProjector,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
