//go:build wireinject
// +build wireinject

package di

import (
	"FlipSight/pkg/config"
	"FlipSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Foundation
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideQuoteFeed,
		ProvideHistoryStore,
		ProvideTickPublisher,

		// Use cases
		ProvideTickProcessor,
		ProvideKafkaTicksHandler,
		ProvideMarket,
		ProvideRefresher,
		ProvideHistoryUseCase,
		ProvideSuggestUseCase,
		ProvideLedger,
		ProvideBuyLimitTracker,

		// HTTP surface
		ProvideStreamHub,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
