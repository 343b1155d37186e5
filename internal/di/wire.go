//go:build wireinject
// +build wireinject

package di

import (
	"PlantDash/pkg/config"
	"PlantDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up the dashboard and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideRenderMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideMQTTClient,

		// Repositories
		ProvideBundleStore,
		ProvideSnapshotSource,
		ProvidePublisher,

		// Use cases
		ProvideAggregator,
		ProvidePublishPipeline,
		ProvideDashboardController,

		// HTTP
		ProvideRateLimiter,
		ProvideDashboardHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeSimulator wires up the simulated plant station.
func InitializeSimulator(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideStation,
		ProvideTelemetryPublisher,
		ProvideSimulator,
		ProvideSimulatorServer,
		ProvideSimulatorApp,
	)
	return &server.App{}, nil
}
