//go:build wireinject
// +build wireinject

package di

import (
	"FinCorr/pkg/config"
	"FinCorr/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application. The
// cleanup func closes infrastructure clients.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCacheBackend,
		ProvideAnalysisStore,
		ProvidePriceStore,
		ProvidePublisher,

		// Use cases
		ProvideEngine,
		ProvideCorrelationUseCase,
		ProvideWeightsUseCase,

		// Transport
		ProvideLimiter,
		ProvideHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
