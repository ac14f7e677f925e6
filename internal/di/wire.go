//go:build wireinject
// +build wireinject

package di

import (
	"MacroPull/pkg/config"
	"MacroPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Vendor access
		ProvideHTTPClient,
		ProvideAuthenticator,
		ProvideVendorClient,

		// Storage and catalog
		ProvideSeriesStore,
		ProvideRegistry,

		// Use cases
		ProvideAlertEngine,
		ProvidePipeline,
		ProvideHub,
		ProvideMonitor,

		// HTTP surface
		ProvideReportHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
