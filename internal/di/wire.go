//go:build wireinject
// +build wireinject

package di

import (
	"TradeDesk/pkg/config"
	"TradeDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure repositories
		ProvideActivityLog,
		ProvideStateStore,
		ProvideEventPublisher,

		// Market services
		ProvideCalendar,
		ProvideQuoteCache,
		ProvideMarketStream,
		ProvideQuoteCollector,

		// Brokerage path
		ProvideGateway,
		ProvideBroker,

		// Core engines and orchestration
		ProvideRiskEngine,
		ProvideSupervisor,

		// HTTP surface
		ProvideBotHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
