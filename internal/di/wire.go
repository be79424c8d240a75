//go:build wireinject
// +build wireinject

package di

import (
	"TradeGate/pkg/config"
	"TradeGate/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Core pipeline
		ProvideSpecs,
		ProvideRollupManager,
		ProvideSkillTracker,
		ProvideEngine,
		ProvideGuard,

		// Feeds and persistence
		ProvideBarStream,
		ProvideModelFeed,
		ProvideStateStore,
		ProvideCohortSource,
		ProvideAuditBackend,

		// Use cases
		ProvideEvaluator,
		ProvideBarCollector,

		// HTTP surface and application server
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
