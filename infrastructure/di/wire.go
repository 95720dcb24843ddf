//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	infraconfig "studio-backend/infrastructure/config"
)

// InitializeContainer assembles the application from the configuration
func InitializeContainer(ctx context.Context, cfg *infraconfig.Config) (*Container, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideDomainConfig,
		ProvideMetrics,
		ProvideCatalogSource,
		ProvideFlowRepository,
		ProvideDebouncer,
		ProvideRegistry,
		ProvideLayoutService,
		ProvideFlowService,
		ProvideTokenService,
		ProvideRouter,
		ProvideContainer,
	)
	return nil, nil, nil
}
