// Package di assembles the application with google/wire. Providers live
// here; wire.go declares the injector and wire_gen.go holds the generated
// wiring.
package di

import (
	"context"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"studio-backend/application/details"
	"studio-backend/application/ports"
	"studio-backend/application/services"
	"studio-backend/domain/catalog"
	domainconfig "studio-backend/domain/config"
	domainservices "studio-backend/domain/services"
	infraconfig "studio-backend/infrastructure/config"
	dynamorepo "studio-backend/infrastructure/persistence/dynamodb"
	"studio-backend/infrastructure/persistence/memory"
	"studio-backend/interfaces/http/rest"
	"studio-backend/interfaces/http/rest/handlers"
	"studio-backend/pkg/auth"
	pkgerrors "studio-backend/pkg/errors"
	"studio-backend/pkg/observability"
)

// Container holds the assembled application
type Container struct {
	Config      *infraconfig.Config
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	FlowService *services.FlowService
	Router      http.Handler
}

// Shutdown flushes pending autosaves and the logger. Background watchers
// are stopped by the cleanup function the injector returns.
func (c *Container) Shutdown() {
	if c.FlowService != nil {
		c.FlowService.Shutdown()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

// ProvideContainer bundles the assembled pieces
func ProvideContainer(cfg *infraconfig.Config, logger *zap.Logger, metrics *observability.Metrics, flowService *services.FlowService, router http.Handler) *Container {
	return &Container{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		FlowService: flowService,
		Router:      router,
	}
}

// ProvideLogger builds the zap logger for the configured environment
func ProvideLogger(cfg *infraconfig.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// ProvideDomainConfig returns the domain business rules
func ProvideDomainConfig() *domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}

// ProvideMetrics registers the Prometheus collectors
func ProvideMetrics() *observability.Metrics {
	return observability.NewDefaultMetrics()
}

// ProvideCatalogSource yields the node type catalog. With a catalog file
// configured it is watched for changes; without one the built-in catalog is
// served unchanged. The cleanup stops the watcher.
func ProvideCatalogSource(cfg *infraconfig.Config, logger *zap.Logger) (services.CatalogSource, func(), error) {
	if cfg.CatalogFile == "" {
		return services.StaticCatalog{Catalog: catalog.Default()}, func() {}, nil
	}
	watcher, err := catalog.NewWatcher(cfg.CatalogFile, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher.Start()
	return watcher, watcher.Stop, nil
}

// ProvideFlowRepository picks the configured persistence driver
func ProvideFlowRepository(ctx context.Context, cfg *infraconfig.Config, logger *zap.Logger) (ports.FlowRepository, error) {
	switch cfg.PersistenceDriver {
	case infraconfig.DriverMemory:
		return memory.NewFlowRepository(), nil
	case infraconfig.DriverDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, pkgerrors.NewInternalError("failed to load aws configuration", err)
		}
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = &cfg.DynamoDBEndpoint
			}
		})
		return dynamorepo.NewFlowRepository(client, cfg.DynamoDBTable, logger), nil
	default:
		return nil, pkgerrors.NewValidationError("", "unknown persistence driver")
	}
}

// ProvideDebouncer builds the autosave debouncer
func ProvideDebouncer(repo ports.FlowRepository, domainCfg *domainconfig.DomainConfig, logger *zap.Logger, metrics *observability.Metrics) *services.Debouncer {
	return services.NewDebouncer(repo, domainCfg.AutoSaveDebounce, logger, metrics)
}

// ProvideRegistry builds the node details manager registry
func ProvideRegistry() *details.Registry {
	return details.DefaultRegistry()
}

// ProvideLayoutService builds the layout service
func ProvideLayoutService(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *domainservices.LayoutService {
	return domainservices.NewLayoutService(domainCfg, logger)
}

// ProvideFlowService builds the flow service
func ProvideFlowService(repo ports.FlowRepository, catalogs services.CatalogSource, registry *details.Registry, layout *domainservices.LayoutService, saver *services.Debouncer, domainCfg *domainconfig.DomainConfig, logger *zap.Logger, metrics *observability.Metrics) *services.FlowService {
	return services.NewFlowService(repo, catalogs, registry, layout, saver, domainCfg, logger, metrics)
}

// ProvideTokenService builds the JWT token service
func ProvideTokenService(cfg *infraconfig.Config) *auth.TokenService {
	return auth.NewTokenService(cfg.JWTSecret, cfg.TokenExpiry)
}

// ProvideRouter builds the HTTP router
func ProvideRouter(cfg *infraconfig.Config, flowService *services.FlowService, catalogs services.CatalogSource, tokens *auth.TokenService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	return rest.NewRouter(rest.RouterConfig{
		FlowHandler:    handlers.NewFlowHandler(flowService, logger),
		CatalogHandler: handlers.NewCatalogHandler(catalogs),
		AuthHandler:    handlers.NewAuthHandler(tokens, !cfg.IsProduction()),
		Tokens:         tokens,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
}
