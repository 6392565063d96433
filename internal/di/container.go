// Package di provides dependency injection configuration for the Mirador server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/mirador-app/mirador-server/internal/catalog"
	"github.com/mirador-app/mirador-server/internal/config"
	"github.com/mirador-app/mirador-server/internal/di/providers"
	"github.com/mirador-app/mirador-server/internal/exclusion"
	"github.com/mirador-app/mirador-server/internal/logger"
	"github.com/mirador-app/mirador-server/internal/query"
	"github.com/mirador-app/mirador-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Catalog mirror and exclusion engine
	do.Provide(injector, providers.ProvideCatalogClient)
	do.Provide(injector, providers.ProvideExclusionEngine)
	do.Provide(injector, providers.ProvideMirror)
	do.Provide(injector, providers.ProvideQueryExecutor)

	// Business services
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideVisibilityService)
	do.Provide(injector, providers.ProvideListingService)
	do.Provide(injector, providers.ProvideAdminService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is live.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*catalog.Client](injector)
	_ = do.MustInvoke[*exclusion.Engine](injector)
	_ = do.MustInvoke[*catalog.Mirror](injector)
	_ = do.MustInvoke[*query.Executor](injector)

	// Business services
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.VisibilityService](injector)
	_ = do.MustInvoke[*service.ListingService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*service.AdminService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
