package providers

import (
	"github.com/samber/do/v2"

	"github.com/mirador-app/mirador-server/internal/catalog"
	"github.com/mirador-app/mirador-server/internal/exclusion"
	"github.com/mirador-app/mirador-server/internal/logger"
	"github.com/mirador-app/mirador-server/internal/query"
	"github.com/mirador-app/mirador-server/internal/service"
)

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*exclusion.Engine](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, engine, log.Logger), nil
}

// ProvideVisibilityService provides the visibility rule service.
func ProvideVisibilityService(i do.Injector) (*service.VisibilityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*exclusion.Engine](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewVisibilityService(storeHandle.Store, engine, log.Logger), nil
}

// ProvideListingService provides the catalog listing service.
func ProvideListingService(i do.Injector) (*service.ListingService, error) {
	executor := do.MustInvoke[*query.Executor](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewListingService(executor, log.Logger), nil
}

// ProvideAdminService provides the admin service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*exclusion.Engine](i)
	mirror := do.MustInvoke[*catalog.Mirror](i)
	executor := do.MustInvoke[*query.Executor](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(storeHandle.Store, engine, mirror, executor, log.Logger), nil
}
