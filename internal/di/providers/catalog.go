package providers

import (
	"github.com/samber/do/v2"

	"github.com/mirador-app/mirador-server/internal/catalog"
	"github.com/mirador-app/mirador-server/internal/config"
	"github.com/mirador-app/mirador-server/internal/exclusion"
	"github.com/mirador-app/mirador-server/internal/logger"
	"github.com/mirador-app/mirador-server/internal/query"
)

// ProvideCatalogClient provides the upstream catalog API client.
// With no upstream configured the client is disabled and the server
// serves only what is already mirrored locally.
func ProvideCatalogClient(i do.Injector) (*catalog.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.RequestsPerSecond, log.Logger)
	if !client.Enabled() {
		log.Info("No upstream catalog configured; sync disabled")
	}
	return client, nil
}

// ProvideMirror provides the catalog mirror.
func ProvideMirror(i do.Injector) (*catalog.Mirror, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := do.MustInvoke[*catalog.Client](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	engine := do.MustInvoke[*exclusion.Engine](i)
	log := do.MustInvoke[*logger.Logger](i)

	return catalog.NewMirror(client, storeHandle.Store, indexHandle.Index, engine, cfg.Catalog.PageSize, log.Logger), nil
}

// ProvideExclusionEngine provides the exclusion recompute engine.
func ProvideExclusionEngine(i do.Injector) (*exclusion.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return exclusion.New(storeHandle.Store, cfg.Exclusion.RecomputeParallelism, log.Logger), nil
}

// ProvideQueryExecutor provides the listing query executor.
func ProvideQueryExecutor(i do.Injector) (*query.Executor, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return query.NewExecutor(storeHandle.DB(), log.Logger), nil
}
