package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirador-app/mirador-server/internal/domain"
	domainerrors "github.com/mirador-app/mirador-server/internal/errors"
	"github.com/mirador-app/mirador-server/internal/query"
)

func TestListing_AlwaysAppliesExclusions(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1")
	env.seedCatalog(t)
	logger := slog.New(slog.DiscardHandler)
	vis := NewVisibilityService(env.store, env.engine, logger)
	listing := NewListingService(env.executor, logger)
	ctx := context.Background()

	require.NoError(t, vis.HideEntity(ctx, "u1", domain.TypeScene, "s2"))

	// Even a request claiming ApplyExclusions=false gets filtered.
	res, err := listing.List(ctx, query.Request{
		UserID: "u1", Type: domain.TypeScene, ApplyExclusions: false,
		Page: 1, PerPage: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s3"}, res.IDs())
}

func TestListing_Get(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1")
	env.seedCatalog(t)
	logger := slog.New(slog.DiscardHandler)
	vis := NewVisibilityService(env.store, env.engine, logger)
	listing := NewListingService(env.executor, logger)
	ctx := context.Background()

	res, err := listing.Get(ctx, "u1", domain.TypeScene, "s1")
	require.NoError(t, err)
	require.Len(t, res.Scenes, 1)
	assert.Equal(t, "First Light", res.Scenes[0].Title)

	// Explicit lookups resolve even when the entity is excluded.
	require.NoError(t, vis.HideEntity(ctx, "u1", domain.TypeScene, "s1"))
	res, err = listing.Get(ctx, "u1", domain.TypeScene, "s1")
	require.NoError(t, err)
	require.Len(t, res.Scenes, 1)

	_, err = listing.Get(ctx, "u1", domain.TypeScene, "never-existed")
	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeNotFound, derr.Code)
}

func TestListing_BadRequestIsValidationError(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1")
	env.seedCatalog(t)
	listing := NewListingService(env.executor, slog.New(slog.DiscardHandler))

	_, err := listing.List(context.Background(), query.Request{
		UserID: "u1", Type: domain.TypeScene, Sort: "entropy",
		Page: 1, PerPage: 10,
	})
	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeValidation, derr.Code)
}

func TestAdminListAll_IgnoresExclusions(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1")
	env.seedCatalog(t)
	logger := slog.New(slog.DiscardHandler)
	vis := NewVisibilityService(env.store, env.engine, logger)
	admin := NewAdminService(env.store, env.engine, nil, env.executor, logger)
	ctx := context.Background()

	require.NoError(t, vis.HideEntity(ctx, "u1", domain.TypeScene, "s2"))

	res, err := admin.ListAll(ctx, query.Request{
		UserID: "u1", Type: domain.TypeScene, ApplyExclusions: true,
		Page: 1, PerPage: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}

func TestAdminEntityCounts(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	admin := NewAdminService(env.store, env.engine, nil, env.executor, slog.New(slog.DiscardHandler))

	counts, err := admin.EntityCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.TypeScene])
	assert.Equal(t, 2, counts[domain.TypeStudio])
	assert.Equal(t, 1, counts[domain.TypePerformer])
	assert.Equal(t, 0, counts[domain.TypeTag])
}

func TestAdminRecomputeUser_MissingUser(t *testing.T) {
	env := newTestEnv(t)
	admin := NewAdminService(env.store, env.engine, nil, env.executor, slog.New(slog.DiscardHandler))

	err := admin.RecomputeUser(context.Background(), "ghost")
	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeNotFound, derr.Code)
}

func TestUserLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	users := NewUserService(env.store, env.engine, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	u, err := users.CreateUser(ctx, "Mara", false)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	// Stats are seeded at creation time.
	stats, err := env.store.GetEntityStats(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, stats, len(domain.AllEntityTypes()))

	got, err := users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mara", got.Name)

	require.NoError(t, users.DeleteUser(ctx, u.ID))
	_, err = users.GetUser(ctx, u.ID)
	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeNotFound, derr.Code)

	_, err = users.CreateUser(ctx, "", false)
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeValidation, derr.Code)
}
