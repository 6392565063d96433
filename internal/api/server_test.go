package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirador-app/mirador-server/internal/catalog"
	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/exclusion"
	"github.com/mirador-app/mirador-server/internal/query"
	"github.com/mirador-app/mirador-server/internal/search"
	"github.com/mirador-app/mirador-server/internal/service"
	"github.com/mirador-app/mirador-server/internal/store"
	"github.com/mirador-app/mirador-server/internal/store/sqlite"
)

type testServer struct {
	*Server
	st  store.Store
	idx *search.Index
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	tmp := t.TempDir()

	st, err := sqlite.Open(filepath.Join(tmp, "mirador.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: filepath.Join(tmp, "index"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	engine := exclusion.New(st, 2, logger)
	executor := query.NewExecutor(st.DB(), logger)
	client := catalog.NewClient("", "", 5, logger)
	mirror := catalog.NewMirror(client, st, idx, engine, 100, logger)

	services := &Services{
		Users:      service.NewUserService(st, engine, logger),
		Visibility: service.NewVisibilityService(st, engine, logger),
		Listing:    service.NewListingService(executor, logger),
		Search:     service.NewSearchService(idx, st, logger),
		Admin:      service.NewAdminService(st, engine, mirror, executor, logger),
	}

	return &testServer{
		Server: NewServer(st, services, logger),
		st:     st,
		idx:    idx,
	}
}

func (ts *testServer) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, ts.st.CreateUser(ctx, &domain.User{ID: "admin", Name: "Admin", IsAdmin: true, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, ts.st.CreateUser(ctx, &domain.User{ID: "u1", Name: "Mara", CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, ts.st.UpsertStudios(ctx, []*domain.Studio{
		{ID: "st1", Name: "Harbor Films", CreatedAt: now, UpdatedAt: now},
	}))
	studio := "st1"
	require.NoError(t, ts.st.UpsertScenes(ctx, []*domain.Scene{
		{ID: "s1", Title: "First Light", StudioID: &studio, CreatedAt: now, UpdatedAt: now},
		{ID: "s2", Title: "Slack Tide", CreatedAt: now.Add(time.Second), UpdatedAt: now},
		{ID: "s3", Title: "Open Water", CreatedAt: now.Add(2 * time.Second), UpdatedAt: now},
	}))
	require.NoError(t, ts.st.RebuildTagClosures(ctx))
}

func (ts *testServer) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.MarshalWrite(&buf, body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-Mirador-User", userID)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decodeBody[HealthResponse](t, rec)
	// Empty search index reads as degraded before the first sync.
	assert.Equal(t, "degraded", health.Components["search"].Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
}

func TestListEntities(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/scenes", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decodeBody[query.Result](t, rec)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Scenes, 3)
	assert.Equal(t, "First Light", res.Scenes[0].Title)
}

func TestListEntities_RequiresUserHeader(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/scenes", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListEntities_UnknownType(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/widgets", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHideUnhideFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/users/u1/hidden", "u1", map[string]string{
		"entity_type": "scene",
		"entity_id":   "s2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/scenes", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[query.Result](t, rec)
	assert.Equal(t, 2, res.Total)

	// Explicit lookup still resolves the hidden scene.
	rec = ts.do(t, http.MethodGet, "/api/v1/scenes/s2", "u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another user is unaffected.
	rec = ts.do(t, http.MethodGet, "/api/v1/scenes", "admin", nil)
	res = decodeBody[query.Result](t, rec)
	assert.Equal(t, 3, res.Total)

	rec = ts.do(t, http.MethodDelete, "/api/v1/users/u1/hidden/scene/s2", "u1", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, "/api/v1/users/u1/hidden/scene/s2", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHideEntity_OtherUserForbidden(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/users/admin/hidden", "u1", map[string]string{
		"entity_type": "scene",
		"entity_id":   "s1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRestrictions_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	body := map[string]any{"mode": "exclude", "entity_ids": []string{"s1"}}

	rec := ts.do(t, http.MethodPut, "/api/v1/users/u1/restrictions/scene", "u1", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/v1/users/u1/restrictions/scene", "admin", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	r := decodeBody[domain.Restriction](t, rec)
	assert.Equal(t, domain.ModeExclude, r.Mode)

	// The restriction is live immediately.
	rec = ts.do(t, http.MethodGet, "/api/v1/scenes", "u1", nil)
	res := decodeBody[query.Result](t, rec)
	assert.Equal(t, 2, res.Total)

	rec = ts.do(t, http.MethodDelete, "/api/v1/users/u1/restrictions/scene", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/scenes", "u1", nil)
	res = decodeBody[query.Result](t, rec)
	assert.Equal(t, 3, res.Total)
}

func TestUserStats(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/recompute", "admin", map[string]string{"user_id": "u1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/users/u1/stats", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Stats []*domain.EntityStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	byType := make(map[domain.EntityType]int)
	for _, st := range out.Stats {
		byType[st.EntityType] = st.VisibleCount
	}
	assert.Equal(t, 3, byType[domain.TypeScene])
	assert.Equal(t, 1, byType[domain.TypeStudio])
}

func TestCreateUser_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/users", "u1", map[string]any{"name": "Theo"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/users", "admin", map[string]any{"name": "Theo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	u := decodeBody[domain.User](t, rec)
	assert.Equal(t, "Theo", u.Name)
	assert.NotEmpty(t, u.ID)
}

func TestTriggerSync_NoUpstreamConfigured(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/sync", "admin", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/sync", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[service.SyncStatus](t, rec)
	assert.False(t, status.Running)
	assert.Nil(t, status.LastReport)
}

func TestAdminListAll_SeesThroughExclusions(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/users/u1/hidden", "u1", map[string]string{
		"entity_type": "scene",
		"entity_id":   "s1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/catalog/scenes", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[query.Result](t, rec)
	assert.Equal(t, 3, res.Total)

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/users/u1/exclusions", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Exclusions []*domain.ExcludedEntity `json:"exclusions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Exclusions)
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	now := time.Now()
	require.NoError(t, ts.idx.IndexDocuments([]*search.Document{
		search.NewDocument(domain.TypeScene, "s1", "First Light", nil, now.UnixMilli(), now.UnixMilli()),
		search.NewDocument(domain.TypeScene, "s2", "Slack Tide", nil, now.UnixMilli(), now.UnixMilli()),
	}))

	rec := ts.do(t, http.MethodGet, "/api/v1/search?q=light", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[SearchResponse](t, rec)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "s1", res.Hits[0].ID)
}

func TestListGalleries(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	now := time.Now()
	require.NoError(t, ts.st.UpsertGalleries(context.Background(), []*domain.Gallery{
		{ID: "gal1", Title: "Tidework", SceneIDs: []string{"s1"}, CreatedAt: now, UpdatedAt: now},
	}))

	rec := ts.do(t, http.MethodGet, "/api/v1/galleries", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[query.Result](t, rec)
	assert.Equal(t, 1, res.Total)
}
