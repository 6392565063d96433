package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirador-app/mirador-server/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestListEntities(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"total": 120,
			"performers": [
				{"id": "p1", "name": "Ada Vale", "aliases": ["A. Vale"], "country": "GB", "birth_year": 1990},
				{"id": "p2", "name": "Brett Shore", "aliases": [], "country": "", "birth_year": 0}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 10, discardLogger())
	defer client.Close()

	page, err := client.ListEntities(context.Background(), domain.TypePerformer, 2, 50)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/performers", gotPath)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, 120, page.Total)
	assert.Equal(t, 2, page.Len())
	require.Len(t, page.Performers, 2)
	assert.Equal(t, "Ada Vale", page.Performers[0].Name)
	assert.Equal(t, []string{"A. Vale"}, page.Performers[0].Aliases)
}

func TestListEntities_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"total": 0}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 10, discardLogger())
	defer client.Close()

	page, err := client.ListEntities(context.Background(), domain.TypeScene, 1, 25)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Len())
}

func TestListEntities_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"server error", http.StatusInternalServerError, ErrServer},
		{"bad gateway", http.StatusBadGateway, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL, "", 10, discardLogger())
			defer client.Close()

			_, err := client.ListEntities(context.Background(), domain.TypeTag, 1, 25)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_Disabled(t *testing.T) {
	client := NewClient("", "", 10, discardLogger())
	defer client.Close()

	assert.False(t, client.Enabled())

	_, err := client.ListEntities(context.Background(), domain.TypeScene, 1, 25)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestListEntities_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"total": 0}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 10, discardLogger())
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.ListEntities(ctx, domain.TypeScene, 1, 25)
	assert.Error(t, err)
}

func TestDocsForPage(t *testing.T) {
	now := time.Now()
	p := &Page{
		Performers: []*domain.Performer{
			{ID: "p1", Name: "Zoë Marchand", Aliases: []string{"Aurora"}, CreatedAt: now, UpdatedAt: now},
		},
	}

	docs := docsForPage(domain.TypePerformer, p)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0].ID)
	assert.Equal(t, domain.TypePerformer, docs[0].Type)
	assert.Equal(t, "Zoë Marchand", docs[0].Name)
	assert.Equal(t, "zoe marchand", docs[0].NameFolded)
	assert.Equal(t, []string{"Aurora"}, docs[0].Aliases)
}

func TestPageIDs(t *testing.T) {
	p := &Page{
		Scenes: []*domain.Scene{{ID: "s1"}, {ID: "s2"}},
	}
	assert.Equal(t, []string{"s1", "s2"}, pageIDs(domain.TypeScene, p))
	assert.Empty(t, pageIDs(domain.TypeTag, p))
}
