package search

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirador-app/mirador-server/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) (*Index, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "search-test-*")
	require.NoError(t, err)

	index, err := NewIndex(Options{
		DataPath: tmpDir,
		Logger:   nil,
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = index.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return index, cleanup
}

func TestNewIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_IndexDocument(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := NewDocument(domain.TypeScene, "sc1", "Harbor at Dawn", nil, 0, 0)

	err := index.IndexDocument(doc)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndex_IndexDocuments_Batch(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*Document{
		NewDocument(domain.TypeScene, "sc1", "Scene One", nil, 0, 0),
		NewDocument(domain.TypeScene, "sc2", "Scene Two", nil, 0, 0),
		NewDocument(domain.TypeScene, "sc3", "Scene Three", nil, 0, 0),
	}

	err := index.IndexDocuments(docs)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestIndex_SameIDAcrossTypes(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	// Entity IDs are only unique within a type; the index must keep both.
	docs := []*Document{
		NewDocument(domain.TypeScene, "x1", "A Scene", nil, 0, 0),
		NewDocument(domain.TypeTag, "x1", "A Tag", nil, 0, 0),
	}
	require.NoError(t, index.IndexDocuments(docs))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndex_DeleteDocument(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := NewDocument(domain.TypeScene, "sc1", "Test Scene", nil, 0, 0)

	err := index.IndexDocument(doc)
	require.NoError(t, err)

	err = index.DeleteDocument(domain.TypeScene, "sc1")
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_Search_Basic(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*Document{
		NewDocument(domain.TypeScene, "sc1", "Harbor at Dawn", nil, 0, 0),
		NewDocument(domain.TypeScene, "sc2", "Harbor Lights", nil, 0, 0),
		NewDocument(domain.TypeScene, "sc3", "Mountain Trail", nil, 0, 0),
	}

	err := index.IndexDocuments(docs)
	require.NoError(t, err)

	ctx := context.Background()

	result, err := index.Search(ctx, Params{
		Query: "Harbor",
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
	assert.Len(t, result.Hits, 2)
}

func TestIndex_Search_ByType(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*Document{
		NewDocument(domain.TypeScene, "sc1", "Harbor at Dawn", nil, 0, 0),
		NewDocument(domain.TypePerformer, "pf1", "Dawn Rivera", nil, 0, 0),
		NewDocument(domain.TypeStudio, "st1", "Dawn Pictures", nil, 0, 0),
	}

	err := index.IndexDocuments(docs)
	require.NoError(t, err)

	ctx := context.Background()

	// Performers only
	result, err := index.Search(ctx, Params{
		Query: "",
		Types: []domain.EntityType{domain.TypePerformer},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "pf1", result.Hits[0].ID)
	assert.Equal(t, domain.TypePerformer, result.Hits[0].Type)
}

func TestIndex_Search_Aliases(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := NewDocument(domain.TypePerformer, "pf1", "Dawn Rivera", []string{"Aurora Reyes"}, 0, 0)
	require.NoError(t, index.IndexDocument(doc))

	ctx := context.Background()

	result, err := index.Search(ctx, Params{Query: "Aurora", Limit: 10})
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "pf1", result.Hits[0].ID)
}

func TestIndex_Search_FoldedDiacritics(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := NewDocument(domain.TypePerformer, "pf1", "Zoë Laurent", nil, 0, 0)
	require.NoError(t, index.IndexDocument(doc))

	ctx := context.Background()

	// Plain-ASCII input must find the accented name.
	result, err := index.Search(ctx, Params{Query: "zoe", Limit: 10})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Total, uint64(1))
}

func TestIndex_Search_Prefix(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := NewDocument(domain.TypeScene, "sc1", "Harbor at Dawn", nil, 0, 0)

	err := index.IndexDocument(doc)
	require.NoError(t, err)

	ctx := context.Background()

	result, err := index.Search(ctx, Params{
		Query: "Harb", // Prefix of Harbor
		Limit: 10,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Total, uint64(1))
}

func TestIndex_Search_TypeFacets(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*Document{
		NewDocument(domain.TypeScene, "sc1", "Harbor at Dawn", nil, 0, 0),
		NewDocument(domain.TypeScene, "sc2", "Harbor Lights", nil, 0, 0),
		NewDocument(domain.TypeStudio, "st1", "Harbor Pictures", nil, 0, 0),
	}
	require.NoError(t, index.IndexDocuments(docs))

	ctx := context.Background()

	result, err := index.Search(ctx, Params{
		Query:         "Harbor",
		Limit:         10,
		IncludeFacets: true,
	})
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, f := range result.Facets {
		counts[f.Value] = f.Count
	}
	assert.Equal(t, 2, counts["scene"])
	assert.Equal(t, 1, counts["studio"])
}

func TestIndex_Rebuild(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := NewDocument(domain.TypeScene, "sc1", "Test", nil, 0, 0)
	err := index.IndexDocument(doc)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Rebuild - should clear the index
	err = index.Rebuild()
	require.NoError(t, err)

	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_Persistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "search-persist-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	// Create index and add document
	index1, err := NewIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)

	doc := NewDocument(domain.TypeScene, "sc1", "Test Scene", nil, 0, 0)
	err = index1.IndexDocument(doc)
	require.NoError(t, err)

	err = index1.Close()
	require.NoError(t, err)

	// Reopen index and verify document is still there
	index2, err := NewIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer index2.Close()

	count, err := index2.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Verify we can search for it
	ctx := context.Background()
	result, err := index2.Search(ctx, Params{Query: "Test", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
}

func TestSplitKey(t *testing.T) {
	typ, id := SplitKey("scene:abc123")
	assert.Equal(t, domain.TypeScene, typ)
	assert.Equal(t, "abc123", id)

	// IDs containing colons only split on the first separator
	typ, id = SplitKey("tag:weird:id")
	assert.Equal(t, domain.TypeTag, typ)
	assert.Equal(t, "weird:id", id)
}

func TestNewDocument_Folds(t *testing.T) {
	doc := NewDocument(domain.TypePerformer, "pf1", "Zoë Laurent", []string{"ZL"}, 10, 20)

	assert.Equal(t, "Zoë Laurent", doc.Name)
	assert.Equal(t, "zoe laurent", doc.NameFolded)
	assert.Equal(t, "performer:pf1", doc.Key())
	assert.Equal(t, int64(10), doc.CreatedAt)
	assert.Equal(t, int64(20), doc.UpdatedAt)
}

func TestIndex_LargeBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large batch test in short mode")
	}

	index, cleanup := setupTestIndex(t)
	defer cleanup()

	// Create 1000 documents to test chunking (batch size is 500)
	docs := make([]*Document, 1000)
	for i := range 1000 {
		docs[i] = NewDocument(domain.TypeImage, fmt.Sprintf("img-%04d", i), fmt.Sprintf("Image %d", i), nil, 0, 0)
	}

	start := time.Now()
	err := index.IndexDocuments(docs)
	require.NoError(t, err)
	t.Logf("Indexed 1000 documents in %v", time.Since(start))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), count)
}
