// Package main provides a tool to seed the database with a small sample
// catalog, two users, and example visibility rules.
//
// Everything is deterministic (fixed IDs) so repeated runs converge on the
// same state instead of accumulating rows.
//
// Usage:
//
//	DATA_PATH=~/Mirador/data go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/exclusion"
	"github.com/mirador-app/mirador-server/internal/search"
	"github.com/mirador-app/mirador-server/internal/store/sqlite"
)

var withRules = flag.Bool("with-rules", true, "Seed example restrictions and hides")

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Mirador/data")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	st, err := sqlite.Open(filepath.Join(dataPath, "mirador.db"), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	now := time.Now()

	// Catalog, in foreign-key order.
	studioID := "studio-harbor"
	if err := st.UpsertStudios(ctx, []*domain.Studio{
		{ID: studioID, Name: "Harbor Films", CreatedAt: now, UpdatedAt: now},
		{ID: "studio-meridian", Name: "Meridian Pictures", CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		fail("seed studios", err)
	}

	rootTag := "tag-outdoor"
	if err := st.UpsertTags(ctx, []*domain.Tag{
		{ID: rootTag, Name: "Outdoor", CreatedAt: now, UpdatedAt: now},
		{ID: "tag-coastal", Name: "Coastal", ParentIDs: []string{rootTag}, CreatedAt: now, UpdatedAt: now},
		{ID: "tag-night", Name: "Night", CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		fail("seed tags", err)
	}

	if err := st.UpsertPerformers(ctx, []*domain.Performer{
		{ID: "perf-zoe", Name: "Zoë Marchand", Aliases: []string{"Z. Marchand"}, TagIDs: []string{"tag-coastal"}, CreatedAt: now, UpdatedAt: now},
		{ID: "perf-theo", Name: "Theo Brandt", CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		fail("seed performers", err)
	}

	if err := st.UpsertGroups(ctx, []*domain.Group{
		{ID: "group-shoreline", Name: "Shoreline Collection", CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		fail("seed groups", err)
	}

	scenes := []*domain.Scene{
		{ID: "scene-first-light", Title: "First Light", StudioID: &studioID, PerformerIDs: []string{"perf-zoe"}, TagIDs: []string{"tag-coastal"}, GroupIDs: []string{"group-shoreline"}, CreatedAt: now, UpdatedAt: now},
		{ID: "scene-slack-tide", Title: "Slack Tide", StudioID: &studioID, PerformerIDs: []string{"perf-zoe", "perf-theo"}, GroupIDs: []string{"group-shoreline"}, CreatedAt: now.Add(time.Second), UpdatedAt: now},
		{ID: "scene-open-water", Title: "Open Water", PerformerIDs: []string{"perf-theo"}, TagIDs: []string{"tag-night"}, CreatedAt: now.Add(2 * time.Second), UpdatedAt: now},
	}
	if err := st.UpsertScenes(ctx, scenes); err != nil {
		fail("seed scenes", err)
	}

	if err := st.UpsertGalleries(ctx, []*domain.Gallery{
		{ID: "gal-tidework", Title: "Tidework", SceneIDs: []string{"scene-first-light"}, CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		fail("seed galleries", err)
	}

	if err := st.UpsertImages(ctx, []*domain.Image{
		{ID: "img-dawn", Title: "Dawn Still", TagIDs: []string{"tag-coastal"}, GalleryIDs: []string{"gal-tidework"}, CreatedAt: now, UpdatedAt: now},
		{ID: "img-dusk", Title: "Dusk Still", GalleryIDs: []string{"gal-tidework"}, CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		fail("seed images", err)
	}

	if err := st.RebuildTagClosures(ctx); err != nil {
		fail("rebuild tag closures", err)
	}

	// Users. CreateUser errors on duplicates; ignore so reruns converge.
	_ = st.CreateUser(ctx, &domain.User{ID: "user-admin", Name: "Admin", IsAdmin: true, CreatedAt: now, UpdatedAt: now})
	_ = st.CreateUser(ctx, &domain.User{ID: "user-demo", Name: "Demo", CreatedAt: now, UpdatedAt: now})

	// Annotations so the rating/favorite/play-count filters and sorts
	// return something out of the box.
	lastViewed := now.Add(-24 * time.Hour)
	if err := st.SetRating(ctx, &domain.Rating{
		UserID: "user-demo", EntityType: domain.TypeScene, EntityID: "scene-first-light",
		Rating100: 85, Favorite: true, UpdatedAt: now,
	}); err != nil {
		fail("seed rating", err)
	}
	if err := st.SetRating(ctx, &domain.Rating{
		UserID: "user-demo", EntityType: domain.TypeScene, EntityID: "scene-slack-tide",
		Rating100: 60, UpdatedAt: now,
	}); err != nil {
		fail("seed rating", err)
	}
	if err := st.SetWatchStats(ctx, &domain.WatchStats{
		UserID: "user-demo", EntityType: domain.TypeScene, EntityID: "scene-first-light",
		ViewCount: 3, PlayDurationSec: 1420, LastViewedAt: &lastViewed,
	}); err != nil {
		fail("seed watch stats", err)
	}

	engine := exclusion.New(st, 2, logger)

	if *withRules {
		if err := st.UpsertRestriction(ctx, &domain.Restriction{
			ID:         "rule-demo-night",
			UserID:     "user-demo",
			EntityType: domain.TypeTag,
			Mode:       domain.ModeExclude,
			EntityIDs:  []string{"tag-night"},
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			fail("seed restriction", err)
		}
	}

	if err := engine.RecomputeAllUsers(ctx); err != nil {
		fail("recompute exclusions", err)
	}

	// Index entity names so search works without an upstream sync.
	idx, err := search.NewIndex(search.Options{DataPath: filepath.Join(dataPath, "search"), Logger: logger})
	if err != nil {
		fail("open search index", err)
	}
	defer idx.Close()

	if err := idx.Rebuild(); err != nil {
		fail("reset search index", err)
	}
	var docs []*search.Document
	for _, s := range scenes {
		docs = append(docs, search.NewDocument(domain.TypeScene, s.ID, s.Title, nil, s.CreatedAt.UnixMilli(), s.UpdatedAt.UnixMilli()))
	}
	docs = append(docs,
		search.NewDocument(domain.TypeStudio, studioID, "Harbor Films", nil, now.UnixMilli(), now.UnixMilli()),
		search.NewDocument(domain.TypeStudio, "studio-meridian", "Meridian Pictures", nil, now.UnixMilli(), now.UnixMilli()),
		search.NewDocument(domain.TypePerformer, "perf-zoe", "Zoë Marchand", []string{"Z. Marchand"}, now.UnixMilli(), now.UnixMilli()),
		search.NewDocument(domain.TypePerformer, "perf-theo", "Theo Brandt", nil, now.UnixMilli(), now.UnixMilli()),
		search.NewDocument(domain.TypeGallery, "gal-tidework", "Tidework", nil, now.UnixMilli(), now.UnixMilli()),
	)
	if err := idx.IndexDocuments(docs); err != nil {
		fail("index documents", err)
	}

	fmt.Println("Seeded sample catalog: 3 scenes, 2 performers, 2 studios, 3 tags, 1 group, 1 gallery, 2 images")
	fmt.Println("Users: user-admin (admin), user-demo (tag-night excluded)")
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
