// Package store defines the persistence interface for the Mirador server.
package store

import (
	"context"
	"database/sql"

	"github.com/mirador-app/mirador-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error

	// DB exposes the underlying handle for the query builder, which
	// composes its own SQL but shares this store's connection pool.
	DB() *sql.DB

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Catalog writes (mirror + seeder). Upserts replace attributes and
	// relationship rows; they never touch the exclusion cache.
	UpsertScenes(ctx context.Context, scenes []*domain.Scene) error
	UpsertPerformers(ctx context.Context, performers []*domain.Performer) error
	UpsertStudios(ctx context.Context, studios []*domain.Studio) error
	UpsertTags(ctx context.Context, tags []*domain.Tag) error
	UpsertGroups(ctx context.Context, groups []*domain.Group) error
	UpsertGalleries(ctx context.Context, galleries []*domain.Gallery) error
	UpsertImages(ctx context.Context, images []*domain.Image) error
	SoftDeleteMissing(ctx context.Context, typ domain.EntityType, keepIDs []string) (int, error)
	RebuildTagClosures(ctx context.Context) error

	// Catalog reads
	CountEntities(ctx context.Context, typ domain.EntityType) (int, error)
	EntityNames(ctx context.Context, typ domain.EntityType) (map[string]string, error)
	TagParents(ctx context.Context) (map[string][]string, error)

	// Visibility rules (source of truth)
	UpsertRestriction(ctx context.Context, r *domain.Restriction) error
	GetRestriction(ctx context.Context, userID string, typ domain.EntityType) (*domain.Restriction, error)
	ListRestrictionsForUser(ctx context.Context, userID string) ([]*domain.Restriction, error)
	DeleteRestriction(ctx context.Context, userID string, typ domain.EntityType) error
	ListHiddenEntities(ctx context.Context, userID string) ([]*domain.HiddenEntity, error)

	// Annotations (read origin for filter/sort; writes used by seeder and tests)
	SetRating(ctx context.Context, r *domain.Rating) error
	SetWatchStats(ctx context.Context, w *domain.WatchStats) error

	// Exclusion cache reads
	IsExcluded(ctx context.Context, userID string, typ domain.EntityType, entityID string) (bool, error)
	ListExclusionsForUser(ctx context.Context, userID string) ([]*domain.ExcludedEntity, error)
	GetEntityStats(ctx context.Context, userID string) ([]*domain.EntityStats, error)

	// WithVisibilityTx runs fn inside one transaction with the primitives
	// the exclusion engine needs. A returned error rolls everything back,
	// leaving the previous cache state untouched.
	WithVisibilityTx(ctx context.Context, fn func(tx VisibilityTx) error) error
}

// VisibilityTx exposes transaction-scoped primitives for the exclusion
// engine. Every relationship-edge query is bulk: one statement per edge,
// never one per row.
type VisibilityTx interface {
	// Rule reads
	RestrictionsForUser(ctx context.Context, userID string) ([]*domain.Restriction, error)
	HiddenEntitiesForUser(ctx context.Context, userID string) ([]*domain.HiddenEntity, error)
	InsertHiddenEntity(ctx context.Context, h *domain.HiddenEntity) error
	DeleteHiddenEntity(ctx context.Context, userID string, typ domain.EntityType, entityID string) error

	// Live catalog universe (never a snapshot)
	LiveEntityIDs(ctx context.Context, typ domain.EntityType) ([]string, error)
	LiveEntityCount(ctx context.Context, typ domain.EntityType) (int, error)

	// Exclusion cache writes
	ClearUserExclusions(ctx context.Context, userID string) error
	DeleteExclusion(ctx context.Context, userID string, typ domain.EntityType, entityID string) error
	InsertExclusions(ctx context.Context, rows []*domain.ExcludedEntity) error
	ExcludedCount(ctx context.Context, userID string, typ domain.EntityType) (int, error)

	// Relationship edges (cascade phase)
	ScenesWithPerformers(ctx context.Context, performerIDs []string) ([]string, error)
	ScenesOwnedByStudios(ctx context.Context, studioIDs []string) ([]string, error)
	ScenesInGroups(ctx context.Context, groupIDs []string) ([]string, error)
	ScenesLinkedToGalleries(ctx context.Context, galleryIDs []string) ([]string, error)
	ImagesInGalleries(ctx context.Context, galleryIDs []string) ([]string, error)
	TagDescendants(ctx context.Context, tagIDs []string) ([]string, error)
	ScenesTaggedWith(ctx context.Context, tagIDs []string) ([]string, error)
	ImagesTaggedWith(ctx context.Context, tagIDs []string) ([]string, error)
	EntitiesDirectlyTaggedWith(ctx context.Context, typ domain.EntityType, tagIDs []string) ([]string, error)

	// Empty-container pass: containers of typ with zero non-excluded
	// leaf entities for the user, excluding those already excluded.
	EmptyContainers(ctx context.Context, userID string, typ domain.EntityType) ([]string, error)

	// Stats
	UpsertEntityStats(ctx context.Context, stats *domain.EntityStats) error
}
