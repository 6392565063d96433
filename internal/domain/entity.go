// Package domain defines the core types for the Mirador server: catalog
// entities mirrored from the upstream catalog, per-user visibility rules,
// and the derived exclusion cache.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies one of the seven catalog entity kinds.
//
// The set is closed: adding a new kind means adding a constant here and
// updating All, so every switch over EntityType is a compile-time-checked
// change rather than a silent runtime no-op.
type EntityType string

const (
	TypeScene     EntityType = "scene"
	TypePerformer EntityType = "performer"
	TypeStudio    EntityType = "studio"
	TypeTag       EntityType = "tag"
	TypeGroup     EntityType = "group"
	TypeGallery   EntityType = "gallery"
	TypeImage     EntityType = "image"
)

// AllEntityTypes lists every entity type in a stable order.
func AllEntityTypes() []EntityType {
	return []EntityType{
		TypeScene, TypePerformer, TypeStudio, TypeTag,
		TypeGroup, TypeGallery, TypeImage,
	}
}

// ParseEntityType converts a raw string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case TypeScene, TypePerformer, TypeStudio, TypeTag, TypeGroup, TypeGallery, TypeImage:
		return EntityType(s), nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// IsLeaf reports whether the type is directly consumable content.
// Leaf entities are what container visibility is ultimately judged against.
func (t EntityType) IsLeaf() bool {
	return t == TypeScene || t == TypeImage
}

// IsContainer reports whether the type is organizational: it can become
// excluded when it holds no surviving leaf entities.
func (t EntityType) IsContainer() bool {
	switch t {
	case TypeGallery, TypePerformer, TypeStudio, TypeGroup, TypeTag:
		return true
	}
	return false
}

// Table returns the catalog table backing this entity type.
func (t EntityType) Table() string {
	if t == TypeGallery {
		return "galleries"
	}
	return string(t) + "s"
}

// Scene is a leaf content entity mirrored from the catalog.
// Relationship ID slices are populated by hydration, not by base queries.
type Scene struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Details     string     `json:"details,omitempty"`
	Date        string     `json:"date,omitempty"` // YYYY-MM-DD as provided upstream
	DurationSec int        `json:"duration_sec,omitempty"`
	StudioID    *string    `json:"studio_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	PerformerIDs []string `json:"performer_ids,omitempty"`
	TagIDs       []string `json:"tag_ids,omitempty"`
	GroupIDs     []string `json:"group_ids,omitempty"`
	GalleryIDs   []string `json:"gallery_ids,omitempty"`
}

// Performer is a container entity (a person appearing in scenes).
type Performer struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	Aliases   []string   `json:"aliases,omitempty"`
	Country   string     `json:"country,omitempty"`
	BirthYear int        `json:"birth_year,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	TagIDs []string `json:"tag_ids,omitempty"`
}

// Studio is a container entity owning scenes.
type Studio struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	URL       string     `json:"url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	TagIDs []string `json:"tag_ids,omitempty"`
}

// Group is a container entity collecting scenes (e.g. a series or movie).
type Group struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	Date      string     `json:"date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	TagIDs []string `json:"tag_ids,omitempty"`
}

// Gallery is a container entity holding images and linking to scenes.
type Gallery struct {
	ID        string     `json:"id" validate:"required"`
	Title     string     `json:"title" validate:"required"`
	Date      string     `json:"date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	TagIDs   []string `json:"tag_ids,omitempty"`
	SceneIDs []string `json:"scene_ids,omitempty"`
}

// Image is a leaf content entity, always reached through galleries.
type Image struct {
	ID        string     `json:"id" validate:"required"`
	Title     string     `json:"title,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	TagIDs     []string `json:"tag_ids,omitempty"`
	GalleryIDs []string `json:"gallery_ids,omitempty"`
}
