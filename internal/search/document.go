// Package search provides full-text search across the catalog using Bleve.
// All seven entity types share one index with type discrimination, so a
// single query can surface a performer, a studio, and the scenes that
// mention them side by side.
package search

import (
	"strings"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/normalize"
)

// Document is the unified structure for the Bleve index.
//
// Design note: catalog IDs are only unique within a type, so the Bleve
// document key is "type:id". The original ID and type are stored fields
// and come back on every hit.
type Document struct {
	ID   string            `json:"id"`   // Original entity ID
	Type domain.EntityType `json:"type"` // Discriminator for result grouping

	// Primary searchable text: title for scenes/galleries/images, name
	// for everything else.
	Name string `json:"name"`

	// NameFolded is the lowercased, diacritic-stripped form of Name so
	// "Zoë" is findable as "zoe". Indexed, never displayed.
	NameFolded string `json:"name_folded"`

	// Aliases are alternate names (performers only).
	Aliases []string `json:"aliases,omitempty"`

	// Timestamps for sorting. Unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Key returns the Bleve document key for this document.
func (d *Document) Key() string {
	return string(d.Type) + ":" + d.ID
}

// SplitKey recovers (type, id) from a Bleve document key. Entity IDs may
// themselves contain colons, so only the first separator counts.
func SplitKey(key string) (domain.EntityType, string) {
	typ, id, ok := strings.Cut(key, ":")
	if !ok {
		return "", key
	}
	return domain.EntityType(typ), id
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":          d.ID,
		"type":        string(d.Type),
		"name":        d.Name,
		"name_folded": d.NameFolded,
		"created_at":  d.CreatedAt,
		"updated_at":  d.UpdatedAt,
	}
	if len(d.Aliases) > 0 {
		m["aliases"] = d.Aliases
	}
	return m
}

// NewDocument builds an index document for one entity.
func NewDocument(typ domain.EntityType, id, name string, aliases []string, createdAt, updatedAt int64) *Document {
	return &Document{
		ID:         id,
		Type:       typ,
		Name:       normalize.Sanitize(name),
		NameFolded: normalize.Fold(name),
		Aliases:    aliases,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}
