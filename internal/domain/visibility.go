package domain

import (
	"fmt"
	"time"
)

// RestrictionMode controls how a restriction's ID list is interpreted.
type RestrictionMode string

const (
	// ModeExclude marks the listed IDs as excluded (deny-list).
	ModeExclude RestrictionMode = "exclude"
	// ModeInclude marks everything NOT listed as excluded (allow-list).
	// The inversion happens at recompute time against the live ID universe.
	ModeInclude RestrictionMode = "include"
)

// ParseRestrictionMode converts a raw string into a RestrictionMode.
func ParseRestrictionMode(s string) (RestrictionMode, error) {
	switch RestrictionMode(s) {
	case ModeExclude, ModeInclude:
		return RestrictionMode(s), nil
	}
	return "", fmt.Errorf("unknown restriction mode %q", s)
}

// Restriction is an admin-set allow/deny list scoped to one entity type
// for one user. Source of truth, low volume. At most one restriction per
// (user, entity type).
type Restriction struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	EntityType EntityType      `json:"entity_type"`
	Mode       RestrictionMode `json:"mode"`
	EntityIDs  []string        `json:"entity_ids"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// HiddenEntity is a user-initiated explicit hide, independent of any
// admin restriction.
type HiddenEntity struct {
	UserID     string     `json:"user_id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ExclusionReason records why an entity landed in the exclusion cache.
type ExclusionReason string

const (
	// ReasonRestricted: direct hit from an admin restriction.
	ReasonRestricted ExclusionReason = "restricted"
	// ReasonHidden: direct hit from a user hide.
	ReasonHidden ExclusionReason = "hidden"
	// ReasonCascade: propagated along a relationship edge.
	ReasonCascade ExclusionReason = "cascade"
	// ReasonEmpty: container with no surviving visible leaf entities.
	ReasonEmpty ExclusionReason = "empty"
)

// ExcludedEntity is one row of the derived exclusion cache. The cache is
// fully reconstructible from catalog relationships + restrictions + hides;
// it is safe to truncate and rebuild at any time and is never a source of
// truth. Unique on (UserID, EntityType, EntityID).
type ExcludedEntity struct {
	UserID     string          `json:"user_id"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Reason     ExclusionReason `json:"reason"`
	ComputedAt time.Time       `json:"computed_at"`
}

// EntityStats is the derived per-user visible count for one entity type.
type EntityStats struct {
	UserID       string     `json:"user_id"`
	EntityType   EntityType `json:"entity_type"`
	VisibleCount int        `json:"visible_count"`
	ComputedAt   time.Time  `json:"computed_at"`
}
