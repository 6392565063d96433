// Package query composes parameterized, filterable, sortable, paginated
// SQL against the catalog, joining the per-user exclusion cache and
// annotation tables. It supports a fixed, closed set of entity types and
// filter/sort vocabularies; it is not a general query language.
package query

import (
	"fmt"

	"github.com/mirador-app/mirador-server/internal/domain"
)

// Direction orders a sort ascending or descending.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection converts a raw string, defaulting empty to ascending.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// NumericModifier selects the comparison for a numeric filter.
type NumericModifier string

const (
	ModEquals      NumericModifier = "equals"
	ModNotEquals   NumericModifier = "not_equals"
	ModGreaterThan NumericModifier = "greater_than"
	ModLessThan    NumericModifier = "less_than"
	ModBetween     NumericModifier = "between"
)

// RelationModifier selects the membership semantics for a relation filter.
type RelationModifier string

const (
	ModIncludes    RelationModifier = "includes"
	ModIncludesAll RelationModifier = "includes_all"
	ModExcludes    RelationModifier = "excludes"
)

// NumericFilter constrains a whitelisted numeric field. Value2 is only
// read for the between modifier.
type NumericFilter struct {
	Field    string          `json:"field"`
	Modifier NumericModifier `json:"modifier"`
	Value    int64           `json:"value"`
	Value2   int64           `json:"value2,omitempty"`
}

// RelationFilter constrains membership in a related-entity set via a
// correlated subquery on the junction table.
type RelationFilter struct {
	Relation string           `json:"relation"`
	Modifier RelationModifier `json:"modifier"`
	IDs      []string         `json:"ids"`
}

// IDFilter allow/deny-lists explicit entity IDs.
type IDFilter struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Filters is the full filter set for one request. Absent members compile
// to nothing — never to an always-true or always-false tautology.
type Filters struct {
	Numeric   []NumericFilter  `json:"numeric,omitempty"`
	Relations []RelationFilter `json:"relations,omitempty"`
	Text      string           `json:"text,omitempty"`
	IDs       *IDFilter        `json:"ids,omitempty"`
}

// Request is one listing query.
type Request struct {
	UserID string
	Type   domain.EntityType

	Filters Filters

	// ApplyExclusions joins the user's exclusion cache and hides matching
	// rows. False is for administrative views and explicit ID lookups,
	// where the caller has already decided visibility.
	ApplyExclusions bool

	Sort      string
	Direction Direction

	Page    int // 1-based
	PerPage int

	// RandomSeed makes sort=random deterministic and pagination-stable.
	// A nil seed falls back to a non-deterministic ordering, unsuitable
	// for paginated consumption.
	RandomSeed *uint64
}

// Result is one page plus the total count over the same filter set. The
// slice matching the requested type is populated; zero matches yield an
// empty page with Total 0, never an error.
type Result struct {
	Total int `json:"total"`

	Scenes     []*domain.Scene     `json:"scenes,omitempty"`
	Performers []*domain.Performer `json:"performers,omitempty"`
	Studios    []*domain.Studio    `json:"studios,omitempty"`
	Tags       []*domain.Tag       `json:"tags,omitempty"`
	Groups     []*domain.Group     `json:"groups,omitempty"`
	Galleries  []*domain.Gallery   `json:"galleries,omitempty"`
	Images     []*domain.Image     `json:"images,omitempty"`
}

// Len returns the number of items on the page.
func (r *Result) Len() int {
	return len(r.Scenes) + len(r.Performers) + len(r.Studios) + len(r.Tags) +
		len(r.Groups) + len(r.Galleries) + len(r.Images)
}

// IDs returns the page's entity IDs in page order.
func (r *Result) IDs() []string {
	out := make([]string, 0, r.Len())
	for _, s := range r.Scenes {
		out = append(out, s.ID)
	}
	for _, p := range r.Performers {
		out = append(out, p.ID)
	}
	for _, s := range r.Studios {
		out = append(out, s.ID)
	}
	for _, t := range r.Tags {
		out = append(out, t.ID)
	}
	for _, g := range r.Groups {
		out = append(out, g.ID)
	}
	for _, g := range r.Galleries {
		out = append(out, g.ID)
	}
	for _, i := range r.Images {
		out = append(out, i.ID)
	}
	return out
}
