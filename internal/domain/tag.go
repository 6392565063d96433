package domain

import "time"

// Tag is a container entity with a parent/child hierarchy (a DAG in the
// general case, a tree in practice). Entities that carry tags store both
// their direct tags and the precomputed inherited closure (all ancestors of
// direct tags) so reads never traverse the hierarchy.
type Tag struct {
	ID          string     `json:"id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	ParentIDs []string `json:"parent_ids,omitempty"`
}

// TagClosure walks a parent-of map and returns, for each tag, the set of
// all its ancestors. Cycles (invalid upstream data) are tolerated: a tag is
// never its own ancestor unless the hierarchy genuinely loops, and the walk
// terminates regardless.
func TagClosure(parents map[string][]string) map[string]map[string]bool {
	closure := make(map[string]map[string]bool, len(parents))
	var visit func(id string) map[string]bool
	visiting := make(map[string]bool)

	visit = func(id string) map[string]bool {
		if got, ok := closure[id]; ok {
			return got
		}
		if visiting[id] {
			// Cycle guard: treat the in-progress node as having no
			// further ancestors on this path.
			return nil
		}
		visiting[id] = true
		defer delete(visiting, id)

		set := make(map[string]bool)
		for _, p := range parents[id] {
			set[p] = true
			for anc := range visit(p) {
				set[anc] = true
			}
		}
		closure[id] = set
		return set
	}

	for id := range parents {
		visit(id)
	}
	return closure
}

// TagDescendants inverts a parent-of map and returns, for the given tag,
// the set of all tags below it (children, grandchildren, ...), not
// including the tag itself.
func TagDescendants(parents map[string][]string, tagID string) map[string]bool {
	children := make(map[string][]string)
	for child, ps := range parents {
		for _, p := range ps {
			children[p] = append(children[p], child)
		}
	}

	out := make(map[string]bool)
	queue := []string{tagID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			if !out[c] {
				out[c] = true
				queue = append(queue, c)
			}
		}
	}
	return out
}
