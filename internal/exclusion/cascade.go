package exclusion

import (
	"context"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/store"
)

// cascadeFrom computes the full cascade closure reachable from the given
// exclusions, grouped by entity type. Edges are fixed:
//
//	performer → scenes containing the performer
//	studio    → scenes owned by the studio
//	group     → scenes in the group
//	gallery   → scenes linked to it, images it contains
//	tag       → descendant tags; scenes/images whose direct-or-inherited
//	            tag set contains the tag or any descendant; performers,
//	            studios, and groups directly tagged with it
//
// The closure iterates until no new entities appear: a tag exclusion can
// pull in a performer, whose scenes must then follow. Each edge runs as
// one bulk query per round, never per row. Seeds themselves are not part
// of the returned delta.
func cascadeFrom(ctx context.Context, tx store.VisibilityTx, seeds map[domain.EntityType][]string) (map[domain.EntityType][]string, error) {
	seen := make(map[domain.EntityType]map[string]bool)
	mark := func(typ domain.EntityType, ids []string) []string {
		if seen[typ] == nil {
			seen[typ] = make(map[string]bool)
		}
		var fresh []string
		for _, id := range ids {
			if !seen[typ][id] {
				seen[typ][id] = true
				fresh = append(fresh, id)
			}
		}
		return fresh
	}

	// Pending entities whose outgoing edges still need to be followed.
	pending := make(map[domain.EntityType][]string)
	for typ, ids := range seeds {
		pending[typ] = mark(typ, ids)
	}

	result := make(map[domain.EntityType][]string)
	emit := func(typ domain.EntityType, ids []string) {
		fresh := mark(typ, ids)
		if len(fresh) == 0 {
			return
		}
		result[typ] = append(result[typ], fresh...)
		pending[typ] = append(pending[typ], fresh...)
	}

	for {
		next := pending
		pending = make(map[domain.EntityType][]string)

		progressed := false
		for typ, ids := range next {
			if len(ids) == 0 {
				continue
			}
			progressed = true
			if err := followEdges(ctx, tx, typ, ids, emit); err != nil {
				return nil, err
			}
		}
		if !progressed {
			return result, nil
		}
	}
}

// followEdges runs the bulk edge queries for one source type.
func followEdges(ctx context.Context, tx store.VisibilityTx, typ domain.EntityType, ids []string, emit func(domain.EntityType, []string)) error {
	switch typ {
	case domain.TypePerformer:
		scenes, err := tx.ScenesWithPerformers(ctx, ids)
		if err != nil {
			return err
		}
		emit(domain.TypeScene, scenes)

	case domain.TypeStudio:
		scenes, err := tx.ScenesOwnedByStudios(ctx, ids)
		if err != nil {
			return err
		}
		emit(domain.TypeScene, scenes)

	case domain.TypeGroup:
		scenes, err := tx.ScenesInGroups(ctx, ids)
		if err != nil {
			return err
		}
		emit(domain.TypeScene, scenes)

	case domain.TypeGallery:
		scenes, err := tx.ScenesLinkedToGalleries(ctx, ids)
		if err != nil {
			return err
		}
		emit(domain.TypeScene, scenes)

		images, err := tx.ImagesInGalleries(ctx, ids)
		if err != nil {
			return err
		}
		emit(domain.TypeImage, images)

	case domain.TypeTag:
		// Descendant tags follow the parent out of view, and the expanded
		// set drives the leaf matches; closure-table matches below also
		// catch ancestors of directly-assigned tags.
		descendants, err := tx.TagDescendants(ctx, ids)
		if err != nil {
			return err
		}
		emit(domain.TypeTag, descendants)
		expanded := append(append([]string{}, ids...), descendants...)

		scenes, err := tx.ScenesTaggedWith(ctx, expanded)
		if err != nil {
			return err
		}
		emit(domain.TypeScene, scenes)

		images, err := tx.ImagesTaggedWith(ctx, expanded)
		if err != nil {
			return err
		}
		emit(domain.TypeImage, images)

		for _, tagged := range []domain.EntityType{domain.TypePerformer, domain.TypeStudio, domain.TypeGroup} {
			entities, err := tx.EntitiesDirectlyTaggedWith(ctx, tagged, expanded)
			if err != nil {
				return err
			}
			emit(tagged, entities)
		}

	case domain.TypeScene, domain.TypeImage:
		// Leaves have no outgoing cascade edges.
	}
	return nil
}
