package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/mirador-app/mirador-server/internal/domain"
)

// hydrateChunk bounds the number of bound parameters per relation query.
const hydrateChunk = 500

// hydrate populates relationship ID slices on the page's items, one
// batched junction query per relation. Direct tag junctions are used
// here, not the inherited closures: hydration shows what an entity is
// actually tagged with.
func (ex *Executor) hydrate(ctx context.Context, typ domain.EntityType, res *Result) error {
	switch typ {
	case domain.TypeScene:
		ids := res.IDs()
		performers, err := ex.loadRelation(ctx, "scene_performers", "scene_id", "performer_id", ids)
		if err != nil {
			return err
		}
		tags, err := ex.loadRelation(ctx, "scene_tags", "scene_id", "tag_id", ids)
		if err != nil {
			return err
		}
		groups, err := ex.loadRelation(ctx, "scene_groups", "scene_id", "group_id", ids)
		if err != nil {
			return err
		}
		galleries, err := ex.loadRelation(ctx, "scene_galleries", "scene_id", "gallery_id", ids)
		if err != nil {
			return err
		}
		for _, s := range res.Scenes {
			s.PerformerIDs = performers[s.ID]
			s.TagIDs = tags[s.ID]
			s.GroupIDs = groups[s.ID]
			s.GalleryIDs = galleries[s.ID]
		}

	case domain.TypePerformer:
		tags, err := ex.loadRelation(ctx, "performer_tags", "performer_id", "tag_id", res.IDs())
		if err != nil {
			return err
		}
		for _, p := range res.Performers {
			p.TagIDs = tags[p.ID]
		}

	case domain.TypeStudio:
		tags, err := ex.loadRelation(ctx, "studio_tags", "studio_id", "tag_id", res.IDs())
		if err != nil {
			return err
		}
		for _, s := range res.Studios {
			s.TagIDs = tags[s.ID]
		}

	case domain.TypeTag:
		parents, err := ex.loadRelation(ctx, "tag_parents", "tag_id", "parent_id", res.IDs())
		if err != nil {
			return err
		}
		for _, t := range res.Tags {
			t.ParentIDs = parents[t.ID]
		}

	case domain.TypeGroup:
		tags, err := ex.loadRelation(ctx, "group_tags", "group_id", "tag_id", res.IDs())
		if err != nil {
			return err
		}
		for _, g := range res.Groups {
			g.TagIDs = tags[g.ID]
		}

	case domain.TypeGallery:
		ids := res.IDs()
		tags, err := ex.loadRelation(ctx, "gallery_tags", "gallery_id", "tag_id", ids)
		if err != nil {
			return err
		}
		scenes, err := ex.loadRelation(ctx, "scene_galleries", "gallery_id", "scene_id", ids)
		if err != nil {
			return err
		}
		for _, g := range res.Galleries {
			g.TagIDs = tags[g.ID]
			g.SceneIDs = scenes[g.ID]
		}

	case domain.TypeImage:
		ids := res.IDs()
		tags, err := ex.loadRelation(ctx, "image_tags", "image_id", "tag_id", ids)
		if err != nil {
			return err
		}
		galleries, err := ex.loadRelation(ctx, "gallery_images", "image_id", "gallery_id", ids)
		if err != nil {
			return err
		}
		for _, i := range res.Images {
			i.TagIDs = tags[i.ID]
			i.GalleryIDs = galleries[i.ID]
		}
	}
	return nil
}

// loadRelation fetches (owner, related) pairs for the given owners and
// groups them by owner, related IDs sorted for stable output.
func (ex *Executor) loadRelation(ctx context.Context, table, ownerCol, relCol string, owners []string) (map[string][]string, error) {
	out := make(map[string][]string, len(owners))
	for start := 0; start < len(owners); start += hydrateChunk {
		end := min(start+hydrateChunk, len(owners))
		chunk := owners[start:end]

		q := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s) ORDER BY %s, %s",
			ownerCol, relCol, table, ownerCol,
			strings.Repeat("?, ", len(chunk)-1)+"?", ownerCol, relCol)

		rows, err := ex.db.QueryContext(ctx, q, stringArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", table, err)
		}
		for rows.Next() {
			var owner, rel string
			if err := rows.Scan(&owner, &rel); err != nil {
				rows.Close()
				return nil, err
			}
			out[owner] = append(out[owner], rel)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}
