package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"

	"github.com/mirador-app/mirador-server/internal/domain"
)

// Catalog upserts. Each batch runs in one transaction: attribute rows are
// upserted via ON CONFLICT(id), relationship junction rows are replaced
// wholesale for the entities in the batch. The exclusion cache is never
// touched here; the mirror triggers a recompute after the batch.

// replaceJunction deletes all junction rows for ownerID and re-inserts ids.
func replaceJunction(ctx context.Context, tx *sql.Tx, table, ownerCol, relCol, ownerID string, ids []string) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, ownerCol), ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, %s) VALUES (?, ?)`, table, ownerCol, relCol),
			ownerID, id); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// UpsertScenes writes a batch of scenes and their relationship rows.
func (s *Store) UpsertScenes(ctx context.Context, scenes []*domain.Scene) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, sc := range scenes {
		var studioID sql.NullString
		if sc.StudioID != nil {
			studioID = nullString(*sc.StudioID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (id, title, details, date, duration_sec, studio_id, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				details = excluded.details,
				date = excluded.date,
				duration_sec = excluded.duration_sec,
				studio_id = excluded.studio_id,
				updated_at = excluded.updated_at,
				deleted_at = excluded.deleted_at`,
			sc.ID, sc.Title, nullString(sc.Details), nullString(sc.Date), sc.DurationSec,
			studioID, formatTime(sc.CreatedAt), formatTime(sc.UpdatedAt), nullTimeString(sc.DeletedAt))
		if err != nil {
			return fmt.Errorf("upsert scene %s: %w", sc.ID, err)
		}

		if err := replaceJunction(ctx, tx, "scene_performers", "scene_id", "performer_id", sc.ID, sc.PerformerIDs); err != nil {
			return err
		}
		if err := replaceJunction(ctx, tx, "scene_groups", "scene_id", "group_id", sc.ID, sc.GroupIDs); err != nil {
			return err
		}
		// scene_galleries is owned by the gallery side (UpsertGalleries);
		// Scene.GalleryIDs is populated on read only.
		if err := replaceJunction(ctx, tx, "scene_tags", "scene_id", "tag_id", sc.ID, sc.TagIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertPerformers writes a batch of performers.
func (s *Store) UpsertPerformers(ctx context.Context, performers []*domain.Performer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range performers {
		aliases, err := json.Marshal(p.Aliases)
		if err != nil {
			return fmt.Errorf("marshal aliases for %s: %w", p.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO performers (id, name, aliases, country, birth_year, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				aliases = excluded.aliases,
				country = excluded.country,
				birth_year = excluded.birth_year,
				updated_at = excluded.updated_at,
				deleted_at = excluded.deleted_at`,
			p.ID, p.Name, string(aliases), nullString(p.Country), p.BirthYear,
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt), nullTimeString(p.DeletedAt))
		if err != nil {
			return fmt.Errorf("upsert performer %s: %w", p.ID, err)
		}
		if err := replaceJunction(ctx, tx, "performer_tags", "performer_id", "tag_id", p.ID, p.TagIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertStudios writes a batch of studios.
func (s *Store) UpsertStudios(ctx context.Context, studios []*domain.Studio) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, st := range studios {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO studios (id, name, url, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				url = excluded.url,
				updated_at = excluded.updated_at,
				deleted_at = excluded.deleted_at`,
			st.ID, st.Name, nullString(st.URL),
			formatTime(st.CreatedAt), formatTime(st.UpdatedAt), nullTimeString(st.DeletedAt))
		if err != nil {
			return fmt.Errorf("upsert studio %s: %w", st.ID, err)
		}
		if err := replaceJunction(ctx, tx, "studio_tags", "studio_id", "tag_id", st.ID, st.TagIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertTags writes a batch of tags and their hierarchy edges.
func (s *Store) UpsertTags(ctx context.Context, tags []*domain.Tag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (id, name, description, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				updated_at = excluded.updated_at,
				deleted_at = excluded.deleted_at`,
			t.ID, t.Name, nullString(t.Description),
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt), nullTimeString(t.DeletedAt))
		if err != nil {
			return fmt.Errorf("upsert tag %s: %w", t.ID, err)
		}
		if err := replaceJunction(ctx, tx, "tag_parents", "tag_id", "parent_id", t.ID, t.ParentIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertGroups writes a batch of groups.
func (s *Store) UpsertGroups(ctx context.Context, groups []*domain.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, g := range groups {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO groups (id, name, date, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				date = excluded.date,
				updated_at = excluded.updated_at,
				deleted_at = excluded.deleted_at`,
			g.ID, g.Name, nullString(g.Date),
			formatTime(g.CreatedAt), formatTime(g.UpdatedAt), nullTimeString(g.DeletedAt))
		if err != nil {
			return fmt.Errorf("upsert group %s: %w", g.ID, err)
		}
		if err := replaceJunction(ctx, tx, "group_tags", "group_id", "tag_id", g.ID, g.TagIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertGalleries writes a batch of galleries.
func (s *Store) UpsertGalleries(ctx context.Context, galleries []*domain.Gallery) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, g := range galleries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO galleries (id, title, date, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				date = excluded.date,
				updated_at = excluded.updated_at,
				deleted_at = excluded.deleted_at`,
			g.ID, g.Title, nullString(g.Date),
			formatTime(g.CreatedAt), formatTime(g.UpdatedAt), nullTimeString(g.DeletedAt))
		if err != nil {
			return fmt.Errorf("upsert gallery %s: %w", g.ID, err)
		}
		if err := replaceJunction(ctx, tx, "gallery_tags", "gallery_id", "tag_id", g.ID, g.TagIDs); err != nil {
			return err
		}
		if err := replaceJunction(ctx, tx, "scene_galleries", "gallery_id", "scene_id", g.ID, g.SceneIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertImages writes a batch of images.
func (s *Store) UpsertImages(ctx context.Context, images []*domain.Image) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, img := range images {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO images (id, title, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				updated_at = excluded.updated_at,
				deleted_at = excluded.deleted_at`,
			img.ID, nullString(img.Title),
			formatTime(img.CreatedAt), formatTime(img.UpdatedAt), nullTimeString(img.DeletedAt))
		if err != nil {
			return fmt.Errorf("upsert image %s: %w", img.ID, err)
		}
		if err := replaceJunction(ctx, tx, "image_tags", "image_id", "tag_id", img.ID, img.TagIDs); err != nil {
			return err
		}
		if err := replaceJunction(ctx, tx, "gallery_images", "image_id", "gallery_id", img.ID, img.GalleryIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SoftDeleteMissing marks every live entity of typ NOT in keepIDs as
// deleted. Used by the mirror after a full sync pass. Returns the number
// of rows newly marked.
func (s *Store) SoftDeleteMissing(ctx context.Context, typ domain.EntityType, keepIDs []string) (int, error) {
	now := formatTime(timeNow())

	q := fmt.Sprintf(`UPDATE %s SET deleted_at = ? WHERE deleted_at IS NULL`, typ.Table())
	args := []any{now}
	if len(keepIDs) > 0 {
		q += fmt.Sprintf(` AND id NOT IN (%s)`, placeholders(len(keepIDs)))
		args = append(args, stringArgs(keepIDs)...)
	}

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("soft delete missing %s: %w", typ, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// RebuildTagClosures recomputes the inherited-tag junction tables for all
// leaf entities from the direct tag assignments and the tag hierarchy.
func (s *Store) RebuildTagClosures(ctx context.Context) error {
	parents, err := s.TagParents(ctx)
	if err != nil {
		return err
	}
	closure := domain.TagClosure(parents)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, spec := range []struct {
		direct, all, ownerCol string
	}{
		{"scene_tags", "scene_tags_all", "scene_id"},
		{"image_tags", "image_tags_all", "image_id"},
	} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+spec.all); err != nil {
			return fmt.Errorf("clear %s: %w", spec.all, err)
		}

		rows, err := tx.QueryContext(ctx,
			fmt.Sprintf(`SELECT %s, tag_id FROM %s`, spec.ownerCol, spec.direct))
		if err != nil {
			return fmt.Errorf("query %s: %w", spec.direct, err)
		}
		direct := make(map[string][]string)
		for rows.Next() {
			var owner, tagID string
			if err := rows.Scan(&owner, &tagID); err != nil {
				rows.Close()
				return err
			}
			direct[owner] = append(direct[owner], tagID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for owner, tagIDs := range direct {
			all := make(map[string]bool, len(tagIDs))
			for _, tagID := range tagIDs {
				all[tagID] = true
				for anc := range closure[tagID] {
					all[anc] = true
				}
			}
			for tagID := range all {
				if _, err := tx.ExecContext(ctx,
					fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, tag_id) VALUES (?, ?)`, spec.all, spec.ownerCol),
					owner, tagID); err != nil {
					return fmt.Errorf("insert %s: %w", spec.all, err)
				}
			}
		}
	}
	return tx.Commit()
}

// CountEntities returns the number of live (non-deleted) entities of typ.
func (s *Store) CountEntities(ctx context.Context, typ domain.EntityType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL`, typ.Table())).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", typ, err)
	}
	return n, nil
}

// EntityNames returns id → display name for all live entities of typ.
// Used by the search indexer.
func (s *Store) EntityNames(ctx context.Context, typ domain.EntityType) (map[string]string, error) {
	nameCol := "name"
	switch typ {
	case domain.TypeScene, domain.TypeGallery, domain.TypeImage:
		nameCol = "title"
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, COALESCE(%s, '') FROM %s WHERE deleted_at IS NULL`, nameCol, typ.Table()))
	if err != nil {
		return nil, fmt.Errorf("query %s names: %w", typ, err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// TagParents returns the tag hierarchy as a child → parents map, seeded
// with every live tag so parentless tags still appear as keys.
func (s *Store) TagParents(ctx context.Context) (map[string][]string, error) {
	parents := make(map[string][]string)

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tags WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		parents[id] = nil
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT tag_id, parent_id FROM tag_parents`)
	if err != nil {
		return nil, fmt.Errorf("query tag parents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tagID, parentID string
		if err := rows.Scan(&tagID, &parentID); err != nil {
			return nil, err
		}
		parents[tagID] = append(parents[tagID], parentID)
	}
	return parents, rows.Err()
}
