package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/store"
)

// Exclusion cache access. All writes happen through VisibilityTx so the
// exclusion engine's multi-phase rebuild is atomic per user.

// IsExcluded reports whether one entity is in the user's exclusion cache.
func (s *Store) IsExcluded(ctx context.Context, userID string, typ domain.EntityType, entityID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM excluded_entities
		WHERE user_id = ? AND entity_type = ? AND entity_id = ?`,
		userID, string(typ), entityID).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("query exclusion: %w", err)
}

// ListExclusionsForUser returns the full exclusion cache for a user in a
// stable order. Used by the inspector tool and tests.
func (s *Store) ListExclusionsForUser(ctx context.Context, userID string) ([]*domain.ExcludedEntity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, entity_type, entity_id, reason, computed_at
		FROM excluded_entities WHERE user_id = ?
		ORDER BY entity_type, entity_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query exclusions: %w", err)
	}
	defer rows.Close()

	var out []*domain.ExcludedEntity
	for rows.Next() {
		var (
			e          domain.ExcludedEntity
			entityType string
			reason     string
			computedAt string
		)
		if err := rows.Scan(&e.UserID, &entityType, &e.EntityID, &reason, &computedAt); err != nil {
			return nil, err
		}
		e.EntityType = domain.EntityType(entityType)
		e.Reason = domain.ExclusionReason(reason)
		e.ComputedAt, err = parseTime(computedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// GetEntityStats returns per-type visible counts for a user.
func (s *Store) GetEntityStats(ctx context.Context, userID string) ([]*domain.EntityStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, entity_type, visible_count, computed_at
		FROM entity_stats WHERE user_id = ? ORDER BY entity_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("query entity stats: %w", err)
	}
	defer rows.Close()

	var out []*domain.EntityStats
	for rows.Next() {
		var (
			st         domain.EntityStats
			entityType string
			computedAt string
		)
		if err := rows.Scan(&st.UserID, &entityType, &st.VisibleCount, &computedAt); err != nil {
			return nil, err
		}
		st.EntityType = domain.EntityType(entityType)
		st.ComputedAt, err = parseTime(computedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// WithVisibilityTx runs fn inside one transaction. Any error rolls the
// whole rebuild back, leaving the previous cache state untouched.
func (s *Store) WithVisibilityTx(ctx context.Context, fn func(tx store.VisibilityTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin visibility tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&visibilityTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// visibilityTx implements store.VisibilityTx on a live *sql.Tx.
type visibilityTx struct {
	q querier
}

func (t *visibilityTx) RestrictionsForUser(ctx context.Context, userID string) ([]*domain.Restriction, error) {
	return listRestrictions(ctx, t.q, userID)
}

func (t *visibilityTx) HiddenEntitiesForUser(ctx context.Context, userID string) ([]*domain.HiddenEntity, error) {
	return listHiddenEntities(ctx, t.q, userID)
}

func (t *visibilityTx) InsertHiddenEntity(ctx context.Context, h *domain.HiddenEntity) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO hidden_entities (user_id, entity_type, entity_id, created_at)
		VALUES (?, ?, ?, ?)`,
		h.UserID, string(h.EntityType), h.EntityID, formatTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert hidden entity: %w", err)
	}
	return nil
}

func (t *visibilityTx) DeleteHiddenEntity(ctx context.Context, userID string, typ domain.EntityType, entityID string) error {
	res, err := t.q.ExecContext(ctx, `
		DELETE FROM hidden_entities
		WHERE user_id = ? AND entity_type = ? AND entity_id = ?`,
		userID, string(typ), entityID)
	if err != nil {
		return fmt.Errorf("delete hidden entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrHiddenNotFound
	}
	return nil
}

func (t *visibilityTx) LiveEntityIDs(ctx context.Context, typ domain.EntityType) ([]string, error) {
	return queryIDs(ctx, t.q,
		fmt.Sprintf(`SELECT id FROM %s WHERE deleted_at IS NULL ORDER BY id`, typ.Table()))
}

func (t *visibilityTx) LiveEntityCount(ctx context.Context, typ domain.EntityType) (int, error) {
	var n int
	err := t.q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL`, typ.Table())).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live %s: %w", typ, err)
	}
	return n, nil
}

func (t *visibilityTx) ClearUserExclusions(ctx context.Context, userID string) error {
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM excluded_entities WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear exclusions: %w", err)
	}
	return nil
}

func (t *visibilityTx) DeleteExclusion(ctx context.Context, userID string, typ domain.EntityType, entityID string) error {
	if _, err := t.q.ExecContext(ctx, `
		DELETE FROM excluded_entities
		WHERE user_id = ? AND entity_type = ? AND entity_id = ?`,
		userID, string(typ), entityID); err != nil {
		return fmt.Errorf("delete exclusion: %w", err)
	}
	return nil
}

// InsertExclusions bulk-inserts cache rows. OR IGNORE keeps the first
// reason written for an entity: phase order (restricted/hidden before
// cascade before empty) decides which wins.
func (t *visibilityTx) InsertExclusions(ctx context.Context, rows []*domain.ExcludedEntity) error {
	for _, e := range rows {
		if _, err := t.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO excluded_entities (user_id, entity_type, entity_id, reason, computed_at)
			VALUES (?, ?, ?, ?, ?)`,
			e.UserID, string(e.EntityType), e.EntityID, string(e.Reason), formatTime(e.ComputedAt)); err != nil {
			return fmt.Errorf("insert exclusion %s/%s: %w", e.EntityType, e.EntityID, err)
		}
	}
	return nil
}

func (t *visibilityTx) ExcludedCount(ctx context.Context, userID string, typ domain.EntityType) (int, error) {
	var n int
	err := t.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM excluded_entities
		WHERE user_id = ? AND entity_type = ?`,
		userID, string(typ)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count exclusions: %w", err)
	}
	return n, nil
}

// Relationship-edge queries. One bulk statement per edge, chunked to stay
// under SQLite's bound-parameter ceiling.

const inChunkSize = 500

// queryIDsIn runs queryFmt (containing one %s for the placeholder list)
// once per chunk of ids and concatenates the results.
func queryIDsIn(ctx context.Context, q querier, queryFmt string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []string
	for start := 0; start < len(ids); start += inChunkSize {
		end := min(start+inChunkSize, len(ids))
		chunk := ids[start:end]
		got, err := queryIDs(ctx, q,
			fmt.Sprintf(queryFmt, placeholders(len(chunk))), stringArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (t *visibilityTx) ScenesWithPerformers(ctx context.Context, performerIDs []string) ([]string, error) {
	return queryIDsIn(ctx, t.q, `
		SELECT DISTINCT sp.scene_id FROM scene_performers sp
		JOIN scenes s ON s.id = sp.scene_id AND s.deleted_at IS NULL
		WHERE sp.performer_id IN (%s)`, performerIDs)
}

func (t *visibilityTx) ScenesOwnedByStudios(ctx context.Context, studioIDs []string) ([]string, error) {
	return queryIDsIn(ctx, t.q, `
		SELECT id FROM scenes
		WHERE deleted_at IS NULL AND studio_id IN (%s)`, studioIDs)
}

func (t *visibilityTx) ScenesInGroups(ctx context.Context, groupIDs []string) ([]string, error) {
	return queryIDsIn(ctx, t.q, `
		SELECT DISTINCT sg.scene_id FROM scene_groups sg
		JOIN scenes s ON s.id = sg.scene_id AND s.deleted_at IS NULL
		WHERE sg.group_id IN (%s)`, groupIDs)
}

func (t *visibilityTx) ScenesLinkedToGalleries(ctx context.Context, galleryIDs []string) ([]string, error) {
	return queryIDsIn(ctx, t.q, `
		SELECT DISTINCT sg.scene_id FROM scene_galleries sg
		JOIN scenes s ON s.id = sg.scene_id AND s.deleted_at IS NULL
		WHERE sg.gallery_id IN (%s)`, galleryIDs)
}

func (t *visibilityTx) ImagesInGalleries(ctx context.Context, galleryIDs []string) ([]string, error) {
	return queryIDsIn(ctx, t.q, `
		SELECT DISTINCT gi.image_id FROM gallery_images gi
		JOIN images i ON i.id = gi.image_id AND i.deleted_at IS NULL
		WHERE gi.gallery_id IN (%s)`, galleryIDs)
}

// TagDescendants returns all tags strictly below any of tagIDs in the
// hierarchy, via a recursive walk of tag_parents.
func (t *visibilityTx) TagDescendants(ctx context.Context, tagIDs []string) ([]string, error) {
	return queryIDsIn(ctx, t.q, `
		WITH RECURSIVE descendants(id) AS (
			SELECT tag_id FROM tag_parents WHERE parent_id IN (%s)
			UNION
			SELECT tp.tag_id FROM tag_parents tp
			JOIN descendants d ON tp.parent_id = d.id
		)
		SELECT DISTINCT id FROM descendants`, tagIDs)
}

// ScenesTaggedWith matches against the inherited closure, so a scene whose
// direct tag is a descendant of an excluded tag is caught here too.
func (t *visibilityTx) ScenesTaggedWith(ctx context.Context, tagIDs []string) ([]string, error) {
	return queryIDsIn(ctx, t.q, `
		SELECT DISTINCT sta.scene_id FROM scene_tags_all sta
		JOIN scenes s ON s.id = sta.scene_id AND s.deleted_at IS NULL
		WHERE sta.tag_id IN (%s)`, tagIDs)
}

func (t *visibilityTx) ImagesTaggedWith(ctx context.Context, tagIDs []string) ([]string, error) {
	return queryIDsIn(ctx, t.q, `
		SELECT DISTINCT ita.image_id FROM image_tags_all ita
		JOIN images i ON i.id = ita.image_id AND i.deleted_at IS NULL
		WHERE ita.tag_id IN (%s)`, tagIDs)
}

// EntitiesDirectlyTaggedWith returns performers, studios, or groups
// carrying one of tagIDs as a direct tag.
func (t *visibilityTx) EntitiesDirectlyTaggedWith(ctx context.Context, typ domain.EntityType, tagIDs []string) ([]string, error) {
	var junction, ownerCol, table string
	switch typ {
	case domain.TypePerformer:
		junction, ownerCol, table = "performer_tags", "performer_id", "performers"
	case domain.TypeStudio:
		junction, ownerCol, table = "studio_tags", "studio_id", "studios"
	case domain.TypeGroup:
		junction, ownerCol, table = "group_tags", "group_id", "groups"
	default:
		return nil, fmt.Errorf("no direct-tag junction for %s", typ)
	}
	return queryIDsIn(ctx, t.q, fmt.Sprintf(`
		SELECT DISTINCT j.%s FROM %s j
		JOIN %s e ON e.id = j.%s AND e.deleted_at IS NULL
		WHERE j.tag_id IN (%%s)`, ownerCol, junction, table, ownerCol), tagIDs)
}

// EmptyContainers finds live, not-yet-excluded containers of typ that have
// zero surviving (live and non-excluded) leaf entities. Emptiness reads
// only leaf exclusion rows, so the result does not depend on what other
// container types the engine has already excluded.
func (t *visibilityTx) EmptyContainers(ctx context.Context, userID string, typ domain.EntityType) ([]string, error) {
	var leafPredicate string
	switch typ {
	case domain.TypePerformer:
		leafPredicate = `
			SELECT 1 FROM scene_performers sp
			JOIN scenes s ON s.id = sp.scene_id AND s.deleted_at IS NULL
			WHERE sp.performer_id = c.id
			AND NOT EXISTS (
				SELECT 1 FROM excluded_entities ee WHERE ee.user_id = ?1
				AND ee.entity_type = 'scene' AND ee.entity_id = s.id)`
	case domain.TypeStudio:
		leafPredicate = `
			SELECT 1 FROM scenes s
			WHERE s.studio_id = c.id AND s.deleted_at IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM excluded_entities ee WHERE ee.user_id = ?1
				AND ee.entity_type = 'scene' AND ee.entity_id = s.id)`
	case domain.TypeGroup:
		leafPredicate = `
			SELECT 1 FROM scene_groups sg
			JOIN scenes s ON s.id = sg.scene_id AND s.deleted_at IS NULL
			WHERE sg.group_id = c.id
			AND NOT EXISTS (
				SELECT 1 FROM excluded_entities ee WHERE ee.user_id = ?1
				AND ee.entity_type = 'scene' AND ee.entity_id = s.id)`
	case domain.TypeGallery:
		leafPredicate = `
			SELECT 1 FROM gallery_images gi
			JOIN images i ON i.id = gi.image_id AND i.deleted_at IS NULL
			WHERE gi.gallery_id = c.id
			AND NOT EXISTS (
				SELECT 1 FROM excluded_entities ee WHERE ee.user_id = ?1
				AND ee.entity_type = 'image' AND ee.entity_id = i.id)
			UNION ALL
			SELECT 1 FROM scene_galleries sg
			JOIN scenes s ON s.id = sg.scene_id AND s.deleted_at IS NULL
			WHERE sg.gallery_id = c.id
			AND NOT EXISTS (
				SELECT 1 FROM excluded_entities ee WHERE ee.user_id = ?1
				AND ee.entity_type = 'scene' AND ee.entity_id = s.id)`
	case domain.TypeTag:
		leafPredicate = `
			SELECT 1 FROM scene_tags_all sta
			JOIN scenes s ON s.id = sta.scene_id AND s.deleted_at IS NULL
			WHERE sta.tag_id = c.id
			AND NOT EXISTS (
				SELECT 1 FROM excluded_entities ee WHERE ee.user_id = ?1
				AND ee.entity_type = 'scene' AND ee.entity_id = s.id)
			UNION ALL
			SELECT 1 FROM image_tags_all ita
			JOIN images i ON i.id = ita.image_id AND i.deleted_at IS NULL
			WHERE ita.tag_id = c.id
			AND NOT EXISTS (
				SELECT 1 FROM excluded_entities ee WHERE ee.user_id = ?1
				AND ee.entity_type = 'image' AND ee.entity_id = i.id)`
	default:
		return nil, fmt.Errorf("%s is not a container type", typ)
	}

	query := fmt.Sprintf(`
		SELECT c.id FROM %s c
		WHERE c.deleted_at IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM excluded_entities ee WHERE ee.user_id = ?1
			AND ee.entity_type = ?2 AND ee.entity_id = c.id)
		AND NOT EXISTS (%s)
		ORDER BY c.id`, typ.Table(), leafPredicate)

	return queryIDs(ctx, t.q, query, userID, string(typ))
}

func (t *visibilityTx) UpsertEntityStats(ctx context.Context, stats *domain.EntityStats) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO entity_stats (user_id, entity_type, visible_count, computed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, entity_type) DO UPDATE SET
			visible_count = excluded.visible_count,
			computed_at = excluded.computed_at`,
		stats.UserID, string(stats.EntityType), stats.VisibleCount, formatTime(stats.ComputedAt))
	if err != nil {
		return fmt.Errorf("upsert entity stats: %w", err)
	}
	return nil
}
