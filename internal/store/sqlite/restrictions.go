package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/store"
)

// UpsertRestriction replaces the restriction for (user, entity type),
// including its ID list. One transaction; at most one restriction per
// (user, type) is enforced by the schema.
func (s *Store) UpsertRestriction(ctx context.Context, r *domain.Restriction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO restrictions (id, user_id, entity_type, mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, entity_type) DO UPDATE SET
			mode = excluded.mode,
			updated_at = excluded.updated_at`,
		r.ID, r.UserID, string(r.EntityType), string(r.Mode),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert restriction: %w", err)
	}

	// The stored row may keep its original ID on conflict; resolve it.
	var restrictionID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM restrictions WHERE user_id = ? AND entity_type = ?`,
		r.UserID, string(r.EntityType)).Scan(&restrictionID)
	if err != nil {
		return fmt.Errorf("resolve restriction id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM restriction_entities WHERE restriction_id = ?`, restrictionID); err != nil {
		return fmt.Errorf("clear restriction entities: %w", err)
	}
	for _, entityID := range r.EntityIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO restriction_entities (restriction_id, entity_id) VALUES (?, ?)`,
			restrictionID, entityID); err != nil {
			return fmt.Errorf("insert restriction entity: %w", err)
		}
	}
	return tx.Commit()
}

// GetRestriction returns the restriction for (user, entity type).
func (s *Store) GetRestriction(ctx context.Context, userID string, typ domain.EntityType) (*domain.Restriction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, entity_type, mode, created_at, updated_at
		FROM restrictions WHERE user_id = ? AND entity_type = ?`,
		userID, string(typ))
	r, err := scanRestriction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrRestrictionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get restriction: %w", err)
	}
	if err := s.loadRestrictionEntities(ctx, s.db, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRestrictionsForUser returns all of a user's restrictions with their
// ID lists loaded.
func (s *Store) ListRestrictionsForUser(ctx context.Context, userID string) ([]*domain.Restriction, error) {
	return listRestrictions(ctx, s.db, userID)
}

// DeleteRestriction removes the restriction for (user, entity type).
func (s *Store) DeleteRestriction(ctx context.Context, userID string, typ domain.EntityType) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM restrictions WHERE user_id = ? AND entity_type = ?`,
		userID, string(typ))
	if err != nil {
		return fmt.Errorf("delete restriction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrRestrictionNotFound
	}
	return nil
}

// ListHiddenEntities returns all explicit hides for a user.
func (s *Store) ListHiddenEntities(ctx context.Context, userID string) ([]*domain.HiddenEntity, error) {
	return listHiddenEntities(ctx, s.db, userID)
}

// querier is satisfied by both *sql.DB and *sql.Tx so rule reads can be
// shared between the store surface and the visibility transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanRestriction(scanner interface{ Scan(dest ...any) error }) (*domain.Restriction, error) {
	var (
		r          domain.Restriction
		entityType string
		mode       string
		createdAt  string
		updatedAt  string
	)
	if err := scanner.Scan(&r.ID, &r.UserID, &entityType, &mode, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	// Stored rows may reference types or modes from an older build; the
	// caller decides whether that is skip-worthy or fatal, so keep the raw
	// values here.
	r.EntityType = domain.EntityType(entityType)
	r.Mode = domain.RestrictionMode(mode)

	var err error
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func listRestrictions(ctx context.Context, q querier, userID string) ([]*domain.Restriction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, entity_type, mode, created_at, updated_at
		FROM restrictions WHERE user_id = ? ORDER BY entity_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("query restrictions: %w", err)
	}
	defer rows.Close()

	var restrictions []*domain.Restriction
	for rows.Next() {
		r, err := scanRestriction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restriction: %w", err)
		}
		restrictions = append(restrictions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range restrictions {
		if err := loadRestrictionEntitiesQ(ctx, q, r); err != nil {
			return nil, err
		}
	}
	return restrictions, nil
}

func (s *Store) loadRestrictionEntities(ctx context.Context, q querier, r *domain.Restriction) error {
	return loadRestrictionEntitiesQ(ctx, q, r)
}

func loadRestrictionEntitiesQ(ctx context.Context, q querier, r *domain.Restriction) error {
	rows, err := q.QueryContext(ctx,
		`SELECT entity_id FROM restriction_entities WHERE restriction_id = ?`, r.ID)
	if err != nil {
		return fmt.Errorf("query restriction entities: %w", err)
	}
	defer rows.Close()

	r.EntityIDs = nil
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		r.EntityIDs = append(r.EntityIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	sort.Strings(r.EntityIDs)
	return nil
}

func listHiddenEntities(ctx context.Context, q querier, userID string) ([]*domain.HiddenEntity, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, entity_type, entity_id, created_at
		FROM hidden_entities WHERE user_id = ?
		ORDER BY entity_type, entity_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query hidden entities: %w", err)
	}
	defer rows.Close()

	var hidden []*domain.HiddenEntity
	for rows.Next() {
		var (
			h          domain.HiddenEntity
			entityType string
			createdAt  string
		)
		if err := rows.Scan(&h.UserID, &entityType, &h.EntityID, &createdAt); err != nil {
			return nil, err
		}
		h.EntityType = domain.EntityType(entityType)
		h.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		hidden = append(hidden, &h)
	}
	return hidden, rows.Err()
}
