package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mirador-app/mirador-server/internal/domain"
	domainerrors "github.com/mirador-app/mirador-server/internal/errors"
	"github.com/mirador-app/mirador-server/internal/exclusion"
	"github.com/mirador-app/mirador-server/internal/id"
	"github.com/mirador-app/mirador-server/internal/store"
)

// VisibilityService manages restrictions and hides, and keeps the derived
// exclusion cache in step with every rule change.
type VisibilityService struct {
	store  store.Store
	engine *exclusion.Engine
	logger *slog.Logger
}

// NewVisibilityService creates a new visibility service.
func NewVisibilityService(st store.Store, engine *exclusion.Engine, logger *slog.Logger) *VisibilityService {
	return &VisibilityService{
		store:  st,
		engine: engine,
		logger: logger,
	}
}

// SetRestriction creates or replaces the user's restriction for one
// entity type, then synchronously recomputes their exclusion cache. The
// caller sees the new visibility as soon as this returns.
func (s *VisibilityService) SetRestriction(ctx context.Context, userID string, typ domain.EntityType, mode domain.RestrictionMode, entityIDs []string) (*domain.Restriction, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("user")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if _, err := domain.ParseRestrictionMode(string(mode)); err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	// An empty INCLUDE list is a valid rule meaning "nothing of this
	// type"; an empty EXCLUDE list means "no restriction" and is better
	// expressed by deleting the rule.
	if mode == domain.ModeExclude && len(entityIDs) == 0 {
		return nil, domainerrors.Validation("exclude restriction needs at least one entity ID; delete the restriction to allow everything")
	}

	restrictionID, err := id.Generate("rule")
	if err != nil {
		return nil, fmt.Errorf("generate restriction ID: %w", err)
	}

	now := time.Now()
	r := &domain.Restriction{
		ID:         restrictionID,
		UserID:     userID,
		EntityType: typ,
		Mode:       mode,
		EntityIDs:  entityIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.UpsertRestriction(ctx, r); err != nil {
		return nil, fmt.Errorf("upsert restriction: %w", err)
	}
	if err := s.engine.RecomputeForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("recompute after restriction change: %w", err)
	}

	s.logger.Info("restriction set",
		"user_id", userID,
		"entity_type", typ,
		"mode", mode,
		"ids", len(entityIDs))
	return r, nil
}

// GetRestriction returns the user's restriction for one entity type.
func (s *VisibilityService) GetRestriction(ctx context.Context, userID string, typ domain.EntityType) (*domain.Restriction, error) {
	r, err := s.store.GetRestriction(ctx, userID, typ)
	if err != nil {
		if errors.Is(err, store.ErrRestrictionNotFound) {
			return nil, domainerrors.NotFound("restriction")
		}
		return nil, fmt.Errorf("get restriction: %w", err)
	}
	return r, nil
}

// ListRestrictions returns all of the user's restrictions.
func (s *VisibilityService) ListRestrictions(ctx context.Context, userID string) ([]*domain.Restriction, error) {
	rs, err := s.store.ListRestrictionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list restrictions: %w", err)
	}
	return rs, nil
}

// DeleteRestriction removes the user's restriction for one entity type
// and recomputes their cache.
func (s *VisibilityService) DeleteRestriction(ctx context.Context, userID string, typ domain.EntityType) error {
	if err := s.store.DeleteRestriction(ctx, userID, typ); err != nil {
		if errors.Is(err, store.ErrRestrictionNotFound) {
			return domainerrors.NotFound("restriction")
		}
		return fmt.Errorf("delete restriction: %w", err)
	}
	if err := s.engine.RecomputeForUser(ctx, userID); err != nil {
		return fmt.Errorf("recompute after restriction delete: %w", err)
	}

	s.logger.Info("restriction deleted", "user_id", userID, "entity_type", typ)
	return nil
}

// HideEntity records a user hide. The exclusion cache is extended
// synchronously with the hidden entity and its cascade closure.
func (s *VisibilityService) HideEntity(ctx context.Context, userID string, typ domain.EntityType, entityID string) error {
	if entityID == "" {
		return domainerrors.Validation("entity ID cannot be empty")
	}
	if err := s.engine.AddHiddenEntity(ctx, userID, typ, entityID); err != nil {
		return fmt.Errorf("hide entity: %w", err)
	}
	s.logger.Info("entity hidden", "user_id", userID, "entity_type", typ, "entity_id", entityID)
	return nil
}

// UnhideEntity removes a hide. The entity reappears immediately; the
// rest of the cache catches up via a background recompute.
func (s *VisibilityService) UnhideEntity(ctx context.Context, userID string, typ domain.EntityType, entityID string) error {
	if err := s.engine.RemoveHiddenEntity(ctx, userID, typ, entityID); err != nil {
		if errors.Is(err, store.ErrHiddenNotFound) {
			return domainerrors.NotFound("hidden entity")
		}
		return fmt.Errorf("unhide entity: %w", err)
	}
	s.logger.Info("entity unhidden", "user_id", userID, "entity_type", typ, "entity_id", entityID)
	return nil
}

// ListHidden returns the user's explicit hides.
func (s *VisibilityService) ListHidden(ctx context.Context, userID string) ([]*domain.HiddenEntity, error) {
	hs, err := s.store.ListHiddenEntities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list hidden entities: %w", err)
	}
	return hs, nil
}

// Stats returns the user's per-type visible counts from the cache.
func (s *VisibilityService) Stats(ctx context.Context, userID string) ([]*domain.EntityStats, error) {
	stats, err := s.store.GetEntityStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get entity stats: %w", err)
	}
	return stats, nil
}
