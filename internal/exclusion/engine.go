// Package exclusion implements the content-visibility engine: a derived,
// transactionally-maintained cache of which catalog entities are invisible
// to which user.
//
// The cache is never a source of truth. It is a deterministic function of
// the catalog relationships, admin restrictions, and user hides, and is
// safe to truncate and rebuild at any time.
package exclusion

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/store"
)

// Engine computes and maintains per-user exclusion caches.
type Engine struct {
	store  store.Store
	logger *slog.Logger

	// recomputeParallelism bounds RecomputeAllUsers. Per-user transactions
	// are independent; this only limits wasted contention on the writer.
	recomputeParallelism int
}

// New creates an exclusion engine. parallelism bounds concurrent per-user
// recomputes during RecomputeAllUsers; values below 1 are clamped.
func New(st store.Store, parallelism int, logger *slog.Logger) *Engine {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Engine{
		store:                st,
		logger:               logger.With("component", "exclusion"),
		recomputeParallelism: parallelism,
	}
}

// RecomputeForUser atomically replaces the user's entire exclusion cache
// and stats. A failure at any phase rolls back and leaves the previous
// cache intact. Idempotent: with no intervening source changes, a second
// run produces an identical row set.
func (e *Engine) RecomputeForUser(ctx context.Context, userID string) error {
	start := time.Now()
	var inserted int

	err := e.store.WithVisibilityTx(ctx, func(tx store.VisibilityTx) error {
		r := &recompute{
			tx:         tx,
			userID:     userID,
			computedAt: start.UTC(),
			logger:     e.logger,
		}
		var err error
		inserted, err = r.run(ctx)
		return err
	})
	if err != nil {
		return err
	}

	e.logger.Debug("recomputed exclusions",
		"user_id", userID,
		"rows", inserted,
		"duration", time.Since(start))
	return nil
}

// RecomputeAllUsers rebuilds every user's cache. Invoked after a catalog
// sync batch completes. Per-user transactions are independent, so a
// bounded worker pool is safe; the first error cancels the remainder.
func (e *Engine) RecomputeAllUsers(ctx context.Context) error {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.recomputeParallelism)
	for _, u := range users {
		g.Go(func() error {
			return e.RecomputeForUser(ctx, u.ID)
		})
	}
	return g.Wait()
}

// AddHiddenEntity records a user hide and synchronously extends the
// exclusion cache with the hidden entity plus the cascade closure
// reachable from that single entity. The caller blocks until done; the
// delta is small and bounded, so no full recompute is needed.
func (e *Engine) AddHiddenEntity(ctx context.Context, userID string, typ domain.EntityType, entityID string) error {
	now := time.Now().UTC()

	return e.store.WithVisibilityTx(ctx, func(tx store.VisibilityTx) error {
		if err := tx.InsertHiddenEntity(ctx, &domain.HiddenEntity{
			UserID:     userID,
			EntityType: typ,
			EntityID:   entityID,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		rows := []*domain.ExcludedEntity{{
			UserID:     userID,
			EntityType: typ,
			EntityID:   entityID,
			Reason:     domain.ReasonHidden,
			ComputedAt: now,
		}}

		cascade, err := cascadeFrom(ctx, tx, map[domain.EntityType][]string{typ: {entityID}})
		if err != nil {
			return err
		}
		for ctyp, ids := range cascade {
			for _, id := range ids {
				rows = append(rows, &domain.ExcludedEntity{
					UserID:     userID,
					EntityType: ctyp,
					EntityID:   id,
					Reason:     domain.ReasonCascade,
					ComputedAt: now,
				})
			}
		}

		if err := tx.InsertExclusions(ctx, rows); err != nil {
			return err
		}
		return updateStats(ctx, tx, userID, now)
	})
}

// RemoveHiddenEntity deletes the hide and optimistically drops its direct
// cache row, then schedules a full recompute in the background: other
// exclusions (cascade, empty) may have depended on the interaction of
// several hidden or restricted entities, so an incremental removal cannot
// be computed safely. Background failures are logged, not surfaced — the
// cache stays valid, merely stale, and self-heals on the next trigger.
func (e *Engine) RemoveHiddenEntity(ctx context.Context, userID string, typ domain.EntityType, entityID string) error {
	err := e.store.WithVisibilityTx(ctx, func(tx store.VisibilityTx) error {
		if err := tx.DeleteHiddenEntity(ctx, userID, typ, entityID); err != nil {
			return err
		}
		return tx.DeleteExclusion(ctx, userID, typ, entityID)
	})
	if err != nil {
		return err
	}

	// Detached: survives the request context, no cancellation or timeout.
	go func() {
		if err := e.RecomputeForUser(context.Background(), userID); err != nil {
			e.logger.Error("background recompute after unhide failed",
				"user_id", userID, "error", err)
		}
	}()
	return nil
}

// recompute carries one full per-user rebuild through its five phases.
type recompute struct {
	tx         store.VisibilityTx
	userID     string
	computedAt time.Time
	logger     *slog.Logger
}

func (r *recompute) run(ctx context.Context) (int, error) {
	// Phase 1: clear.
	if err := r.tx.ClearUserExclusions(ctx, r.userID); err != nil {
		return 0, err
	}

	// Phase 2: direct exclusions from restrictions and hides.
	direct, err := r.directExclusions(ctx)
	if err != nil {
		return 0, err
	}
	inserted := len(direct)
	if err := r.tx.InsertExclusions(ctx, direct); err != nil {
		return 0, err
	}

	// Phase 3: cascade along relationship edges, grouped by type so each
	// edge is one bulk query.
	byType := make(map[domain.EntityType][]string)
	for _, e := range direct {
		byType[e.EntityType] = append(byType[e.EntityType], e.EntityID)
	}
	cascade, err := cascadeFrom(ctx, r.tx, byType)
	if err != nil {
		return 0, err
	}
	var cascadeRows []*domain.ExcludedEntity
	for typ, ids := range cascade {
		for _, id := range ids {
			cascadeRows = append(cascadeRows, &domain.ExcludedEntity{
				UserID:     r.userID,
				EntityType: typ,
				EntityID:   id,
				Reason:     domain.ReasonCascade,
				ComputedAt: r.computedAt,
			})
		}
	}
	inserted += len(cascadeRows)
	if err := r.tx.InsertExclusions(ctx, cascadeRows); err != nil {
		return 0, err
	}

	// Phase 4: empty containers, iterated to a fixed point. A container
	// can hold nothing but other now-empty containers' leaves (a tag
	// applied only to performers whose scenes all vanished), so one pass
	// per type is not enough in general.
	n, err := r.emptyContainers(ctx)
	if err != nil {
		return 0, err
	}
	inserted += n

	// Phase 5: stats.
	if err := updateStats(ctx, r.tx, r.userID, r.computedAt); err != nil {
		return 0, err
	}
	return inserted, nil
}

// directExclusions applies EXCLUDE lists, inverts INCLUDE lists against
// the live ID universe, and marks explicit hides.
func (r *recompute) directExclusions(ctx context.Context) ([]*domain.ExcludedEntity, error) {
	var rows []*domain.ExcludedEntity
	add := func(typ domain.EntityType, id string, reason domain.ExclusionReason) {
		rows = append(rows, &domain.ExcludedEntity{
			UserID:     r.userID,
			EntityType: typ,
			EntityID:   id,
			Reason:     reason,
			ComputedAt: r.computedAt,
		})
	}

	restrictions, err := r.tx.RestrictionsForUser(ctx, r.userID)
	if err != nil {
		return nil, err
	}
	for _, restriction := range restrictions {
		if _, err := domain.ParseEntityType(string(restriction.EntityType)); err != nil {
			// Stale rule from an older build. Skip it so listings stay
			// available; the rule-management surface is where it gets fixed.
			r.logger.Warn("skipping restriction with unknown entity type",
				"user_id", r.userID, "entity_type", restriction.EntityType)
			continue
		}

		switch restriction.Mode {
		case domain.ModeExclude:
			for _, id := range restriction.EntityIDs {
				add(restriction.EntityType, id, domain.ReasonRestricted)
			}
		case domain.ModeInclude:
			// Inversion must run against the live universe inside this
			// transaction; a stale snapshot would silently hide or leak
			// entities created since.
			live, err := r.tx.LiveEntityIDs(ctx, restriction.EntityType)
			if err != nil {
				return nil, err
			}
			allowed := make(map[string]bool, len(restriction.EntityIDs))
			for _, id := range restriction.EntityIDs {
				allowed[id] = true
			}
			for _, id := range live {
				if !allowed[id] {
					add(restriction.EntityType, id, domain.ReasonRestricted)
				}
			}
		default:
			r.logger.Warn("skipping restriction with unknown mode",
				"user_id", r.userID, "mode", restriction.Mode)
		}
	}

	hidden, err := r.tx.HiddenEntitiesForUser(ctx, r.userID)
	if err != nil {
		return nil, err
	}
	for _, h := range hidden {
		if _, err := domain.ParseEntityType(string(h.EntityType)); err != nil {
			r.logger.Warn("skipping hidden entity with unknown type",
				"user_id", r.userID, "entity_type", h.EntityType)
			continue
		}
		add(h.EntityType, h.EntityID, domain.ReasonHidden)
	}
	return rows, nil
}

// emptyContainers runs the anti-join pass once per container type.
// Emptiness is judged against leaf (scene/image) exclusions only, and
// this phase inserts only container rows, so no container type can
// create work for another: a single sweep is complete.
func (r *recompute) emptyContainers(ctx context.Context) (int, error) {
	containerTypes := []domain.EntityType{
		domain.TypeGallery, domain.TypePerformer, domain.TypeStudio,
		domain.TypeGroup, domain.TypeTag,
	}

	total := 0
	for _, typ := range containerTypes {
		ids, err := r.tx.EmptyContainers(ctx, r.userID, typ)
		if err != nil {
			return 0, err
		}
		if len(ids) == 0 {
			continue
		}
		rows := make([]*domain.ExcludedEntity, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, &domain.ExcludedEntity{
				UserID:     r.userID,
				EntityType: typ,
				EntityID:   id,
				Reason:     domain.ReasonEmpty,
				ComputedAt: r.computedAt,
			})
		}
		if err := r.tx.InsertExclusions(ctx, rows); err != nil {
			return 0, err
		}
		total += len(rows)
	}
	return total, nil
}

// updateStats upserts visibleCount = live − excluded for all seven types.
func updateStats(ctx context.Context, tx store.VisibilityTx, userID string, computedAt time.Time) error {
	for _, typ := range domain.AllEntityTypes() {
		live, err := tx.LiveEntityCount(ctx, typ)
		if err != nil {
			return err
		}
		excluded, err := tx.ExcludedCount(ctx, userID, typ)
		if err != nil {
			return err
		}
		visible := live - excluded
		if visible < 0 {
			// Excluded rows can reference soft-deleted entities.
			visible = 0
		}
		if err := tx.UpsertEntityStats(ctx, &domain.EntityStats{
			UserID:       userID,
			EntityType:   typ,
			VisibleCount: visible,
			ComputedAt:   computedAt,
		}); err != nil {
			return err
		}
	}
	return nil
}
