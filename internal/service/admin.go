package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mirador-app/mirador-server/internal/catalog"
	"github.com/mirador-app/mirador-server/internal/domain"
	domainerrors "github.com/mirador-app/mirador-server/internal/errors"
	"github.com/mirador-app/mirador-server/internal/exclusion"
	"github.com/mirador-app/mirador-server/internal/query"
	"github.com/mirador-app/mirador-server/internal/store"
)

// AdminService exposes the maintenance surface: recomputes, catalog
// syncs, unfiltered listings, and cache inspection.
type AdminService struct {
	store    store.Store
	engine   *exclusion.Engine
	mirror   *catalog.Mirror
	executor *query.Executor
	logger   *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(st store.Store, engine *exclusion.Engine, mirror *catalog.Mirror, executor *query.Executor, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:    st,
		engine:   engine,
		mirror:   mirror,
		executor: executor,
		logger:   logger,
	}
}

// RecomputeUser rebuilds one user's exclusion cache synchronously.
func (s *AdminService) RecomputeUser(ctx context.Context, userID string) error {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return domainerrors.NotFound("user")
		}
		return fmt.Errorf("get user: %w", err)
	}
	if err := s.engine.RecomputeForUser(ctx, userID); err != nil {
		return fmt.Errorf("recompute user: %w", err)
	}
	return nil
}

// RecomputeAll rebuilds every user's exclusion cache synchronously.
func (s *AdminService) RecomputeAll(ctx context.Context) error {
	if err := s.engine.RecomputeAllUsers(ctx); err != nil {
		return fmt.Errorf("recompute all users: %w", err)
	}
	return nil
}

// TriggerSync starts a catalog sync in the background. The report lands
// in SyncStatus when the run finishes.
func (s *AdminService) TriggerSync() error {
	if !s.mirror.Enabled() {
		return domainerrors.Unavailable("no upstream catalog configured")
	}
	if s.mirror.Running() {
		return domainerrors.Conflict("a catalog sync is already running")
	}

	// Detached from the request: a sync outlives any sensible HTTP
	// timeout. Failures are recorded in the report and logged.
	go func() {
		if _, err := s.mirror.Sync(context.Background()); err != nil {
			s.logger.Error("background catalog sync failed", "error", err)
		}
	}()
	return nil
}

// SyncStatus reports whether a sync is running and the last run's report.
type SyncStatus struct {
	Running    bool                `json:"running"`
	LastReport *catalog.SyncReport `json:"last_report,omitempty"`
}

// GetSyncStatus returns the current sync state.
func (s *AdminService) GetSyncStatus() *SyncStatus {
	return &SyncStatus{
		Running:    s.mirror.Running(),
		LastReport: s.mirror.LastReport(),
	}
}

// ListAll runs a listing without the exclusion join: the admin view sees
// the full catalog regardless of any user's rules.
func (s *AdminService) ListAll(ctx context.Context, req query.Request) (*query.Result, error) {
	req.ApplyExclusions = false

	res, err := s.executor.Execute(ctx, req)
	if err != nil {
		if errors.Is(err, query.ErrInvalidRequest) {
			return nil, domainerrors.Validation(err.Error())
		}
		return nil, fmt.Errorf("execute admin listing: %w", err)
	}
	return res, nil
}

// EntityCounts returns total live entities per type, no user applied.
func (s *AdminService) EntityCounts(ctx context.Context) (map[domain.EntityType]int, error) {
	out := make(map[domain.EntityType]int, len(domain.AllEntityTypes()))
	for _, typ := range domain.AllEntityTypes() {
		n, err := s.store.CountEntities(ctx, typ)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", typ, err)
		}
		out[typ] = n
	}
	return out, nil
}

// ListExclusions returns a user's full exclusion cache with reasons, for
// inspecting why something is invisible.
func (s *AdminService) ListExclusions(ctx context.Context, userID string) ([]*domain.ExcludedEntity, error) {
	rows, err := s.store.ListExclusionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	return rows, nil
}
