package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminRecompute",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/recompute",
		Summary:     "Recompute exclusions",
		Description: "Rebuilds the exclusion cache, for one user or for all",
		Tags:        []string{"Admin"},
	}, s.handleAdminRecompute)

	huma.Register(s.api, huma.Operation{
		OperationID:   "adminTriggerSync",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/sync",
		Summary:       "Trigger catalog sync",
		Description:   "Starts a background pull from the upstream catalog followed by a full recompute",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleAdminTriggerSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminSyncStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/sync",
		Summary:     "Get sync status",
		Tags:        []string{"Admin"},
	}, s.handleAdminSyncStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListEntities",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/catalog/{type}",
		Summary:     "List entities unfiltered",
		Description: "Full-catalog listing with no exclusion join applied",
		Tags:        []string{"Admin"},
	}, s.handleAdminListEntities)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminEntityCounts",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/catalog",
		Summary:     "Count entities",
		Description: "Total live entities per type",
		Tags:        []string{"Admin"},
	}, s.handleAdminEntityCounts)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListExclusions",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users/{id}/exclusions",
		Summary:     "List exclusion cache",
		Description: "Returns a user's full exclusion cache with reasons, for inspecting why something is invisible",
		Tags:        []string{"Admin"},
	}, s.handleAdminListExclusions)
}

// AdminRecomputeInput optionally narrows the recompute to one user.
type AdminRecomputeInput struct {
	CallerID string `header:"X-Mirador-User" required:"true" doc:"Calling admin ID"`
	Body     struct {
		UserID string `json:"user_id,omitempty" doc:"Recompute only this user; empty recomputes everyone"`
	}
}

func (s *Server) handleAdminRecompute(ctx context.Context, in *AdminRecomputeInput) (*MessageOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	if in.Body.UserID != "" {
		if err := s.services.Admin.RecomputeUser(ctx, in.Body.UserID); err != nil {
			return nil, err
		}
		return &MessageOutput{Body: MessageResponse{Message: "Recompute complete"}}, nil
	}
	if err := s.services.Admin.RecomputeAll(ctx); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Recompute complete"}}, nil
}

func (s *Server) handleAdminTriggerSync(ctx context.Context, in *CallerInput) (*MessageOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	if err := s.services.Admin.TriggerSync(); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Sync started"}}, nil
}

// SyncStatusOutput wraps the mirror's current state.
type SyncStatusOutput struct {
	Body service.SyncStatus
}

func (s *Server) handleAdminSyncStatus(ctx context.Context, in *CallerInput) (*SyncStatusOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	return &SyncStatusOutput{Body: *s.services.Admin.GetSyncStatus()}, nil
}

func (s *Server) handleAdminListEntities(ctx context.Context, in *ListEntitiesInput) (*ListEntitiesOutput, error) {
	if err := s.requireAdmin(ctx, in.UserID); err != nil {
		return nil, err
	}
	req, err := s.buildListingRequest(in)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Admin.ListAll(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &ListEntitiesOutput{Body: *res}, nil
}

// EntityCountsOutput wraps per-type catalog totals.
type EntityCountsOutput struct {
	Body struct {
		Counts map[domain.EntityType]int `json:"counts"`
	}
}

func (s *Server) handleAdminEntityCounts(ctx context.Context, in *CallerInput) (*EntityCountsOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	counts, err := s.services.Admin.EntityCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := &EntityCountsOutput{}
	out.Body.Counts = counts
	return out, nil
}

// ExclusionListOutput wraps a user's exclusion cache rows.
type ExclusionListOutput struct {
	Body struct {
		Exclusions []*domain.ExcludedEntity `json:"exclusions"`
	}
}

func (s *Server) handleAdminListExclusions(ctx context.Context, in *UserScopedInput) (*ExclusionListOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	rows, err := s.services.Admin.ListExclusions(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	out := &ExclusionListOutput{}
	out.Body.Exclusions = rows
	return out, nil
}
