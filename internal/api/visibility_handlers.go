package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirador-app/mirador-server/internal/domain"
)

func (s *Server) registerVisibilityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "hideEntity",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/{id}/hidden",
		Summary:     "Hide entity",
		Description: "Hides one entity for a user; the cascade closure reachable from it is excluded synchronously",
		Tags:        []string{"Visibility"},
	}, s.handleHideEntity)

	huma.Register(s.api, huma.Operation{
		OperationID:   "unhideEntity",
		Method:        http.MethodDelete,
		Path:          "/api/v1/users/{id}/hidden/{type}/{entityID}",
		Summary:       "Unhide entity",
		Description:   "Removes a hide; dependent cascade rows are cleaned up by a background recompute",
		Tags:          []string{"Visibility"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleUnhideEntity)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHiddenEntities",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/hidden",
		Summary:     "List hidden entities",
		Tags:        []string{"Visibility"},
	}, s.handleListHidden)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/stats",
		Summary:     "Get visible counts",
		Description: "Returns per-type visible entity counts for a user",
		Tags:        []string{"Visibility"},
	}, s.handleGetUserStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "setRestriction",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/{id}/restrictions/{type}",
		Summary:     "Set restriction",
		Description: "Replaces a user's restriction for one entity type and recomputes their exclusion cache",
		Tags:        []string{"Visibility"},
	}, s.handleSetRestriction)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRestriction",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/restrictions/{type}",
		Summary:     "Get restriction",
		Tags:        []string{"Visibility"},
	}, s.handleGetRestriction)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRestrictions",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/restrictions",
		Summary:     "List restrictions",
		Tags:        []string{"Visibility"},
	}, s.handleListRestrictions)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRestriction",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/{id}/restrictions/{type}",
		Summary:     "Delete restriction",
		Description: "Removes a user's restriction for one entity type and recomputes their exclusion cache",
		Tags:        []string{"Visibility"},
	}, s.handleDeleteRestriction)
}

// HideEntityInput hides one entity for the addressed user.
type HideEntityInput struct {
	CallerID string `header:"X-Mirador-User" required:"true" doc:"Calling user ID"`
	UserID   string `path:"id" doc:"User whose view is changed"`
	Body     struct {
		EntityType string `json:"entity_type" doc:"Entity type (singular, e.g. scene)"`
		EntityID   string `json:"entity_id" doc:"Entity to hide"`
	}
}

func (s *Server) handleHideEntity(ctx context.Context, in *HideEntityInput) (*MessageOutput, error) {
	if err := s.requireSelfOrAdmin(ctx, in.CallerID, in.UserID); err != nil {
		return nil, err
	}
	typ, err := domain.ParseEntityType(in.Body.EntityType)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if err := s.services.Visibility.HideEntity(ctx, in.UserID, typ, in.Body.EntityID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Entity hidden"}}, nil
}

// UnhideEntityInput identifies one hide to remove.
type UnhideEntityInput struct {
	CallerID string `header:"X-Mirador-User" required:"true" doc:"Calling user ID"`
	UserID   string `path:"id" doc:"User whose view is changed"`
	Type     string `path:"type" doc:"Entity type (singular)"`
	EntityID string `path:"entityID" doc:"Entity to unhide"`
}

func (s *Server) handleUnhideEntity(ctx context.Context, in *UnhideEntityInput) (*MessageOutput, error) {
	if err := s.requireSelfOrAdmin(ctx, in.CallerID, in.UserID); err != nil {
		return nil, err
	}
	typ, err := domain.ParseEntityType(in.Type)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if err := s.services.Visibility.UnhideEntity(ctx, in.UserID, typ, in.EntityID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Entity unhidden; cascade cleanup runs in the background"}}, nil
}

// UserScopedInput addresses one user.
type UserScopedInput struct {
	CallerID string `header:"X-Mirador-User" required:"true" doc:"Calling user ID"`
	UserID   string `path:"id" doc:"User ID"`
}

// HiddenListOutput wraps a user's hidden entities.
type HiddenListOutput struct {
	Body struct {
		Hidden []*domain.HiddenEntity `json:"hidden"`
	}
}

func (s *Server) handleListHidden(ctx context.Context, in *UserScopedInput) (*HiddenListOutput, error) {
	if err := s.requireSelfOrAdmin(ctx, in.CallerID, in.UserID); err != nil {
		return nil, err
	}
	hidden, err := s.services.Visibility.ListHidden(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	out := &HiddenListOutput{}
	out.Body.Hidden = hidden
	return out, nil
}

// StatsOutput wraps per-type visible counts.
type StatsOutput struct {
	Body struct {
		Stats []*domain.EntityStats `json:"stats"`
	}
}

func (s *Server) handleGetUserStats(ctx context.Context, in *UserScopedInput) (*StatsOutput, error) {
	if err := s.requireSelfOrAdmin(ctx, in.CallerID, in.UserID); err != nil {
		return nil, err
	}
	stats, err := s.services.Visibility.Stats(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	out := &StatsOutput{}
	out.Body.Stats = stats
	return out, nil
}

// SetRestrictionInput replaces one user's restriction for an entity type.
type SetRestrictionInput struct {
	CallerID string `header:"X-Mirador-User" required:"true" doc:"Calling admin ID"`
	UserID   string `path:"id" doc:"User the restriction applies to"`
	Type     string `path:"type" doc:"Entity type (singular)"`
	Body     struct {
		Mode      string   `json:"mode" enum:"include,exclude" doc:"include allow-lists, exclude deny-lists"`
		EntityIDs []string `json:"entity_ids" doc:"Entity IDs the mode applies to"`
	}
}

// RestrictionOutput wraps one restriction.
type RestrictionOutput struct {
	Body domain.Restriction
}

func (s *Server) handleSetRestriction(ctx context.Context, in *SetRestrictionInput) (*RestrictionOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	typ, err := domain.ParseEntityType(in.Type)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	r, err := s.services.Visibility.SetRestriction(ctx, in.UserID, typ, domain.RestrictionMode(in.Body.Mode), in.Body.EntityIDs)
	if err != nil {
		return nil, err
	}
	return &RestrictionOutput{Body: *r}, nil
}

// RestrictionScopedInput addresses one user's restriction for a type.
type RestrictionScopedInput struct {
	CallerID string `header:"X-Mirador-User" required:"true" doc:"Calling admin ID"`
	UserID   string `path:"id" doc:"User ID"`
	Type     string `path:"type" doc:"Entity type (singular)"`
}

func (s *Server) handleGetRestriction(ctx context.Context, in *RestrictionScopedInput) (*RestrictionOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	typ, err := domain.ParseEntityType(in.Type)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	r, err := s.services.Visibility.GetRestriction(ctx, in.UserID, typ)
	if err != nil {
		return nil, err
	}
	return &RestrictionOutput{Body: *r}, nil
}

// RestrictionListOutput wraps all of a user's restrictions.
type RestrictionListOutput struct {
	Body struct {
		Restrictions []*domain.Restriction `json:"restrictions"`
	}
}

func (s *Server) handleListRestrictions(ctx context.Context, in *UserScopedInput) (*RestrictionListOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	rs, err := s.services.Visibility.ListRestrictions(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	out := &RestrictionListOutput{}
	out.Body.Restrictions = rs
	return out, nil
}

func (s *Server) handleDeleteRestriction(ctx context.Context, in *RestrictionScopedInput) (*MessageOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	typ, err := domain.ParseEntityType(in.Type)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if err := s.services.Visibility.DeleteRestriction(ctx, in.UserID, typ); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Restriction deleted"}}, nil
}
