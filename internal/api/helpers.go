package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirador-app/mirador-server/internal/domain"
	domainerrors "github.com/mirador-app/mirador-server/internal/errors"
	"github.com/mirador-app/mirador-server/internal/store"
)

// MessageResponse carries a simple success message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// parseEntityPath resolves a URL path segment like "scenes" or "performers"
// to an entity type. Both the plural table form and the singular type name
// are accepted.
func parseEntityPath(s string) (domain.EntityType, error) {
	for _, typ := range domain.AllEntityTypes() {
		if typ.Table() == s || string(typ) == s {
			return typ, nil
		}
	}
	return "", domainerrors.Validationf("unknown entity type %q", s)
}

// requireAdmin resolves the calling user and verifies admin status.
// Admin-only surfaces (restriction management, recompute, sync) key off the
// caller identified by the X-Mirador-User header; authentication itself is
// handled upstream of this server.
func (s *Server) requireAdmin(ctx context.Context, callerID string) error {
	if callerID == "" {
		return huma.Error401Unauthorized("missing X-Mirador-User header")
	}
	caller, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return huma.Error401Unauthorized("unknown calling user")
		}
		return huma.Error500InternalServerError("resolve calling user", err)
	}
	if !caller.IsAdmin {
		return huma.Error403Forbidden("admin privileges required")
	}
	return nil
}

// requireSelfOrAdmin allows a user to act on their own view, or an admin
// to act on anyone's.
func (s *Server) requireSelfOrAdmin(ctx context.Context, callerID, userID string) error {
	if callerID == "" {
		return huma.Error401Unauthorized("missing X-Mirador-User header")
	}
	if callerID == userID {
		return nil
	}
	return s.requireAdmin(ctx, callerID)
}
