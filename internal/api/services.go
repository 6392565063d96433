package api

import (
	"github.com/mirador-app/mirador-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Users      *service.UserService
	Visibility *service.VisibilityService
	Listing    *service.ListingService
	Search     *service.SearchService
	Admin      *service.AdminService
}
