package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirador-app/mirador-server/internal/domain"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createUser",
		Method:        http.MethodPost,
		Path:          "/api/v1/users",
		Summary:       "Create user",
		Description:   "Creates a user and seeds their visibility stats",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Tags:        []string{"Users"},
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get user",
		Tags:        []string{"Users"},
	}, s.handleGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/{id}",
		Summary:     "Delete user",
		Description: "Deletes a user along with their rules, annotations, and cached exclusions",
		Tags:        []string{"Users"},
	}, s.handleDeleteUser)
}

// CreateUserInput carries the new user's attributes.
type CreateUserInput struct {
	CallerID string `header:"X-Mirador-User" required:"true" doc:"Calling admin ID"`
	Body     struct {
		Name    string `json:"name" minLength:"1" doc:"Display name"`
		IsAdmin bool   `json:"is_admin,omitempty" doc:"Grant admin privileges"`
	}
}

// UserOutput wraps one user.
type UserOutput struct {
	Body domain.User
}

func (s *Server) handleCreateUser(ctx context.Context, in *CreateUserInput) (*UserOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	u, err := s.services.Users.CreateUser(ctx, in.Body.Name, in.Body.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: *u}, nil
}

// CallerInput carries only the calling user header.
type CallerInput struct {
	CallerID string `header:"X-Mirador-User" required:"true" doc:"Calling admin ID"`
}

// UserListOutput wraps all users.
type UserListOutput struct {
	Body struct {
		Users []*domain.User `json:"users"`
	}
}

func (s *Server) handleListUsers(ctx context.Context, in *CallerInput) (*UserListOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	users, err := s.services.Users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := &UserListOutput{}
	out.Body.Users = users
	return out, nil
}

func (s *Server) handleGetUser(ctx context.Context, in *UserScopedInput) (*UserOutput, error) {
	if err := s.requireSelfOrAdmin(ctx, in.CallerID, in.UserID); err != nil {
		return nil, err
	}
	u, err := s.services.Users.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: *u}, nil
}

func (s *Server) handleDeleteUser(ctx context.Context, in *UserScopedInput) (*MessageOutput, error) {
	if err := s.requireAdmin(ctx, in.CallerID); err != nil {
		return nil, err
	}
	if err := s.services.Users.DeleteUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "User deleted"}}, nil
}
