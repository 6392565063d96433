// Package service orchestrates domain operations between the HTTP layer
// and the store, engine, query builder, and search index.
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

// UserService manages library accounts. Authentication is external;
// these users exist as owners for visibility rules and annotations.
type UserService struct {
	store  store.Store
	engine *exclusion.Engine
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(st store.Store, engine *exclusion.Engine, logger *slog.Logger) *UserService {
	return &UserService{
		store:  st,
		engine: engine,
		logger: logger,
	}
}

// CreateUser creates a user and seeds their exclusion cache so stats are
// available immediately.
func (s *UserService) CreateUser(ctx context.Context, name string, isAdmin bool) (*domain.User, error) {
	if name == "" {
		return nil, domainerrors.Validation("user name cannot be empty")
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:        userID,
		Name:      name,
		IsAdmin:   isAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// A fresh user has no rules, but stats rows should exist from the
	// start rather than appearing after the first rule change.
	if err := s.engine.RecomputeForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("seed exclusion cache: %w", err)
	}

	s.logger.Info("user created", "user_id", userID, "name", name)
	return user, nil
}

// GetUser returns one user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("user")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users.
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user. Their rules, annotations, and exclusion
// cache rows go with them via foreign keys.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return domainerrors.NotFound("user")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("user deleted", "user_id", userID)
	return nil
}
