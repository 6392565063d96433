package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mirador-app/mirador-server/internal/domain"
	domainerrors "github.com/mirador-app/mirador-server/internal/errors"
	"github.com/mirador-app/mirador-server/internal/query"
)

// ListingService serves filtered, sorted, paginated catalog listings with
// the requesting user's exclusions applied.
type ListingService struct {
	executor *query.Executor
	logger   *slog.Logger
}

// NewListingService creates a new listing service.
func NewListingService(executor *query.Executor, logger *slog.Logger) *ListingService {
	return &ListingService{
		executor: executor,
		logger:   logger,
	}
}

// List runs one listing request. Exclusions are always applied here;
// administrative unfiltered views go through the admin surface instead.
func (s *ListingService) List(ctx context.Context, req query.Request) (*query.Result, error) {
	req.ApplyExclusions = true

	res, err := s.executor.Execute(ctx, req)
	if err != nil {
		if errors.Is(err, query.ErrInvalidRequest) {
			return nil, domainerrors.Validation(err.Error())
		}
		return nil, fmt.Errorf("execute listing: %w", err)
	}
	return res, nil
}

// Get fetches one entity by ID, hydrated. Explicit lookups skip the
// exclusion join: the caller already holds the ID and has decided the
// entity should resolve regardless of exclusion state.
func (s *ListingService) Get(ctx context.Context, userID string, typ domain.EntityType, entityID string) (*query.Result, error) {
	res, err := s.executor.Execute(ctx, query.Request{
		UserID: userID,
		Type:   typ,
		Filters: query.Filters{
			IDs: &query.IDFilter{Include: []string{entityID}},
		},
		ApplyExclusions: false,
		Page:            1,
		PerPage:         1,
	})
	if err != nil {
		if errors.Is(err, query.ErrInvalidRequest) {
			return nil, domainerrors.Validation(err.Error())
		}
		return nil, fmt.Errorf("get %s: %w", typ, err)
	}
	if res.Len() == 0 {
		return nil, domainerrors.NotFoundf("%s not found", typ)
	}
	return res, nil
}
