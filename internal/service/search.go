package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	domainerrors "github.com/mirador-app/mirador-server/internal/errors"
	"github.com/mirador-app/mirador-server/internal/search"
	"github.com/mirador-app/mirador-server/internal/store"
)

// SearchService runs name searches across the catalog and filters the
// hits through the requesting user's exclusion cache, so excluded
// entities never surface through search either.
type SearchService struct {
	index  *search.Index
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.Index, st store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  st,
		logger: logger,
	}
}

// Search executes a search for the user. Hits that are excluded for this
// user are dropped from the page; Total shrinks by the dropped count, so
// it stays an upper bound rather than an exact figure when later pages
// also contain excluded hits.
func (s *SearchService) Search(ctx context.Context, userID string, params search.Params) (*search.Result, error) {
	params.Query = strings.TrimSpace(params.Query)
	if params.Query == "" {
		return nil, domainerrors.Validation("search query cannot be empty")
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	visible := res.Hits[:0]
	dropped := 0
	for _, hit := range res.Hits {
		excluded, err := s.store.IsExcluded(ctx, userID, hit.Type, hit.ID)
		if err != nil {
			return nil, fmt.Errorf("check exclusion: %w", err)
		}
		if excluded {
			dropped++
			continue
		}
		visible = append(visible, hit)
	}
	res.Hits = visible
	if uint64(dropped) > res.Total {
		res.Total = 0
	} else {
		res.Total -= uint64(dropped)
	}

	if dropped > 0 {
		s.logger.Debug("search hits filtered by exclusions",
			"user_id", userID, "dropped", dropped, "kept", len(res.Hits))
	}
	return res, nil
}

// DocumentCount returns the number of indexed documents.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
