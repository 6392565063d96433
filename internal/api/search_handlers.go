package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search catalog",
		Description: "Full-text name search across all entity types, filtered by the requesting user's exclusions",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput carries full-text search parameters.
type SearchInput struct {
	UserID string `header:"X-Mirador-User" required:"true" doc:"Requesting user ID"`
	Query  string `query:"q" doc:"Search query"`
	Types  string `query:"types" required:"false" doc:"Comma-separated entity types to search (singular)"`
	Limit  int    `query:"limit" required:"false" doc:"Maximum hits to return"`
	Offset int    `query:"offset" required:"false" doc:"Hits to skip"`
}

// SearchResponse is the search result payload. It is a distinct named
// type because the schema registry names component schemas by bare type
// name, and the listing endpoints already register a Result.
type SearchResponse search.Result

// SearchOutput wraps search results.
type SearchOutput struct {
	Body SearchResponse
}

func (s *Server) handleSearch(ctx context.Context, in *SearchInput) (*SearchOutput, error) {
	params := search.DefaultParams()
	params.Query = in.Query
	if in.Limit > 0 {
		params.Limit = in.Limit
	}
	if in.Offset > 0 {
		params.Offset = in.Offset
	}
	if in.Types != "" {
		for _, raw := range strings.Split(in.Types, ",") {
			typ, err := domain.ParseEntityType(strings.TrimSpace(raw))
			if err != nil {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			params.Types = append(params.Types, typ)
		}
	}

	res, err := s.services.Search.Search(ctx, in.UserID, params)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: SearchResponse(*res)}, nil
}
