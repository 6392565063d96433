package api

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/mirador-app/mirador-server/internal/errors"
	"github.com/mirador-app/mirador-server/internal/query"
)

func (s *Server) registerListingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listEntities",
		Method:      http.MethodGet,
		Path:        "/api/v1/{type}",
		Summary:     "List entities",
		Description: "Returns a filtered, sorted, paginated page of catalog entities with the requesting user's exclusions applied",
		Tags:        []string{"Catalog"},
	}, s.handleListEntities)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEntity",
		Method:      http.MethodGet,
		Path:        "/api/v1/{type}/{id}",
		Summary:     "Get entity",
		Description: "Returns a single hydrated entity by ID",
		Tags:        []string{"Catalog"},
	}, s.handleGetEntity)
}

// ListEntitiesInput carries the listing parameters. The filter set rides
// in a JSON-encoded query parameter because its shape (numeric modifiers,
// relation modifiers, ID lists) does not flatten into form values.
type ListEntitiesInput struct {
	UserID    string `header:"X-Mirador-User" required:"true" doc:"Requesting user ID"`
	Type      string `path:"type" doc:"Entity type, plural form (scenes, performers, studios, tags, groups, galleries, images)"`
	Query     string `query:"q" required:"false" doc:"Free-text filter across name/title columns"`
	Filters   string `query:"filters" required:"false" doc:"JSON-encoded filter set (numeric, relations, text, ids)"`
	Sort      string `query:"sort" required:"false" doc:"Sort field; 'random' requires a seed for stable pagination"`
	Direction string `query:"direction" required:"false" doc:"Sort direction: asc or desc"`
	Page      int    `query:"page" required:"false" doc:"1-based page number"`
	PerPage   int    `query:"per_page" required:"false" doc:"Page size, capped server-side"`
	Seed      string `query:"seed" required:"false" doc:"Unsigned seed for stable random ordering"`
}

// ListEntitiesOutput wraps one result page for Huma.
type ListEntitiesOutput struct {
	Body query.Result
}

func (s *Server) handleListEntities(ctx context.Context, in *ListEntitiesInput) (*ListEntitiesOutput, error) {
	req, err := s.buildListingRequest(in)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Listing.List(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &ListEntitiesOutput{Body: *res}, nil
}

func (s *Server) buildListingRequest(in *ListEntitiesInput) (*query.Request, error) {
	typ, err := parseEntityPath(in.Type)
	if err != nil {
		return nil, err
	}

	dir, err := query.ParseDirection(in.Direction)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	var filters query.Filters
	if in.Filters != "" {
		if err := json.Unmarshal([]byte(in.Filters), &filters); err != nil {
			return nil, domainerrors.Validationf("malformed filters parameter: %v", err)
		}
	}
	if in.Query != "" {
		filters.Text = in.Query
	}

	req := &query.Request{
		UserID:    in.UserID,
		Type:      typ,
		Filters:   filters,
		Sort:      in.Sort,
		Direction: dir,
		Page:      in.Page,
		PerPage:   in.PerPage,
	}

	if in.Seed != "" {
		seed, err := strconv.ParseUint(in.Seed, 10, 64)
		if err != nil {
			return nil, domainerrors.Validationf("malformed seed %q", in.Seed)
		}
		req.RandomSeed = &seed
	}

	return req, nil
}

// GetEntityInput identifies one entity for an explicit lookup.
type GetEntityInput struct {
	UserID string `header:"X-Mirador-User" required:"true" doc:"Requesting user ID"`
	Type   string `path:"type" doc:"Entity type, plural form"`
	ID     string `path:"id" doc:"Entity ID"`
}

// GetEntityOutput wraps a single-entity result for Huma.
type GetEntityOutput struct {
	Body query.Result
}

func (s *Server) handleGetEntity(ctx context.Context, in *GetEntityInput) (*GetEntityOutput, error) {
	typ, err := parseEntityPath(in.Type)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Listing.Get(ctx, in.UserID, typ, in.ID)
	if err != nil {
		return nil, err
	}
	return &GetEntityOutput{Body: *res}, nil
}
