package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidRequest marks compile-time request errors (unknown type,
// field, relation, or sort key) apart from execution failures, so callers
// can report them as the caller's fault.
var ErrInvalidRequest = errors.New("invalid query request")

const (
	defaultPerPage = 25
	maxPerPage     = 250

	// Knuth multiplicative hash constant and a large prime modulus give a
	// stable pseudo-random permutation of rowids for a given seed.
	randomMultiplier = 2654435761
	randomModulus    = 1073741789
)

// Executor runs listing queries against the catalog database.
type Executor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutor creates an Executor over an open database handle.
func NewExecutor(db *sql.DB, logger *slog.Logger) *Executor {
	return &Executor{db: db, logger: logger.With("component", "query")}
}

// compiled is one fully-built query pair: the page SELECT and the count
// SELECT sharing the same FROM/JOIN/WHERE, so Total always describes the
// same row set the page was cut from.
type compiled struct {
	pageSQL   string
	pageArgs  []any
	countSQL  string
	countArgs []any
}

// Execute runs one listing request: count plus one hydrated page.
func (ex *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	c, err := ex.build(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	res := &Result{}
	if err := ex.db.QueryRowContext(ctx, c.countSQL, c.countArgs...).Scan(&res.Total); err != nil {
		return nil, fmt.Errorf("count %s: %w", req.Type, err)
	}
	if res.Total == 0 {
		return res, nil
	}

	rows, err := ex.db.QueryContext(ctx, c.pageSQL, c.pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", req.Type, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scanInto(req.Type, rows, res); err != nil {
			return nil, fmt.Errorf("scan %s: %w", req.Type, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := ex.hydrate(ctx, req.Type, res); err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", req.Type, err)
	}
	return res, nil
}

// build compiles the request into SQL. Everything user-influenced binds
// as a parameter; identifiers only ever come from the spec registry.
func (ex *Executor) build(req Request) (*compiled, error) {
	spec, ok := specs[req.Type]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", req.Type)
	}

	frags, err := spec.compileFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	var (
		from     strings.Builder
		fromArgs []any
	)
	fmt.Fprintf(&from, "FROM %s e", spec.table)
	fmt.Fprintf(&from, "\nLEFT JOIN ratings rt ON rt.user_id = ? AND rt.entity_type = ? AND rt.entity_id = e.id")
	fromArgs = append(fromArgs, req.UserID, string(req.Type))
	fmt.Fprintf(&from, "\nLEFT JOIN watch_stats ws ON ws.user_id = ? AND ws.entity_type = ? AND ws.entity_id = e.id")
	fromArgs = append(fromArgs, req.UserID, string(req.Type))

	where := []string{"e.deleted_at IS NULL"}
	var whereArgs []any

	if req.ApplyExclusions {
		fmt.Fprintf(&from, "\nLEFT JOIN excluded_entities ex ON ex.user_id = ? AND ex.entity_type = ? AND ex.entity_id = e.id")
		fromArgs = append(fromArgs, req.UserID, string(req.Type))
		where = append(where, "ex.entity_id IS NULL")
	}

	for _, f := range frags {
		where = append(where, f.sql)
		whereArgs = append(whereArgs, f.args...)
	}

	body := from.String() + "\nWHERE " + strings.Join(where, "\n  AND ")
	bodyArgs := append(append([]any{}, fromArgs...), whereArgs...)

	orderBy, orderArgs, err := spec.compileSort(req)
	if err != nil {
		return nil, err
	}

	page, perPage := normalizePage(req.Page, req.PerPage)

	c := &compiled{
		countSQL:  "SELECT COUNT(*) " + body,
		countArgs: bodyArgs,
	}
	c.pageSQL = fmt.Sprintf("SELECT %s %s\nORDER BY %s\nLIMIT ? OFFSET ?", spec.selectCols, body, orderBy)
	c.pageArgs = append(append(append([]any{}, bodyArgs...), orderArgs...), perPage, (page-1)*perPage)
	return c, nil
}

// compileSort resolves the request's sort key against the whitelist and
// appends the primary-key tiebreaker so equal keys still page stably.
func (s *entitySpec) compileSort(req Request) (string, []any, error) {
	dir := "ASC"
	if req.Direction == Desc {
		dir = "DESC"
	}

	if req.Sort == "random" {
		if req.RandomSeed == nil {
			return "RANDOM()", nil, nil
		}
		expr := fmt.Sprintf("abs(((e.rowid + ?) * %d) %% %d) %s, e.id ASC", randomMultiplier, randomModulus, dir)
		return expr, []any{int64(*req.RandomSeed % randomModulus)}, nil
	}

	key := req.Sort
	if key == "" {
		key = "created_at"
		if _, ok := s.sorts[key]; !ok {
			key = "name"
		}
	}
	expr, ok := s.sorts[key]
	if !ok {
		return "", nil, fmt.Errorf("unknown sort %q for %s", req.Sort, s.table)
	}
	return fmt.Sprintf("%s %s, e.id ASC", expr, dir), nil, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage <= 0:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}
	return page, perPage
}
