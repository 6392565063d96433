package query

import (
	"fmt"
	"strings"
)

// fragment is one independent piece of WHERE clause plus its bound
// parameters. Fragments are ANDed together by the builder.
type fragment struct {
	sql  string
	args []any
}

// Annotation expressions shared across entity specs. The rt/ws aliases
// come from the LEFT JOINs the builder always adds.
const (
	exprRating       = "COALESCE(rt.rating100, 0)"
	exprFavorite     = "COALESCE(rt.favorite, 0)"
	exprPlayCount    = "COALESCE(ws.view_count, 0)"
	exprPlayDuration = "COALESCE(ws.play_duration_sec, 0)"
)

// relationSpec describes how a named relation filter reaches its junction
// table (or, for to-one relations like a scene's studio, its FK column).
type relationSpec struct {
	junction string // junction table; empty for column relations
	ownerCol string
	relCol   string
	column   string // FK column on the base table for to-one relations
}

// entitySpec is the closed filter/sort vocabulary for one entity type.
type entitySpec struct {
	table       string
	selectCols  string
	textColumns []string
	numeric     map[string]string
	relations   map[string]relationSpec
	sorts       map[string]string
}

// compileNumeric turns one numeric filter into a fragment.
func (s *entitySpec) compileNumeric(f NumericFilter) (fragment, error) {
	expr, ok := s.numeric[f.Field]
	if !ok {
		return fragment{}, fmt.Errorf("unknown numeric field %q for %s", f.Field, s.table)
	}
	switch f.Modifier {
	case ModEquals:
		return fragment{sql: expr + " = ?", args: []any{f.Value}}, nil
	case ModNotEquals:
		return fragment{sql: expr + " != ?", args: []any{f.Value}}, nil
	case ModGreaterThan:
		return fragment{sql: expr + " > ?", args: []any{f.Value}}, nil
	case ModLessThan:
		return fragment{sql: expr + " < ?", args: []any{f.Value}}, nil
	case ModBetween:
		return fragment{sql: "(" + expr + " BETWEEN ? AND ?)", args: []any{f.Value, f.Value2}}, nil
	}
	return fragment{}, fmt.Errorf("unknown numeric modifier %q", f.Modifier)
}

// compileRelation turns one relation-membership filter into a correlated
// subquery fragment. An empty ID list compiles to nothing.
func (s *entitySpec) compileRelation(f RelationFilter) (fragment, bool, error) {
	rel, ok := s.relations[f.Relation]
	if !ok {
		return fragment{}, false, fmt.Errorf("unknown relation %q for %s", f.Relation, s.table)
	}
	if len(f.IDs) == 0 {
		return fragment{}, false, nil
	}

	in := placeholders(len(f.IDs))
	args := stringArgs(f.IDs)

	if rel.column != "" {
		switch f.Modifier {
		case ModIncludes:
			return fragment{sql: fmt.Sprintf("e.%s IN (%s)", rel.column, in), args: args}, true, nil
		case ModExcludes:
			return fragment{
				sql:  fmt.Sprintf("(e.%s IS NULL OR e.%s NOT IN (%s))", rel.column, rel.column, in),
				args: args,
			}, true, nil
		case ModIncludesAll:
			return fragment{}, false, fmt.Errorf("includes_all is not supported for to-one relation %q", f.Relation)
		}
		return fragment{}, false, fmt.Errorf("unknown relation modifier %q", f.Modifier)
	}

	sub := fmt.Sprintf("SELECT 1 FROM %s j WHERE j.%s = e.id AND j.%s IN (%s)",
		rel.junction, rel.ownerCol, rel.relCol, in)

	switch f.Modifier {
	case ModIncludes:
		return fragment{sql: "EXISTS (" + sub + ")", args: args}, true, nil
	case ModExcludes:
		return fragment{sql: "NOT EXISTS (" + sub + ")", args: args}, true, nil
	case ModIncludesAll:
		count := fmt.Sprintf("(SELECT COUNT(DISTINCT j.%s) FROM %s j WHERE j.%s = e.id AND j.%s IN (%s)) = ?",
			rel.relCol, rel.junction, rel.ownerCol, rel.relCol, in)
		return fragment{sql: count, args: append(args, len(f.IDs))}, true, nil
	}
	return fragment{}, false, fmt.Errorf("unknown relation modifier %q", f.Modifier)
}

// compileText matches a free-text query across the type's fixed text
// columns, case-insensitively. Blank input compiles to nothing.
func (s *entitySpec) compileText(q string) (fragment, bool) {
	q = strings.TrimSpace(q)
	if q == "" {
		return fragment{}, false
	}
	pattern := "%" + strings.ToLower(q) + "%"

	parts := make([]string, len(s.textColumns))
	args := make([]any, len(s.textColumns))
	for i, col := range s.textColumns {
		parts[i] = fmt.Sprintf("LOWER(COALESCE(e.%s, '')) LIKE ?", col)
		args[i] = pattern
	}
	return fragment{sql: "(" + strings.Join(parts, " OR ") + ")", args: args}, true
}

// compileIDs turns the explicit allow/deny lists into fragments.
func compileIDs(f *IDFilter) []fragment {
	if f == nil {
		return nil
	}
	var out []fragment
	if len(f.Include) > 0 {
		out = append(out, fragment{
			sql:  fmt.Sprintf("e.id IN (%s)", placeholders(len(f.Include))),
			args: stringArgs(f.Include),
		})
	}
	if len(f.Exclude) > 0 {
		out = append(out, fragment{
			sql:  fmt.Sprintf("e.id NOT IN (%s)", placeholders(len(f.Exclude))),
			args: stringArgs(f.Exclude),
		})
	}
	return out
}

// compileFilters builds all fragments for a request's filter set.
func (s *entitySpec) compileFilters(f Filters) ([]fragment, error) {
	var out []fragment
	for _, nf := range f.Numeric {
		frag, err := s.compileNumeric(nf)
		if err != nil {
			return nil, err
		}
		out = append(out, frag)
	}
	for _, rf := range f.Relations {
		frag, ok, err := s.compileRelation(rf)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, frag)
		}
	}
	if frag, ok := s.compileText(f.Text); ok {
		out = append(out, frag)
	}
	out = append(out, compileIDs(f.IDs)...)
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
