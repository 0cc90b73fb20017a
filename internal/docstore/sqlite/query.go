package sqlite

import (
	"fmt"
	"strings"

	"github.com/dvloznov/lifeledger/internal/docstore"
)

var numberTypes = []string{"integer", "real"}

// buildSelect compiles a normalised query. Field names were checked by
// docstore.ValidateQuery, so paths are safe to inline in ORDER BY.
func buildSelect(q docstore.Query) (string, []any, error) {
	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString(`SELECT id, data, create_time, update_time FROM documents WHERE collection = ?`)

	for _, f := range q.Filters {
		cond, condArgs, err := filterSQL(f)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(cond)
		args = append(args, condArgs...)
	}

	sb.WriteString(" ORDER BY ")
	for _, o := range q.OrderBy {
		sb.WriteString("json_extract(data, '")
		sb.WriteString(jsonPath(o.Field))
		sb.WriteString("')")
		if o.Desc {
			sb.WriteString(" DESC")
		}
		sb.WriteString(", ")
	}
	sb.WriteString("id ASC")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return sb.String(), args, nil
}

func jsonPath(field string) string {
	return "$." + field
}

// filterSQL mirrors docstore.Matches: a missing field never matches and
// range operators only match values of the same JSON kind.
func filterSQL(f docstore.Filter) (string, []any, error) {
	path := jsonPath(f.Field)
	typ := "json_type(data, ?)"

	switch v := f.Value.(type) {
	case nil:
		switch f.Op {
		case docstore.Eq, docstore.Lte, docstore.Gte:
			return typ + " = 'null'", []any{path}, nil
		case docstore.Ne:
			return "(" + typ + " IS NOT NULL AND " + typ + " != 'null')", []any{path, path}, nil
		default:
			return "0", nil, nil
		}

	case bool:
		var allowed []string
		for _, candidate := range []bool{false, true} {
			if holds(f.Op, docstore.Compare(candidate, v)) {
				allowed = append(allowed, fmt.Sprint(candidate))
			}
		}
		if f.Op == docstore.Ne {
			return "(" + typ + " IS NOT NULL AND " + typ + " != ?)", []any{path, path, fmt.Sprint(v)}, nil
		}
		if len(allowed) == 0 {
			return "0", nil, nil
		}
		return typ + " IN (" + placeholders(len(allowed)) + ")", append([]any{path}, toAny(allowed)...), nil

	case float64:
		return scalarSQL(f.Op, path, numberTypes, v)

	case string:
		return scalarSQL(f.Op, path, []string{"text"}, v)
	}
	return "", nil, fmt.Errorf("docstore: unsupported filter value %T on %q", f.Value, f.Field)
}

func scalarSQL(op docstore.Op, path string, kinds []string, value any) (string, []any, error) {
	kindCond := "json_type(data, ?) IN (" + placeholders(len(kinds)) + ")"
	kindArgs := append([]any{path}, toAny(kinds)...)

	if op == docstore.Ne {
		cond := "(json_type(data, ?) IS NOT NULL AND NOT (" + kindCond + " AND json_extract(data, ?) = ?))"
		args := append([]any{path}, kindArgs...)
		return cond, append(args, path, value), nil
	}
	cond := "(" + kindCond + " AND json_extract(data, ?) " + string(op) + " ?)"
	if op == docstore.Eq {
		cond = "(" + kindCond + " AND json_extract(data, ?) = ?)"
	}
	return cond, append(kindArgs, path, value), nil
}

func holds(op docstore.Op, c int) bool {
	switch op {
	case docstore.Eq:
		return c == 0
	case docstore.Lt:
		return c < 0
	case docstore.Lte:
		return c <= 0
	case docstore.Gt:
		return c > 0
	case docstore.Gte:
		return c >= 0
	}
	return false
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
