package docstore

import (
	"fmt"
	"sort"
	"strings"
)

// Compare orders two decoded JSON values. Values of different kinds order
// null < bool < number < string < other.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		return strings.Compare(av, b.(string))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// Matches reports whether data satisfies every filter. Filter values must
// already be normalised. A document missing a filtered field never matches,
// and range filters only match values of the same kind.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		if f.Op != Eq && f.Op != Ne && rank(v) != rank(f.Value) {
			return false
		}
		c := Compare(v, f.Value)
		var pass bool
		switch f.Op {
		case Eq:
			pass = c == 0 && rank(v) == rank(f.Value)
		case Ne:
			pass = c != 0 || rank(v) != rank(f.Value)
		case Lt:
			pass = c < 0
		case Lte:
			pass = c <= 0
		case Gt:
			pass = c > 0
		case Gte:
			pass = c >= 0
		}
		if !pass {
			return false
		}
	}
	return true
}

// SortDocuments orders docs by the given keys, then by id.
func SortDocuments(docs []*Document, orders []Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			c := Compare(docs[i].Data[o.Field], docs[j].Data[o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return docs[i].ID < docs[j].ID
	})
}

// Apply filters, sorts and limits docs in memory. Filter values in q must be
// normalised.
func Apply(docs []*Document, q Query) []*Document {
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if Matches(d.Data, q.Filters) {
			out = append(out, d)
		}
	}
	SortDocuments(out, q.OrderBy)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// NormalizeQuery returns a copy of q with filter values normalised.
func NormalizeQuery(q Query) (Query, error) {
	out := q
	out.Filters = make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := Normalize(f.Value)
		if err != nil {
			return Query{}, err
		}
		switch v.(type) {
		case map[string]any, []any:
			return Query{}, fmt.Errorf("docstore: filter on %q must compare a scalar", f.Field)
		}
		out.Filters[i] = Filter{Field: f.Field, Op: f.Op, Value: v}
	}
	return out, nil
}
