package docstore

import (
	"strings"

	"tableside/internal/shared/normalization"
)

// Condition is a single equality predicate on a top-level field.
type Condition struct {
	Field string
	Value any
}

// Filter is a conjunction of equality conditions. The empty filter matches everything.
type Filter []Condition

// Where starts a filter with one equality condition.
func Where(field string, value any) Filter {
	return Filter{{Field: strings.TrimSpace(field), Value: value}}
}

// And returns a copy of the filter with one more condition.
func (f Filter) And(field string, value any) Filter {
	out := make(Filter, 0, len(f)+1)
	out = append(out, f...)
	return append(out, Condition{Field: strings.TrimSpace(field), Value: value})
}

// Matches reports whether every condition holds for data.
func (f Filter) Matches(data map[string]any) bool {
	for _, cond := range f {
		actual, ok := data[cond.Field]
		if !ok {
			return false
		}
		if !valuesEqual(actual, cond.Value) {
			return false
		}
	}
	return true
}

// AsMap renders the filter as a field→value map, used for JSON containment queries.
func (f Filter) AsMap() map[string]any {
	out := make(map[string]any, len(f))
	for _, cond := range f {
		out[cond.Field] = cond.Value
	}
	return out
}

func valuesEqual(a, b any) bool {
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			return af == bf
		}
		return false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	default:
		return false
	}
}

func numeric(v any) (float64, bool) {
	switch v.(type) {
	case string, nil, bool:
		return 0, false
	}
	return normalization.AsFloat64(v)
}
