package normalization

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// AsString trims and returns the string representation of value when possible.
func AsString(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// AsInt coerces numeric values stored in documents into Go ints. ok is false when
// the value is missing or not numeric.
func AsInt(value any) (int, bool) {
	switch typed := value.(type) {
	case float64:
		return int(typed), true
	case float32:
		return int(typed), true
	case int:
		return typed, true
	case int32:
		return int(typed), true
	case int64:
		return int(typed), true
	case json.Number:
		v, err := typed.Int64()
		if err != nil {
			f, ferr := typed.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(v), true
	case string:
		trimmed := strings.TrimSpace(typed)
		if v, err := strconv.Atoi(trimmed); err == nil {
			return v, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// AsFloat64 coerces numeric values (including numeric strings) into float64.
func AsFloat64(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		if trimmed := strings.TrimSpace(typed); trimmed != "" {
			if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

// AsBool accepts booleans and the usual textual spellings.
func AsBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		v, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && v
	default:
		return false
	}
}

// AsTime reads RFC3339 strings or time values. The zero time is returned otherwise.
func AsTime(value any) time.Time {
	switch typed := value.(type) {
	case time.Time:
		return typed.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(typed)); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// AsStringSlice trims each entry from an arbitrary slice preserving non-empty values.
func AsStringSlice(value any) []string {
	var out []string
	switch typed := value.(type) {
	case []string:
		for _, s := range typed {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	case []any:
		for _, entry := range typed {
			if s := AsString(entry); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// AsInterfaceSlice normalizes different collection types into a []any.
func AsInterfaceSlice(value any) []any {
	switch typed := value.(type) {
	case []any:
		return typed
	case []string:
		items := make([]any, 0, len(typed))
		for _, entry := range typed {
			items = append(items, entry)
		}
		return items
	case []map[string]any:
		items := make([]any, 0, len(typed))
		for _, entry := range typed {
			items = append(items, entry)
		}
		return items
	default:
		return nil
	}
}
