package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tableside/internal/shared/normalization"
)

var tableLabelPattern = regexp.MustCompile(`(?i)^\s*(?:table\s*#?\s*)?(\d+)\s*$`)

// ParseTableNumber converts every table reference spelling seen in stored documents
// ("Table 3", "3", 3, 3.0) into the canonical positive table number.
func ParseTableNumber(value any) (int, error) {
	switch typed := value.(type) {
	case string:
		m := tableLabelPattern.FindStringSubmatch(typed)
		if m == nil {
			return 0, fmt.Errorf("%w: table reference %q", ErrMalformedRecord, typed)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: table reference %q", ErrMalformedRecord, typed)
		}
		return n, nil
	default:
		f, ok := normalization.AsFloat64(value)
		if !ok || f <= 0 || f != float64(int(f)) {
			return 0, fmt.Errorf("%w: table reference %v", ErrMalformedRecord, value)
		}
		return int(f), nil
	}
}

// TableKey is the map key used for per-table view state.
func TableKey(number int) string {
	return strconv.Itoa(number)
}

// TableLabel renders the customer-facing label.
func TableLabel(number int) string {
	return "Table " + strconv.Itoa(number)
}

// TableDocID is the restaurant-scoped identifier of a table record.
func TableDocID(restaurantID string, number int) string {
	return strings.TrimSpace(restaurantID) + "_table_" + strconv.Itoa(number)
}
