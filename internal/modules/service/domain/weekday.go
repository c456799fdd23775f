package domain

import (
	"fmt"
	"strings"
	"time"

	"tableside/internal/shared/normalization"
)

// DayOfWeek is an uppercase english weekday name as stored on promotions.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdays = map[time.Weekday]DayOfWeek{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

var allowedDays = map[string]DayOfWeek{
	string(Monday):    Monday,
	string(Tuesday):   Tuesday,
	string(Wednesday): Wednesday,
	string(Thursday):  Thursday,
	string(Friday):    Friday,
	string(Saturday):  Saturday,
	string(Sunday):    Sunday,
	"MON":             Monday,
	"TUE":             Tuesday,
	"WED":             Wednesday,
	"THU":             Thursday,
	"FRI":             Friday,
	"SAT":             Saturday,
	"SUN":             Sunday,
}

// DayOf returns the weekday of t in its own location.
func DayOf(t time.Time) DayOfWeek {
	return weekdays[t.Weekday()]
}

// NormalizeDays converts a stored or submitted list into canonical weekdays, dropping
// unknown entries and duplicates.
func NormalizeDays(value any) []DayOfWeek {
	items := normalization.AsInterfaceSlice(value)
	if len(items) == 0 {
		return nil
	}
	seen := make(map[DayOfWeek]struct{}, len(items))
	normalized := make([]DayOfWeek, 0, len(items))
	for _, item := range items {
		day := normalizeDay(item)
		if day == "" {
			continue
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		normalized = append(normalized, day)
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

// ParseDays validates a manager-submitted weekday list. An empty list means every day.
func ParseDays(raw []string) ([]DayOfWeek, error) {
	for _, entry := range raw {
		if normalizeDay(entry) == "" {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrValidation, entry)
		}
	}
	return NormalizeDays(raw), nil
}

func normalizeDay(value any) DayOfWeek {
	switch typed := value.(type) {
	case string:
		return allowedDays[strings.ToUpper(strings.TrimSpace(typed))]
	case DayOfWeek:
		return allowedDays[strings.ToUpper(strings.TrimSpace(string(typed)))]
	default:
		return ""
	}
}
