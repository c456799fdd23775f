package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeDays(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []DayOfWeek
	}{
		{
			name:     "mixed casing and spacing",
			input:    []any{"monday", "  Tue", "SATURDAY"},
			expected: []DayOfWeek{Monday, Tuesday, Saturday},
		},
		{
			name:     "duplicates collapsed",
			input:    []string{"fri", "Friday"},
			expected: []DayOfWeek{Friday},
		},
		{
			name:     "invalid entries filtered",
			input:    []any{"", "holiday", 123, nil},
			expected: nil,
		},
		{
			name:     "non slice input returns nil",
			input:    "monday",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := NormalizeDays(test.input)
			if len(result) != len(test.expected) {
				t.Fatalf("expected %d items, got %d", len(test.expected), len(result))
			}
			for i := range result {
				if result[i] != test.expected[i] {
					t.Fatalf("expected %v at position %d, got %v", test.expected[i], i, result[i])
				}
			}
		})
	}
}

func TestParseDaysRejectsUnknown(t *testing.T) {
	if _, err := ParseDays([]string{"monday", "someday"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	days, err := ParseDays(nil)
	if err != nil || days != nil {
		t.Fatalf("ParseDays(nil) = %v, %v", days, err)
	}
}

func TestPromotionRunsOnScheduledDays(t *testing.T) {
	wednesday := time.Date(2026, time.June, 10, 18, 0, 0, 0, time.UTC)
	promo := Promotion{Active: true, Days: []DayOfWeek{Wednesday, Friday}}
	if !promo.ActiveAt(wednesday) {
		t.Fatal("expected promotion on wednesday")
	}
	if promo.ActiveAt(wednesday.AddDate(0, 0, 1)) {
		t.Fatal("promotion should not run on thursday")
	}

	promo.RestaurantID = "ABC123"
	promo.Title = "Happy hour"
	parsed, err := ParsePromotion("p1", promo.Fields())
	if err != nil {
		t.Fatalf("ParsePromotion: %v", err)
	}
	if len(parsed.Days) != 2 || parsed.Days[1] != Friday {
		t.Fatalf("days = %v", parsed.Days)
	}
}
