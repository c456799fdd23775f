package normalization

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAsInt(t *testing.T) {
	cases := []struct {
		name   string
		input  any
		want   int
		wantOK bool
	}{
		{name: "float", input: 3.0, want: 3, wantOK: true},
		{name: "int64", input: int64(7), want: 7, wantOK: true},
		{name: "json number", input: json.Number("12"), want: 12, wantOK: true},
		{name: "numeric string", input: " 5 ", want: 5, wantOK: true},
		{name: "label string", input: "Table 3", wantOK: false},
		{name: "nil", input: nil, wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := AsInt(tc.input)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("AsInt(%v) = (%d, %v), want (%d, %v)", tc.input, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestAsFloat64AndBool(t *testing.T) {
	if v, ok := AsFloat64("12.5"); !ok || v != 12.5 {
		t.Fatalf("unexpected float: %v %v", v, ok)
	}
	if _, ok := AsFloat64("abc"); ok {
		t.Fatal("expected malformed float to fail")
	}
	if !AsBool("true") || !AsBool(true) || AsBool("nope") || AsBool(1) {
		t.Fatal("unexpected bool coercion")
	}
}

func TestAsTime(t *testing.T) {
	at := time.Date(2026, time.March, 2, 19, 30, 0, 0, time.UTC)
	if got := AsTime(at.Format(time.RFC3339Nano)); !got.Equal(at) {
		t.Fatalf("unexpected time: %s", got)
	}
	if got := AsTime(42); !got.IsZero() {
		t.Fatalf("expected zero time, got %s", got)
	}
}

func TestNormalizeCollection(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"table":         CollectionTables,
		" Requests ":    CollectionRequests,
		"server_calls":  CollectionServerCalls,
		"bill":          CollectionBillRequests,
		"menu-item":     CollectionMenuItems,
		"request_types": CollectionRequestTypes,
		"promos":        CollectionPromotions,
		"reservations":  "",
	}
	for input, expected := range cases {
		if got := NormalizeCollection(input); got != expected {
			t.Fatalf("NormalizeCollection(%q) expected %q got %q", input, expected, got)
		}
	}
}
