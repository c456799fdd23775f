package pgstore

import (
	"testing"

	"tableside/internal/platform/docstore"
)

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/app":   "pgx5://u:p@db:5432/app",
		"postgresql://u:p@db:5432/app": "pgx5://u:p@db:5432/app",
		" pgx5://db/app ":              "pgx5://db/app",
	}
	for input, expected := range cases {
		if got := migrateURL(input); got != expected {
			t.Fatalf("migrateURL(%q) expected %q got %q", input, expected, got)
		}
	}
}

func TestEncodeFilter(t *testing.T) {
	got, err := encodeFilter(docstore.Where("restaurantId", "ABC123").And("resolved", false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"resolved":false,"restaurantId":"ABC123"}` {
		t.Fatalf("unexpected filter json: %s", got)
	}

	empty, err := encodeFilter(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty != "{}" {
		t.Fatalf("expected empty containment object, got %s", empty)
	}
}

func TestDecodeData(t *testing.T) {
	data, err := decodeData([]byte(`{"tableNumber":3,"resolved":false}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data["tableNumber"] != float64(3) || data["resolved"] != false {
		t.Fatalf("unexpected data: %v", data)
	}
	if _, err := decodeData([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSubscriptionPokeCoalesces(t *testing.T) {
	sub := &subscription{signal: make(chan struct{}, 1)}
	sub.poke()
	sub.poke()
	sub.poke()
	if len(sub.signal) != 1 {
		t.Fatalf("expected a single pending signal, got %d", len(sub.signal))
	}
}
