package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"tableside/internal/modules/service/domain"
	"tableside/internal/platform/docstore"
	"tableside/internal/platform/docstore/memstore"
	"tableside/internal/shared/normalization"
)

func seededStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	if err := store.Write(ctx, docstore.Path{Collection: normalization.CollectionRestaurants, ID: "ABC123"}, map[string]any{"name": "Bistro"}, false); err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	return store
}

func TestSubmitRequestValidatesBeforeWriting(t *testing.T) {
	t.Parallel()
	store := seededStore(t)
	customer := NewCustomer(store)
	ctx := context.Background()

	_, err := customer.SubmitRequest(ctx, "ABC123", 3, domain.SubmitRequestCommand{Items: []domain.RequestItem{{Item: " ", Quantity: 1}}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	docs, _ := store.Query(ctx, normalization.CollectionRequests, nil)
	if len(docs) != 0 {
		t.Fatalf("expected nothing written, got %d", len(docs))
	}

	req, err := customer.SubmitRequest(ctx, "ABC123", 3, domain.SubmitRequestCommand{
		Items:       []domain.RequestItem{{Item: " Water ", Quantity: 2}},
		RequestType: "special",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Items[0].Item != "Water" || !req.Special() {
		t.Fatalf("unexpected request %+v", req)
	}
	list, err := customer.TableRequests(ctx, "ABC123", 3)
	if err != nil || len(list) != 1 || list[0].ID != req.ID {
		t.Fatalf("TableRequests = %+v, %v", list, err)
	}

	if _, err := customer.SubmitRequest(ctx, "NOPE", 1, domain.SubmitRequestCommand{Items: []domain.RequestItem{{Item: "Tea", Quantity: 1}}}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown restaurant, got %v", err)
	}
}

func TestRequestBillReturnsOpenBill(t *testing.T) {
	t.Parallel()
	store := seededStore(t)
	customer := NewCustomer(store)
	ctx := context.Background()

	first, created, err := customer.RequestBill(ctx, "ABC123", 4)
	if err != nil || !created {
		t.Fatalf("first bill: created=%v err=%v", created, err)
	}
	second, created, err := customer.RequestBill(ctx, "ABC123", 4)
	if err != nil || created || second.ID != first.ID {
		t.Fatalf("second bill = %+v created=%v err=%v", second, created, err)
	}
	other, created, err := customer.RequestBill(ctx, "ABC123", 5)
	if err != nil || !created || other.ID == first.ID {
		t.Fatalf("other table bill = %+v created=%v err=%v", other, created, err)
	}

	if err := store.Write(ctx, docstore.Path{Collection: normalization.CollectionBillRequests, ID: first.ID}, map[string]any{domain.FieldResolved: true}, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, created, _ := customer.RequestBill(ctx, "ABC123", 4); !created {
		t.Fatalf("expected a new bill after the old one was resolved")
	}
}

func TestCallServerAlwaysCreates(t *testing.T) {
	t.Parallel()
	store := seededStore(t)
	customer := NewCustomer(store)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := customer.CallServer(ctx, "ABC123", 2); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	docs, _ := store.Query(ctx, normalization.CollectionServerCalls, docstore.Where(domain.FieldRestaurantID, "ABC123"))
	if len(docs) != 3 {
		t.Fatalf("expected 3 server calls, got %d", len(docs))
	}
}

func TestMenuShowsAvailableItemsAndActivePromotions(t *testing.T) {
	t.Parallel()
	store := seededStore(t)
	settings := NewSettings(store)
	customer := NewCustomer(store)
	customer.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	hidden := false
	if _, err := settings.AddMenuItem(ctx, "ABC123", domain.AddMenuItemCommand{Name: "Soup", Price: "$4.50"}); err != nil {
		t.Fatalf("add soup: %v", err)
	}
	if _, err := settings.AddMenuItem(ctx, "ABC123", domain.AddMenuItemCommand{Name: "Stew", Price: 9, Available: &hidden}); err != nil {
		t.Fatalf("add stew: %v", err)
	}
	if _, err := settings.AddRequestType(ctx, "ABC123", domain.AddRequestTypeCommand{Label: "Extra napkins"}); err != nil {
		t.Fatalf("add request type: %v", err)
	}
	if _, err := settings.AddPromotion(ctx, "ABC123", domain.AddPromotionCommand{Title: "Happy hour"}); err != nil {
		t.Fatalf("add promotion: %v", err)
	}
	if _, err := settings.AddPromotion(ctx, "ABC123", domain.AddPromotionCommand{
		Title:    "Winter",
		StartsAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("add expired promotion: %v", err)
	}

	menu, err := customer.Menu(ctx, "ABC123")
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	if menu.Restaurant.Name != "Bistro" {
		t.Fatalf("restaurant = %+v", menu.Restaurant)
	}
	if len(menu.Items) != 1 || menu.Items[0].Name != "Soup" || menu.Items[0].Price != 4.5 {
		t.Fatalf("items = %+v", menu.Items)
	}
	if len(menu.RequestTypes) != 1 {
		t.Fatalf("request types = %+v", menu.RequestTypes)
	}
	if len(menu.Promotions) != 1 || menu.Promotions[0].Title != "Happy hour" {
		t.Fatalf("promotions = %+v", menu.Promotions)
	}
}

func TestSettingsValidation(t *testing.T) {
	t.Parallel()
	store := seededStore(t)
	settings := NewSettings(store)
	ctx := context.Background()

	cases := []struct {
		name string
		run  func() error
	}{
		{name: "blank restaurant name", run: func() error {
			_, _, err := settings.SaveRestaurant(ctx, "ABC123", "m1", domain.UpdateRestaurantCommand{Name: "  "})
			return err
		}},
		{name: "malformed price", run: func() error {
			_, err := settings.AddMenuItem(ctx, "ABC123", domain.AddMenuItemCommand{Name: "Tea", Price: "abc"})
			return err
		}},
		{name: "zero price", run: func() error {
			_, err := settings.AddMenuItem(ctx, "ABC123", domain.AddMenuItemCommand{Name: "Tea", Price: 0})
			return err
		}},
		{name: "blank label", run: func() error {
			_, err := settings.AddRequestType(ctx, "ABC123", domain.AddRequestTypeCommand{})
			return err
		}},
		{name: "promotion ends first", run: func() error {
			now := time.Now()
			_, err := settings.AddPromotion(ctx, "ABC123", domain.AddPromotionCommand{Title: "x", StartsAt: now, EndsAt: now.Add(-time.Hour)})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDeleteOwnedRecordsOnly(t *testing.T) {
	t.Parallel()
	store := seededStore(t)
	ctx := context.Background()
	if err := store.Write(ctx, docstore.Path{Collection: normalization.CollectionRestaurants, ID: "XYZ"}, map[string]any{"name": "Other"}, false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	settings := NewSettings(store)
	item, err := settings.AddMenuItem(ctx, "XYZ", domain.AddMenuItemCommand{Name: "Tea", Price: "2"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := settings.DeleteMenuItem(ctx, "ABC123", item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-restaurant delete: %v", err)
	}
	if err := settings.DeleteMenuItem(ctx, "XYZ", item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := settings.DeleteMenuItem(ctx, "XYZ", item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}

	updated, created, err := settings.SaveRestaurant(ctx, "XYZ", "m2", domain.UpdateRestaurantCommand{Name: "Renamed", MenuLink: "https://example.com/menu"})
	if err != nil || created || updated.Name != "Renamed" {
		t.Fatalf("update = %+v created=%v err=%v", updated, created, err)
	}
	doc, _ := store.Get(ctx, docstore.Path{Collection: normalization.CollectionRestaurants, ID: "XYZ"})
	if doc.Data["menuLink"] != "https://example.com/menu" {
		t.Fatalf("stored restaurant = %+v", doc.Data)
	}
}

func TestSaveRestaurantCreatesOnFreshStore(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	settings := NewSettings(store)
	customer := NewCustomer(store)
	ctx := context.Background()

	if _, err := customer.CallServer(ctx, "ABC123", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("call before creation: %v", err)
	}

	restaurant, created, err := settings.SaveRestaurant(ctx, "ABC123", "manager-1", domain.UpdateRestaurantCommand{Name: "Bistro"})
	if err != nil || !created {
		t.Fatalf("create = %+v created=%v err=%v", restaurant, created, err)
	}
	doc, err := store.Get(ctx, docstore.Path{Collection: normalization.CollectionRestaurants, ID: "ABC123"})
	if err != nil {
		t.Fatalf("stored restaurant: %v", err)
	}
	stored, err := domain.ParseRestaurant(doc.Path.ID, doc.Data)
	if err != nil || stored.Name != "Bistro" || len(stored.ManagerIDs) != 1 || stored.ManagerIDs[0] != "manager-1" {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	if _, err := customer.CallServer(ctx, "ABC123", 1); err != nil {
		t.Fatalf("call after creation: %v", err)
	}
	if _, _, err := customer.RequestBill(ctx, "ABC123", 1); err != nil {
		t.Fatalf("bill after creation: %v", err)
	}

	again, created, err := settings.SaveRestaurant(ctx, "ABC123", "manager-2", domain.UpdateRestaurantCommand{Name: "Bistro Deux"})
	if err != nil || created {
		t.Fatalf("second save created=%v err=%v", created, err)
	}
	if len(again.ManagerIDs) != 2 || again.ManagerIDs[0] != "manager-1" {
		t.Fatalf("managers = %v", again.ManagerIDs)
	}
}
