package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tableside/internal/modules/service/domain"
	"tableside/internal/platform/docstore"
	"tableside/internal/shared/normalization"
)

// Customer runs the actions offered on the per-table customer page.
type Customer struct {
	store docstore.Store
	now   func() time.Time
	newID func() string

	billMu sync.Mutex
}

func NewCustomer(store docstore.Store) *Customer {
	return &Customer{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Menu is everything the customer page shows for a restaurant.
type Menu struct {
	Restaurant   domain.Restaurant        `json:"restaurant"`
	Items        []domain.MenuItem        `json:"items"`
	RequestTypes []domain.RequestTemplate `json:"requestTypes"`
	Promotions   []domain.Promotion       `json:"promotions"`
}

func (c *Customer) SubmitRequest(ctx context.Context, restaurantID string, table int, cmd domain.SubmitRequestCommand) (domain.ServiceRequest, error) {
	items, err := domain.ValidateItems(cmd.Items)
	if err != nil {
		return domain.ServiceRequest{}, err
	}
	if err := c.requireRestaurant(ctx, restaurantID); err != nil {
		return domain.ServiceRequest{}, err
	}
	req := domain.ServiceRequest{
		ID:           c.newID(),
		RestaurantID: restaurantID,
		TableNumber:  table,
		Items:        items,
		Type:         domain.ParseRequestType(cmd.RequestType),
		CreatedAt:    c.now(),
	}
	if err := c.store.Write(ctx, requestPath(normalization.CollectionRequests, req.ID), req.Fields(), false); err != nil {
		return domain.ServiceRequest{}, fmt.Errorf("submit request: %w", err)
	}
	slog.Info("service request submitted", slog.String("restaurantId", restaurantID), slog.Int("tableNumber", table), slog.String("requestId", req.ID))
	return req, nil
}

// CallServer always records a new call; the number of open calls drives urgency.
func (c *Customer) CallServer(ctx context.Context, restaurantID string, table int) (domain.ServerCallRequest, error) {
	if err := c.requireRestaurant(ctx, restaurantID); err != nil {
		return domain.ServerCallRequest{}, err
	}
	call := domain.ServerCallRequest{ID: c.newID(), RestaurantID: restaurantID, TableNumber: table, CreatedAt: c.now()}
	if err := c.store.Write(ctx, requestPath(normalization.CollectionServerCalls, call.ID), call.Fields(), false); err != nil {
		return domain.ServerCallRequest{}, fmt.Errorf("call server: %w", err)
	}
	return call, nil
}

// RequestBill returns the table's open bill request when there is one, creating it otherwise.
// The boolean reports whether a new record was written.
func (c *Customer) RequestBill(ctx context.Context, restaurantID string, table int) (domain.BillRequest, bool, error) {
	if err := c.requireRestaurant(ctx, restaurantID); err != nil {
		return domain.BillRequest{}, false, err
	}

	c.billMu.Lock()
	defer c.billMu.Unlock()

	docs, err := c.store.Query(ctx, normalization.CollectionBillRequests, docstore.Where(domain.FieldRestaurantID, restaurantID).And(domain.FieldResolved, false))
	if err != nil {
		return domain.BillRequest{}, false, fmt.Errorf("request bill: %w", err)
	}
	for _, doc := range docs {
		bill, err := domain.ParseBillRequest(doc.Path.ID, doc.Data)
		if err != nil {
			slog.Warn("skipping malformed bill request", slog.String("id", doc.Path.ID), slog.Any("error", err))
			continue
		}
		if bill.TableNumber == table {
			return bill, false, nil
		}
	}

	bill := domain.BillRequest{ID: c.newID(), RestaurantID: restaurantID, TableNumber: table, CreatedAt: c.now()}
	if err := c.store.Write(ctx, requestPath(normalization.CollectionBillRequests, bill.ID), bill.Fields(), false); err != nil {
		return domain.BillRequest{}, false, fmt.Errorf("request bill: %w", err)
	}
	return bill, true, nil
}

// TableRequests lists the table's item requests, oldest first, so the customer can see notifications.
func (c *Customer) TableRequests(ctx context.Context, restaurantID string, table int) ([]domain.ServiceRequest, error) {
	docs, err := c.store.Query(ctx, normalization.CollectionRequests, docstore.Where(domain.FieldRestaurantID, restaurantID))
	if err != nil {
		return nil, fmt.Errorf("table requests: %w", err)
	}
	out := make([]domain.ServiceRequest, 0, len(docs))
	for _, doc := range docs {
		req, err := domain.ParseServiceRequest(doc.Path.ID, doc.Data)
		if err != nil {
			slog.Warn("skipping malformed request", slog.String("id", doc.Path.ID), slog.Any("error", err))
			continue
		}
		if req.TableNumber == table {
			out = append(out, req)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *Customer) Menu(ctx context.Context, restaurantID string) (Menu, error) {
	restaurant, err := loadRestaurant(ctx, c.store, restaurantID)
	if err != nil {
		return Menu{}, err
	}
	menu := Menu{
		Restaurant: restaurant,
		Items:      []domain.MenuItem{},
		Promotions: []domain.Promotion{},
	}
	byRestaurant := docstore.Where(domain.FieldRestaurantID, restaurantID)

	items, err := queryParsed(ctx, c.store, normalization.CollectionMenuItems, byRestaurant, domain.ParseMenuItem)
	if err != nil {
		return Menu{}, err
	}
	for _, item := range items {
		if item.Available {
			menu.Items = append(menu.Items, item)
		}
	}
	sort.SliceStable(menu.Items, func(i, j int) bool {
		if menu.Items[i].Category != menu.Items[j].Category {
			return menu.Items[i].Category < menu.Items[j].Category
		}
		return menu.Items[i].Name < menu.Items[j].Name
	})

	if menu.RequestTypes, err = queryParsed(ctx, c.store, normalization.CollectionRequestTypes, byRestaurant, domain.ParseRequestTemplate); err != nil {
		return Menu{}, err
	}
	sort.SliceStable(menu.RequestTypes, func(i, j int) bool { return menu.RequestTypes[i].Label < menu.RequestTypes[j].Label })

	promotions, err := queryParsed(ctx, c.store, normalization.CollectionPromotions, byRestaurant, domain.ParsePromotion)
	if err != nil {
		return Menu{}, err
	}
	now := c.now()
	for _, promo := range promotions {
		if promo.ActiveAt(now) {
			menu.Promotions = append(menu.Promotions, promo)
		}
	}
	return menu, nil
}

func (c *Customer) requireRestaurant(ctx context.Context, restaurantID string) error {
	_, err := loadRestaurant(ctx, c.store, restaurantID)
	return err
}

func loadRestaurant(ctx context.Context, store docstore.Store, restaurantID string) (domain.Restaurant, error) {
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" {
		return domain.Restaurant{}, fmt.Errorf("%w: restaurant id is required", domain.ErrValidation)
	}
	doc, err := store.Get(ctx, docstore.Path{Collection: normalization.CollectionRestaurants, ID: restaurantID})
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.Restaurant{}, fmt.Errorf("%w: restaurant %s", domain.ErrNotFound, restaurantID)
	}
	if err != nil {
		return domain.Restaurant{}, fmt.Errorf("load restaurant: %w", err)
	}
	return domain.ParseRestaurant(doc.Path.ID, doc.Data)
}

// queryParsed loads a collection and drops documents the parser rejects.
func queryParsed[T any](ctx context.Context, store docstore.Store, collection string, filter docstore.Filter, parse func(string, map[string]any) (T, error)) ([]T, error) {
	docs, err := store.Query(ctx, collection, filter)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := parse(doc.Path.ID, doc.Data)
		if err != nil {
			slog.Warn("skipping malformed record", slog.String("collection", collection), slog.String("id", doc.Path.ID), slog.Any("error", err))
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func requestPath(collection, id string) docstore.Path {
	return docstore.Path{Collection: collection, ID: id}
}
