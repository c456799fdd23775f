package domain

import (
	"fmt"
	"strings"
	"time"

	"tableside/internal/shared/normalization"
)

// tableReferenceKeys lists the fields legacy documents used for the table reference.
var tableReferenceKeys = []string{FieldTableNumber, "tableId", "table"}

// TableNumberOf reads the table reference of a raw record under any legacy field name.
func TableNumberOf(raw map[string]any) (int, error) {
	for _, key := range tableReferenceKeys {
		if value, ok := raw[key]; ok && value != nil {
			return ParseTableNumber(value)
		}
	}
	return 0, fmt.Errorf("%w: missing table reference", ErrMalformedRecord)
}

func requireRestaurant(id string, raw map[string]any) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	restaurantID := normalization.AsString(raw[FieldRestaurantID])
	if restaurantID == "" {
		return "", fmt.Errorf("%w: %s missing restaurantId", ErrMalformedRecord, id)
	}
	return restaurantID, nil
}

func ParseRestaurant(id string, raw map[string]any) (Restaurant, error) {
	if strings.TrimSpace(id) == "" {
		return Restaurant{}, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	return Restaurant{
		ID:         id,
		Name:       normalization.AsString(raw["name"]),
		MenuLink:   normalization.AsString(raw["menuLink"]),
		ManagerIDs: normalization.AsStringSlice(raw["managerIds"]),
	}, nil
}

func ParseTable(id string, raw map[string]any) (Table, error) {
	restaurantID, err := requireRestaurant(id, raw)
	if err != nil {
		return Table{}, err
	}
	number, err := TableNumberOf(raw)
	if err != nil {
		return Table{}, fmt.Errorf("table %s: %w", id, err)
	}
	x, _ := normalization.AsFloat64(raw["x"])
	y, _ := normalization.AsFloat64(raw["y"])
	return Table{ID: id, RestaurantID: restaurantID, Number: number, Position: Position{X: x, Y: y}}, nil
}

func ParseServiceRequest(id string, raw map[string]any) (ServiceRequest, error) {
	restaurantID, err := requireRestaurant(id, raw)
	if err != nil {
		return ServiceRequest{}, err
	}
	number, err := TableNumberOf(raw)
	if err != nil {
		return ServiceRequest{}, fmt.Errorf("request %s: %w", id, err)
	}
	items := parseItems(raw["items"])
	if len(items) == 0 {
		return ServiceRequest{}, fmt.Errorf("%w: request %s has no items", ErrMalformedRecord, id)
	}
	return ServiceRequest{
		ID:           id,
		RestaurantID: restaurantID,
		TableNumber:  number,
		Items:        items,
		Resolved:     normalization.AsBool(raw[FieldResolved]),
		Type:         ParseRequestType(raw["requestType"]),
		Notification: normalization.AsString(raw[FieldNotification]),
		CreatedAt:    normalization.AsTime(raw[FieldCreatedAt]),
	}, nil
}

// ParseRequestType defaults anything unrecognised to regular.
func ParseRequestType(value any) RequestType {
	if strings.EqualFold(normalization.AsString(value), string(RequestTypeSpecial)) {
		return RequestTypeSpecial
	}
	return RequestTypeRegular
}

func parseItems(value any) []RequestItem {
	rawItems := normalization.AsInterfaceSlice(value)
	items := make([]RequestItem, 0, len(rawItems))
	for _, entry := range rawItems {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name := normalization.AsString(m["item"])
		qty, ok := normalization.AsInt(m["quantity"])
		if name == "" || !ok || qty < 1 {
			continue
		}
		items = append(items, RequestItem{Item: name, Quantity: qty})
	}
	return items
}

func ParseServerCall(id string, raw map[string]any) (ServerCallRequest, error) {
	restaurantID, err := requireRestaurant(id, raw)
	if err != nil {
		return ServerCallRequest{}, err
	}
	number, err := TableNumberOf(raw)
	if err != nil {
		return ServerCallRequest{}, fmt.Errorf("server call %s: %w", id, err)
	}
	return ServerCallRequest{
		ID:           id,
		RestaurantID: restaurantID,
		TableNumber:  number,
		Resolved:     normalization.AsBool(raw[FieldResolved]),
		CreatedAt:    normalization.AsTime(raw[FieldCreatedAt]),
	}, nil
}

func ParseBillRequest(id string, raw map[string]any) (BillRequest, error) {
	restaurantID, err := requireRestaurant(id, raw)
	if err != nil {
		return BillRequest{}, err
	}
	number, err := TableNumberOf(raw)
	if err != nil {
		return BillRequest{}, fmt.Errorf("bill request %s: %w", id, err)
	}
	return BillRequest{
		ID:           id,
		RestaurantID: restaurantID,
		TableNumber:  number,
		Resolved:     normalization.AsBool(raw[FieldResolved]),
		CreatedAt:    normalization.AsTime(raw[FieldCreatedAt]),
	}, nil
}

func ParseMenuItem(id string, raw map[string]any) (MenuItem, error) {
	restaurantID, err := requireRestaurant(id, raw)
	if err != nil {
		return MenuItem{}, err
	}
	name := normalization.AsString(raw["name"])
	price, ok := normalization.AsFloat64(raw["price"])
	if name == "" || !ok || price <= 0 {
		return MenuItem{}, fmt.Errorf("%w: menu item %s", ErrMalformedRecord, id)
	}
	available := true
	if v, present := raw["available"]; present {
		available = normalization.AsBool(v)
	}
	return MenuItem{
		ID:           id,
		RestaurantID: restaurantID,
		Name:         name,
		Description:  normalization.AsString(raw["description"]),
		Category:     normalization.AsString(raw["category"]),
		Price:        price,
		Available:    available,
	}, nil
}

func ParseRequestTemplate(id string, raw map[string]any) (RequestTemplate, error) {
	restaurantID, err := requireRestaurant(id, raw)
	if err != nil {
		return RequestTemplate{}, err
	}
	label := normalization.AsString(raw["label"])
	if label == "" {
		return RequestTemplate{}, fmt.Errorf("%w: request type %s missing label", ErrMalformedRecord, id)
	}
	return RequestTemplate{ID: id, RestaurantID: restaurantID, Label: label, Special: normalization.AsBool(raw["special"])}, nil
}

func ParsePromotion(id string, raw map[string]any) (Promotion, error) {
	restaurantID, err := requireRestaurant(id, raw)
	if err != nil {
		return Promotion{}, err
	}
	title := normalization.AsString(raw["title"])
	if title == "" {
		return Promotion{}, fmt.Errorf("%w: promotion %s missing title", ErrMalformedRecord, id)
	}
	return Promotion{
		ID:           id,
		RestaurantID: restaurantID,
		Title:        title,
		Description:  normalization.AsString(raw["description"]),
		Active:       normalization.AsBool(raw["active"]),
		StartsAt:     normalization.AsTime(raw["startsAt"]),
		EndsAt:       normalization.AsTime(raw["endsAt"]),
		Days:         NormalizeDays(raw["days"]),
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
