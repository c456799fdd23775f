package domain

import (
	"fmt"
	"strconv"
	"strings"
)

func (r Restaurant) Fields() map[string]any {
	managers := make([]any, 0, len(r.ManagerIDs))
	for _, id := range r.ManagerIDs {
		managers = append(managers, id)
	}
	return map[string]any{
		"name":       r.Name,
		"menuLink":   r.MenuLink,
		"managerIds": managers,
	}
}

func (t Table) Fields() map[string]any {
	return map[string]any{
		FieldRestaurantID: t.RestaurantID,
		FieldTableNumber:  t.Number,
		"x":               t.Position.X,
		"y":               t.Position.Y,
	}
}

func (r ServiceRequest) Fields() map[string]any {
	items := make([]any, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, map[string]any{"item": item.Item, "quantity": item.Quantity})
	}
	return map[string]any{
		FieldRestaurantID: r.RestaurantID,
		FieldTableNumber:  r.TableNumber,
		"items":           items,
		FieldResolved:     r.Resolved,
		"requestType":     string(r.Type),
		FieldNotification: r.Notification,
		FieldCreatedAt:    formatTime(r.CreatedAt),
	}
}

func (c ServerCallRequest) Fields() map[string]any {
	return map[string]any{
		FieldRestaurantID: c.RestaurantID,
		FieldTableNumber:  c.TableNumber,
		FieldResolved:     c.Resolved,
		FieldCreatedAt:    formatTime(c.CreatedAt),
	}
}

func (b BillRequest) Fields() map[string]any {
	return map[string]any{
		FieldRestaurantID: b.RestaurantID,
		FieldTableNumber:  b.TableNumber,
		FieldResolved:     b.Resolved,
		FieldCreatedAt:    formatTime(b.CreatedAt),
	}
}

func (m MenuItem) Fields() map[string]any {
	return map[string]any{
		FieldRestaurantID: m.RestaurantID,
		"name":            m.Name,
		"description":     m.Description,
		"category":        m.Category,
		"price":           m.Price,
		"available":       m.Available,
	}
}

func (t RequestTemplate) Fields() map[string]any {
	return map[string]any{
		FieldRestaurantID: t.RestaurantID,
		"label":           t.Label,
		"special":         t.Special,
	}
}

func (p Promotion) Fields() map[string]any {
	days := make([]any, 0, len(p.Days))
	for _, d := range p.Days {
		days = append(days, string(d))
	}
	return map[string]any{
		FieldRestaurantID: p.RestaurantID,
		"title":           p.Title,
		"description":     p.Description,
		"active":          p.Active,
		"startsAt":        formatTime(p.StartsAt),
		"endsAt":          formatTime(p.EndsAt),
		"days":            days,
	}
}

// ValidateItems trims item names and rejects empty names or non-positive quantities.
func ValidateItems(items []RequestItem) ([]RequestItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	out := make([]RequestItem, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Item)
		if name == "" {
			return nil, fmt.Errorf("%w: item %d has no name", ErrValidation, i+1)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %q needs a quantity of at least 1", ErrValidation, name)
		}
		out = append(out, RequestItem{Item: name, Quantity: item.Quantity})
	}
	return out, nil
}

// ParsePrice reads a manager-entered price. Malformed or non-positive values are rejected.
func ParsePrice(raw string) (float64, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if trimmed == "" {
		return 0, fmt.Errorf("%w: price is required", ErrValidation)
	}
	price, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: price %q is not a number", ErrValidation, raw)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	return price, nil
}

// RequireText rejects blank required fields.
func RequireText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	return trimmed, nil
}
