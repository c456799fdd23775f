package domain

import (
	"errors"
	"slices"
	"time"
)

var (
	// ErrMalformedRecord marks a stored document that cannot be projected into a typed record.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrValidation marks user input rejected before any store call.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// Field names shared by every stored record.
const (
	FieldRestaurantID = "restaurantId"
	FieldTableNumber  = "tableNumber"
	FieldResolved     = "resolved"
	FieldCreatedAt    = "createdAt"
	FieldNotification = "notification"
)

// RequestType tags a ServiceRequest. Special requests are never bulk-resolved.
type RequestType string

const (
	RequestTypeRegular RequestType = "regular"
	RequestTypeSpecial RequestType = "special"
)

// OnItsWayNotification is the customer-facing text set when a request is resolved.
const OnItsWayNotification = "Your request is on its way"

type Restaurant struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	MenuLink   string   `json:"menuLink"`
	ManagerIDs []string `json:"managerIds,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Table struct {
	ID           string   `json:"id"`
	RestaurantID string   `json:"restaurantId"`
	Number       int      `json:"tableNumber"`
	Position     Position `json:"position"`
}

type RequestItem struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type ServiceRequest struct {
	ID           string        `json:"id"`
	RestaurantID string        `json:"restaurantId"`
	TableNumber  int           `json:"tableNumber"`
	Items        []RequestItem `json:"items"`
	Resolved     bool          `json:"resolved"`
	Type         RequestType   `json:"requestType"`
	Notification string        `json:"notification,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Special reports whether the request is excluded from bulk resolution.
func (r ServiceRequest) Special() bool {
	return r.Type == RequestTypeSpecial
}

// ServerCallRequest asks for a server to come to the table. Several may be open at once.
type ServerCallRequest struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurantId"`
	TableNumber  int       `json:"tableNumber"`
	Resolved     bool      `json:"resolved"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BillRequest asks for the bill. At most one is unresolved per table.
type BillRequest struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurantId"`
	TableNumber  int       `json:"tableNumber"`
	Resolved     bool      `json:"resolved"`
	CreatedAt    time.Time `json:"createdAt"`
}

type MenuItem struct {
	ID           string  `json:"id"`
	RestaurantID string  `json:"restaurantId"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Category     string  `json:"category,omitempty"`
	Price        float64 `json:"price"`
	Available    bool    `json:"available"`
}

// RequestTemplate is a manager-configured quick request offered on the customer page.
type RequestTemplate struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurantId"`
	Label        string `json:"label"`
	Special      bool   `json:"special"`
}

type Promotion struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurantId"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Active       bool        `json:"active"`
	StartsAt     time.Time   `json:"startsAt,omitzero"`
	EndsAt       time.Time   `json:"endsAt,omitzero"`
	Days         []DayOfWeek `json:"days,omitempty"`
}

// ActiveAt reports whether the promotion should be shown at the given instant.
func (p Promotion) ActiveAt(at time.Time) bool {
	if !p.Active {
		return false
	}
	if !p.StartsAt.IsZero() && at.Before(p.StartsAt) {
		return false
	}
	if !p.EndsAt.IsZero() && !at.Before(p.EndsAt) {
		return false
	}
	return len(p.Days) == 0 || slices.Contains(p.Days, DayOf(at))
}
