package domain

import "time"

// SubmitRequestCommand is the customer payload for a custom item request.
type SubmitRequestCommand struct {
	Items       []RequestItem `json:"items"`
	RequestType string        `json:"requestType"`
}

// UpdateRestaurantCommand carries the manager-editable restaurant profile. The same payload
// creates the restaurant when it does not exist yet.
type UpdateRestaurantCommand struct {
	Name     string `json:"name"`
	MenuLink string `json:"menuLink"`
}

// AddMenuItemCommand accepts the price as typed by the manager ("12.50", "$3", 4).
type AddMenuItemCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       any    `json:"price"`
	Available   *bool  `json:"available"`
}

type AddRequestTypeCommand struct {
	Label   string `json:"label"`
	Special bool   `json:"special"`
}

type AddPromotionCommand struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Active      *bool     `json:"active"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Days        []string  `json:"days"`
}
