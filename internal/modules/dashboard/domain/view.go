package domain

import (
	"sort"
	"strconv"

	service "tableside/internal/modules/service/domain"
)

// TableView is the derived presentation of one table.
type TableView struct {
	Number          int                      `json:"tableNumber"`
	Label           string                   `json:"label"`
	Position        *service.Position        `json:"position,omitempty"`
	Color           Color                    `json:"color"`
	Icons           []Icon                   `json:"icons"`
	Badge           string                   `json:"badge,omitempty"`
	UnresolvedCount int                      `json:"unresolvedCount"`
	ServerCalls     int                      `json:"serverCalls"`
	BillRequested   bool                     `json:"billRequested"`
	Requests        []service.ServiceRequest `json:"requests,omitempty"`
}

// Dashboard is the full payload pushed to manager clients.
type Dashboard struct {
	RestaurantID string      `json:"restaurantId"`
	Tables       []TableView `json:"tables"`
	Unplaced     []TableView `json:"unplaced,omitempty"`
	OpenTable    *TableView  `json:"openTable,omitempty"`
}

// ViewFor derives the view of a single table. It works for tables that have
// signals but no layout entry.
func ViewFor(state State, tableNumber int) TableView {
	key := service.TableKey(tableNumber)
	calls := len(state.serverCalls[key])
	_, bill := state.bills[key]
	unresolved := len(state.requests[key])

	view := TableView{
		Number:          tableNumber,
		Label:           service.TableLabel(tableNumber),
		Color:           Urgency(calls, bill, unresolved),
		Icons:           Icons(calls, bill),
		UnresolvedCount: unresolved,
		ServerCalls:     calls,
		BillRequested:   bill,
	}
	if unresolved > 0 {
		view.Badge = strconv.Itoa(unresolved)
	}
	for _, table := range state.tables {
		if table.Number == tableNumber {
			pos := table.Position
			view.Position = &pos
			break
		}
	}
	return view
}

// Derive lists the views of the layout tables in table-number order.
func Derive(state State) []TableView {
	views := make([]TableView, 0, len(state.tables))
	for _, table := range state.tables {
		views = append(views, ViewFor(state, table.Number))
	}
	return views
}

// BuildDashboard assembles the broadcast payload including tables with pending
// signals that are missing from the layout and the open detail view.
func BuildDashboard(state State) Dashboard {
	out := Dashboard{RestaurantID: state.restaurantID, Tables: Derive(state)}

	placed := make(map[int]struct{}, len(state.tables))
	for _, table := range state.tables {
		placed[table.Number] = struct{}{}
	}
	orphans := map[int]struct{}{}
	collect := func(key string) {
		n, err := strconv.Atoi(key)
		if err != nil {
			return
		}
		if _, ok := placed[n]; !ok {
			orphans[n] = struct{}{}
		}
	}
	for key := range state.requests {
		collect(key)
	}
	for key := range state.serverCalls {
		collect(key)
	}
	for key := range state.bills {
		collect(key)
	}
	numbers := make([]int, 0, len(orphans))
	for n := range orphans {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		out.Unplaced = append(out.Unplaced, ViewFor(state, n))
	}

	if state.openTable > 0 {
		detail := ViewFor(state, state.openTable)
		detail.Requests = state.Requests(state.openTable)
		out.OpenTable = &detail
	}
	return out
}
