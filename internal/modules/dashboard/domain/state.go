package domain

import (
	"fmt"
	"sort"
	"strings"

	service "tableside/internal/modules/service/domain"
)

// StreamKind tags which live query produced an event.
type StreamKind string

const (
	StreamTables      StreamKind = "tables"
	StreamRequests    StreamKind = "requests"
	StreamServerCalls StreamKind = "serverCalls"
	StreamBills       StreamKind = "bills"
)

// RawRecord is one document of a snapshot before parsing.
type RawRecord struct {
	ID   string
	Data map[string]any
}

// Event carries the full current snapshot of one stream.
type Event struct {
	Kind    StreamKind
	Records []RawRecord
}

// State is the folded view of the four streams for one restaurant. Values are never
// mutated in place; every change returns a new State sharing untouched maps.
type State struct {
	restaurantID string
	tables       []service.Table
	requests     map[string][]service.ServiceRequest
	serverCalls  map[string][]string
	bills        map[string]string
	openTable    int
}

func NewState(restaurantID string) State {
	return State{
		restaurantID: strings.TrimSpace(restaurantID),
		requests:     map[string][]service.ServiceRequest{},
		serverCalls:  map[string][]string{},
		bills:        map[string]string{},
	}
}

func (s State) RestaurantID() string { return s.restaurantID }

// Tables returns the layout ordered by table number.
func (s State) Tables() []service.Table {
	return append([]service.Table(nil), s.tables...)
}

func (s State) Requests(tableNumber int) []service.ServiceRequest {
	return append([]service.ServiceRequest(nil), s.requests[service.TableKey(tableNumber)]...)
}

// AllRequests returns every unresolved request keyed by table key.
func (s State) AllRequests() map[string][]service.ServiceRequest {
	out := make(map[string][]service.ServiceRequest, len(s.requests))
	for k, v := range s.requests {
		out[k] = append([]service.ServiceRequest(nil), v...)
	}
	return out
}

func (s State) ServerCalls(tableNumber int) []string {
	return append([]string(nil), s.serverCalls[service.TableKey(tableNumber)]...)
}

func (s State) Bill(tableNumber int) (string, bool) {
	id, ok := s.bills[service.TableKey(tableNumber)]
	return id, ok
}

// OpenTable returns the table whose detail view is open, or 0.
func (s State) OpenTable() int { return s.openTable }

// Reduce folds one event into the state. Records that cannot be parsed, belong to another
// restaurant, or are already resolved are skipped and reported in the returned errors.
func Reduce(state State, event Event) (State, []error) {
	next := state
	var rejected []error
	switch event.Kind {
	case StreamTables:
		tables := make([]service.Table, 0, len(event.Records))
		for _, rec := range event.Records {
			table, err := service.ParseTable(rec.ID, rec.Data)
			if err == nil {
				err = state.checkScope(table.RestaurantID, false)
			}
			if err != nil {
				rejected = append(rejected, err)
				continue
			}
			tables = append(tables, table)
		}
		sort.SliceStable(tables, func(i, j int) bool { return tables[i].Number < tables[j].Number })
		next.tables = tables
	case StreamRequests:
		requests := make(map[string][]service.ServiceRequest)
		for _, rec := range event.Records {
			req, err := service.ParseServiceRequest(rec.ID, rec.Data)
			if err == nil {
				err = state.checkScope(req.RestaurantID, req.Resolved)
			}
			if err != nil {
				rejected = append(rejected, err)
				continue
			}
			key := service.TableKey(req.TableNumber)
			requests[key] = append(requests[key], req)
		}
		next.requests = requests
	case StreamServerCalls:
		calls := make(map[string][]string)
		for _, rec := range event.Records {
			call, err := service.ParseServerCall(rec.ID, rec.Data)
			if err == nil {
				err = state.checkScope(call.RestaurantID, call.Resolved)
			}
			if err != nil {
				rejected = append(rejected, err)
				continue
			}
			key := service.TableKey(call.TableNumber)
			calls[key] = append(calls[key], call.ID)
		}
		next.serverCalls = calls
	case StreamBills:
		bills := make(map[string]string)
		for _, rec := range event.Records {
			bill, err := service.ParseBillRequest(rec.ID, rec.Data)
			if err == nil {
				err = state.checkScope(bill.RestaurantID, bill.Resolved)
			}
			if err != nil {
				rejected = append(rejected, err)
				continue
			}
			key := service.TableKey(bill.TableNumber)
			if existing, dup := bills[key]; dup {
				rejected = append(rejected, fmt.Errorf("duplicate open bill request %s for table %s, keeping %s", bill.ID, key, existing))
				continue
			}
			bills[key] = bill.ID
		}
		next.bills = bills
	default:
		rejected = append(rejected, fmt.Errorf("unknown stream kind %q", event.Kind))
	}
	return next, rejected
}

func (s State) checkScope(restaurantID string, resolved bool) error {
	if s.restaurantID != "" && restaurantID != s.restaurantID {
		return fmt.Errorf("%w: record for restaurant %q in %q stream", service.ErrMalformedRecord, restaurantID, s.restaurantID)
	}
	if resolved {
		return fmt.Errorf("%w: resolved record in unresolved stream", service.ErrMalformedRecord)
	}
	return nil
}

// WithoutRequests drops the given request ids from one table only.
func (s State) WithoutRequests(tableNumber int, ids ...string) State {
	key := service.TableKey(tableNumber)
	current, ok := s.requests[key]
	if !ok || len(ids) == 0 {
		return s
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]service.ServiceRequest, 0, len(current))
	for _, req := range current {
		if _, gone := drop[req.ID]; !gone {
			kept = append(kept, req)
		}
	}
	next := s
	next.requests = copyRequests(s.requests)
	if len(kept) == 0 {
		delete(next.requests, key)
	} else {
		next.requests[key] = kept
	}
	return next
}

// WithoutServerCalls clears every server call of a table.
func (s State) WithoutServerCalls(tableNumber int) State {
	key := service.TableKey(tableNumber)
	if _, ok := s.serverCalls[key]; !ok {
		return s
	}
	next := s
	next.serverCalls = copyIDs(s.serverCalls)
	delete(next.serverCalls, key)
	return next
}

func (s State) WithoutBill(tableNumber int) State {
	key := service.TableKey(tableNumber)
	if _, ok := s.bills[key]; !ok {
		return s
	}
	next := s
	next.bills = make(map[string]string, len(s.bills))
	for k, v := range s.bills {
		if k != key {
			next.bills[k] = v
		}
	}
	return next
}

// WithoutTableSignals clears requests, server calls and bill of a table and closes any open detail view.
func (s State) WithoutTableSignals(tableNumber int) State {
	key := service.TableKey(tableNumber)
	next := s.WithoutServerCalls(tableNumber).WithoutBill(tableNumber)
	if _, ok := next.requests[key]; ok {
		next.requests = copyRequests(next.requests)
		delete(next.requests, key)
	}
	next.openTable = 0
	return next
}

// WithOpenTable opens the detail view of a table; 0 closes it.
func (s State) WithOpenTable(tableNumber int) State {
	next := s
	if tableNumber < 0 {
		tableNumber = 0
	}
	next.openTable = tableNumber
	return next
}

func copyRequests(in map[string][]service.ServiceRequest) map[string][]service.ServiceRequest {
	out := make(map[string][]service.ServiceRequest, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyIDs(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
