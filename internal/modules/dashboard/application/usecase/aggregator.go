package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"tableside/internal/modules/dashboard/application/port"
	"tableside/internal/modules/dashboard/domain"
	service "tableside/internal/modules/service/domain"
	"tableside/internal/platform/docstore"
	"tableside/internal/shared/normalization"
)

var (
	ErrMissingRestaurant = errors.New("missing restaurant id")
	ErrNotConnected      = errors.New("aggregator not connected")
	// ErrBatchFailed wraps the aggregated errors of a parallel batch. Local state is left untouched.
	ErrBatchFailed   = errors.New("batch operation failed")
	ErrUnknownRecord = errors.New("record not pending for table")
)

// ChangeFunc receives the dashboard after every state change.
type ChangeFunc func(domain.Dashboard)

type stream struct {
	kind           domain.StreamKind
	collection     string
	unresolvedOnly bool
}

var streams = []stream{
	{kind: domain.StreamTables, collection: normalization.CollectionTables},
	{kind: domain.StreamRequests, collection: normalization.CollectionRequests, unresolvedOnly: true},
	{kind: domain.StreamServerCalls, collection: normalization.CollectionServerCalls, unresolvedOnly: true},
	{kind: domain.StreamBills, collection: normalization.CollectionBillRequests, unresolvedOnly: true},
}

// Aggregator keeps the live table state of one restaurant by folding the four store
// subscriptions through the reducer, and applies manager actions back to the store.
type Aggregator struct {
	store        docstore.Store
	restaurantID string
	onChange     ChangeFunc
	notifier     port.CustomerNotifier
	logger       *slog.Logger

	lifecycle sync.Mutex
	subs      []docstore.Subscription
	cancel    context.CancelFunc

	mu        sync.Mutex
	state     domain.State
	connected bool
	version   uint64

	emitMu      sync.Mutex
	lastEmitted uint64
}

type Option func(*Aggregator)

func WithNotifier(n port.CustomerNotifier) Option {
	return func(a *Aggregator) {
		if n != nil {
			a.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAggregator(store docstore.Store, restaurantID string, onChange ChangeFunc, opts ...Option) (*Aggregator, error) {
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" {
		return nil, ErrMissingRestaurant
	}
	a := &Aggregator{
		store:        store,
		restaurantID: restaurantID,
		onChange:     onChange,
		notifier:     port.NoopNotifier{},
		logger:       slog.Default(),
		state:        domain.NewState(restaurantID),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(slog.String("restaurantId", restaurantID))
	return a, nil
}

func (a *Aggregator) RestaurantID() string { return a.restaurantID }

// Connect opens the four subscriptions. The subscriptions outlive ctx and are released
// by Disconnect. Calling Connect on a connected aggregator is a no-op.
func (a *Aggregator) Connect(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.subs != nil {
		return nil
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()

	subs := make([]docstore.Subscription, 0, len(streams))
	for _, s := range streams {
		filter := docstore.Where(service.FieldRestaurantID, a.restaurantID)
		if s.unresolvedOnly {
			filter = filter.And(service.FieldResolved, false)
		}
		kind := s.kind
		sub, err := a.store.Subscribe(subCtx, s.collection, filter, func(snap docstore.Snapshot) {
			a.apply(kind, snap)
		})
		if err != nil {
			for _, opened := range subs {
				opened.Close()
			}
			cancel()
			a.mu.Lock()
			a.connected = false
			a.state = domain.NewState(a.restaurantID)
			a.mu.Unlock()
			a.logger.Error("aggregator subscribe failed", slog.String("collection", s.collection), slog.Any("error", err))
			return fmt.Errorf("subscribe %s: %w", s.collection, err)
		}
		subs = append(subs, sub)
	}
	a.subs = subs
	a.cancel = cancel
	a.logger.Info("aggregator connected", slog.Int("subscriptions", len(subs)))
	return nil
}

// Disconnect releases every subscription exactly once. It is safe to call repeatedly.
func (a *Aggregator) Disconnect() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.subs == nil {
		return
	}
	for _, sub := range a.subs {
		sub.Close()
	}
	a.subs = nil
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Lock()
	a.connected = false
	a.state = domain.NewState(a.restaurantID)
	a.mu.Unlock()
	a.logger.Info("aggregator disconnected")
}

// State returns the current immutable state.
func (a *Aggregator) State() domain.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Dashboard returns the current broadcast payload.
func (a *Aggregator) Dashboard() domain.Dashboard {
	return domain.BuildDashboard(a.State())
}

func (a *Aggregator) apply(kind domain.StreamKind, snap docstore.Snapshot) {
	records := make([]domain.RawRecord, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		records = append(records, domain.RawRecord{ID: doc.Path.ID, Data: doc.Data})
	}

	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return
	}
	next, rejected := domain.Reduce(a.state, domain.Event{Kind: kind, Records: records})
	a.state = next
	a.version++
	version := a.version
	a.mu.Unlock()

	for _, err := range rejected {
		a.logger.Warn("aggregator quarantined record", slog.String("stream", string(kind)), slog.Any("error", err))
	}
	a.emit(version, next)
}

// update applies a local change after a successful write and broadcasts it.
func (a *Aggregator) update(change func(domain.State) domain.State) {
	a.mu.Lock()
	next := change(a.state)
	a.state = next
	a.version++
	version := a.version
	a.mu.Unlock()
	a.emit(version, next)
}

func (a *Aggregator) emit(version uint64, state domain.State) {
	if a.onChange == nil {
		return
	}
	a.emitMu.Lock()
	defer a.emitMu.Unlock()
	if version <= a.lastEmitted {
		return
	}
	a.lastEmitted = version
	a.onChange(domain.BuildDashboard(state))
}

func (a *Aggregator) requireConnected() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return ErrNotConnected
	}
	return nil
}

func resolvedFields(notification bool) map[string]any {
	fields := map[string]any{service.FieldResolved: true}
	if notification {
		fields[service.FieldNotification] = service.OnItsWayNotification
	}
	return fields
}

// ResolveRequest marks one generic request resolved and removes exactly that id from its table.
func (a *Aggregator) ResolveRequest(ctx context.Context, tableNumber int, requestID string) error {
	if err := a.requireConnected(); err != nil {
		return err
	}
	var target *service.ServiceRequest
	for _, req := range a.State().Requests(tableNumber) {
		if req.ID == requestID {
			target = &req
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: request %q on table %d", ErrUnknownRecord, requestID, tableNumber)
	}

	path := docstore.Path{Collection: normalization.CollectionRequests, ID: requestID}
	if err := a.store.Write(ctx, path, resolvedFields(true), true); err != nil {
		a.logger.Error("resolve request failed", slog.String("requestId", requestID), slog.Int("tableNumber", tableNumber), slog.Any("error", err))
		return fmt.Errorf("resolve request %s: %w", requestID, err)
	}
	a.update(func(s domain.State) domain.State { return s.WithoutRequests(tableNumber, requestID) })
	a.logger.Info("request resolved", slog.String("requestId", requestID), slog.Int("tableNumber", tableNumber))

	target.Resolved = true
	target.Notification = service.OnItsWayNotification
	a.notify(ctx, *target)
	return nil
}

// ResolveAllNonSpecial resolves every pending non-special request across all tables in
// parallel. Local state changes only when every write succeeded.
func (a *Aggregator) ResolveAllNonSpecial(ctx context.Context) error {
	if err := a.requireConnected(); err != nil {
		return err
	}
	var pending []service.ServiceRequest
	for _, reqs := range a.State().AllRequests() {
		for _, req := range reqs {
			if !req.Special() {
				pending = append(pending, req)
			}
		}
	}
	if len(pending) == 0 {
		return nil
	}

	err := runParallel(ctx, len(pending), func(ctx context.Context, i int) error {
		path := docstore.Path{Collection: normalization.CollectionRequests, ID: pending[i].ID}
		if err := a.store.Write(ctx, path, resolvedFields(true), true); err != nil {
			return fmt.Errorf("resolve request %s: %w", pending[i].ID, err)
		}
		return nil
	})
	if err != nil {
		a.logger.Error("resolve all requests failed", slog.Int("count", len(pending)), slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}

	byTable := make(map[int][]string)
	for _, req := range pending {
		byTable[req.TableNumber] = append(byTable[req.TableNumber], req.ID)
	}
	a.update(func(s domain.State) domain.State {
		for table, ids := range byTable {
			s = s.WithoutRequests(table, ids...)
		}
		return s
	})
	a.logger.Info("all regular requests resolved", slog.Int("count", len(pending)))

	for _, req := range pending {
		req.Resolved = true
		req.Notification = service.OnItsWayNotification
		a.notify(ctx, req)
	}
	return nil
}

// ResolveAllServerCalls resolves every pending server call of a table in parallel.
func (a *Aggregator) ResolveAllServerCalls(ctx context.Context, tableNumber int) error {
	if err := a.requireConnected(); err != nil {
		return err
	}
	ids := a.State().ServerCalls(tableNumber)
	if len(ids) == 0 {
		return nil
	}
	err := runParallel(ctx, len(ids), func(ctx context.Context, i int) error {
		path := docstore.Path{Collection: normalization.CollectionServerCalls, ID: ids[i]}
		if err := a.store.Write(ctx, path, resolvedFields(false), true); err != nil {
			return fmt.Errorf("resolve server call %s: %w", ids[i], err)
		}
		return nil
	})
	if err != nil {
		a.logger.Error("resolve server calls failed", slog.Int("tableNumber", tableNumber), slog.Int("count", len(ids)), slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}
	a.update(func(s domain.State) domain.State { return s.WithoutServerCalls(tableNumber) })
	a.logger.Info("server calls resolved", slog.Int("tableNumber", tableNumber), slog.Int("count", len(ids)))
	return nil
}

// ResolveBill resolves the single pending bill request of a table.
func (a *Aggregator) ResolveBill(ctx context.Context, tableNumber int) error {
	if err := a.requireConnected(); err != nil {
		return err
	}
	id, ok := a.State().Bill(tableNumber)
	if !ok {
		return fmt.Errorf("%w: no bill request on table %d", ErrUnknownRecord, tableNumber)
	}
	path := docstore.Path{Collection: normalization.CollectionBillRequests, ID: id}
	if err := a.store.Write(ctx, path, resolvedFields(false), true); err != nil {
		a.logger.Error("resolve bill failed", slog.Int("tableNumber", tableNumber), slog.Any("error", err))
		return fmt.Errorf("resolve bill %s: %w", id, err)
	}
	a.update(func(s domain.State) domain.State { return s.WithoutBill(tableNumber) })
	a.logger.Info("bill resolved", slog.Int("tableNumber", tableNumber))
	return nil
}

// ClearTable deletes every request, server call and bill record of a table, resolved or
// not, one collection after the other. It stops at the first failing collection.
func (a *Aggregator) ClearTable(ctx context.Context, tableNumber int) error {
	if err := a.requireConnected(); err != nil {
		return err
	}
	phases := []string{
		normalization.CollectionRequests,
		normalization.CollectionServerCalls,
		normalization.CollectionBillRequests,
	}
	for _, collection := range phases {
		if err := a.deleteTableRecords(ctx, collection, tableNumber); err != nil {
			a.logger.Error("clear table failed", slog.Int("tableNumber", tableNumber), slog.String("collection", collection), slog.Any("error", err))
			return err
		}
	}
	a.update(func(s domain.State) domain.State { return s.WithoutTableSignals(tableNumber) })
	a.logger.Info("table cleared", slog.Int("tableNumber", tableNumber))
	return nil
}

func (a *Aggregator) deleteTableRecords(ctx context.Context, collection string, tableNumber int) error {
	docs, err := a.store.Query(ctx, collection, docstore.Where(service.FieldRestaurantID, a.restaurantID))
	if err != nil {
		return fmt.Errorf("query %s: %w", collection, err)
	}
	var paths []docstore.Path
	for _, doc := range docs {
		n, err := service.TableNumberOf(doc.Data)
		if err != nil || n != tableNumber {
			continue
		}
		paths = append(paths, doc.Path)
	}
	err = runParallel(ctx, len(paths), func(ctx context.Context, i int) error {
		if err := a.store.Delete(ctx, paths[i]); err != nil {
			return fmt.Errorf("delete %s: %w", paths[i], err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}
	return nil
}

// OpenTable opens the detail view of a table.
func (a *Aggregator) OpenTable(tableNumber int) {
	a.update(func(s domain.State) domain.State { return s.WithOpenTable(tableNumber) })
}

func (a *Aggregator) CloseTable() {
	a.update(func(s domain.State) domain.State { return s.WithOpenTable(0) })
}

func (a *Aggregator) notify(ctx context.Context, req service.ServiceRequest) {
	if err := a.notifier.RequestResolved(ctx, req); err != nil {
		a.logger.Warn("customer notification failed", slog.String("requestId", req.ID), slog.Any("error", err))
	}
}

// runParallel runs fn for every index concurrently and waits for all of them.
func runParallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if err := fn(ctx, i); err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return result.ErrorOrNil()
}
