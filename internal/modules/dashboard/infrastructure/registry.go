package infrastructure

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"tableside/internal/modules/dashboard/application/usecase"
	"tableside/internal/modules/dashboard/domain"
	rtport "tableside/internal/modules/realtime/application/port"
	rtdomain "tableside/internal/modules/realtime/domain"
	"tableside/internal/platform/docstore"
)

// Registry shares one connected aggregator per restaurant between every dashboard
// socket of that restaurant. The aggregator is disconnected when its last user releases it.
type Registry struct {
	store       docstore.Store
	broadcaster rtport.Broadcaster
	opts        []usecase.Option

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	aggregator *usecase.Aggregator
	refs       int
}

func NewRegistry(store docstore.Store, broadcaster rtport.Broadcaster, opts ...usecase.Option) *Registry {
	return &Registry{
		store:       store,
		broadcaster: broadcaster,
		opts:        opts,
		entries:     make(map[string]*entry),
	}
}

// Acquire returns the restaurant's aggregator, connecting it on first use. The returned
// release func must be called exactly once; extra calls are ignored.
func (r *Registry) Acquire(ctx context.Context, restaurantID string) (*usecase.Aggregator, func(), error) {
	restaurantID = strings.TrimSpace(restaurantID)

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[restaurantID]
	if !ok {
		agg, err := usecase.NewAggregator(r.store, restaurantID, r.publish(restaurantID), r.opts...)
		if err != nil {
			return nil, nil, err
		}
		if err := agg.Connect(ctx); err != nil {
			return nil, nil, err
		}
		e = &entry{aggregator: agg}
		r.entries[restaurantID] = e
		slog.Info("dashboard aggregator connected", slog.String("restaurantId", restaurantID))
	}
	e.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(restaurantID, e) })
	}
	return e.aggregator, release, nil
}

func (r *Registry) release(restaurantID string, e *entry) {
	r.mu.Lock()
	e.refs--
	last := e.refs <= 0
	if last && r.entries[restaurantID] == e {
		delete(r.entries, restaurantID)
	}
	r.mu.Unlock()

	if last {
		e.aggregator.Disconnect()
		slog.Info("dashboard aggregator disconnected", slog.String("restaurantId", restaurantID))
	}
}

// Active returns the number of restaurants with a connected aggregator.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close disconnects every aggregator regardless of outstanding references.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range entries {
		e.aggregator.Disconnect()
	}
}

func (r *Registry) publish(restaurantID string) usecase.ChangeFunc {
	return func(d domain.Dashboard) {
		if r.broadcaster == nil {
			return
		}
		r.broadcaster.Broadcast(context.Background(), SnapshotMessage(restaurantID, d))
	}
}

// SnapshotMessage wraps a dashboard in the message sent on the restaurant's dashboard topic.
func SnapshotMessage(restaurantID string, d domain.Dashboard) *rtdomain.Message {
	msg := rtdomain.NewMessage(rtdomain.DashboardEntity, rtdomain.ActionSnapshot, d)
	msg.Topic = rtdomain.DashboardTopic(restaurantID)
	msg.ResourceID = restaurantID
	return msg.WithMeta(rtdomain.MetaRestaurantID, restaurantID)
}
