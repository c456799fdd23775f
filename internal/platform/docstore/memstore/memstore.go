// Package memstore is an in-process document store with live snapshot listeners.
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tableside/internal/platform/docstore"
)

// FaultFunc lets tests fail individual operations. A non-nil error aborts the operation.
type FaultFunc func(op docstore.OpKind, path docstore.Path) error

type record struct {
	seq       uint64
	data      map[string]any
	updatedAt time.Time
}

type subscriber struct {
	id         uint64
	collection string
	filter     docstore.Filter
	fn         docstore.SnapshotFunc
	stop       func() bool
}

// Store keeps documents in memory. Listener callbacks are invoked synchronously and
// serialized; they must not call back into the store on the same goroutine.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]map[string]*record
	subs    map[uint64]*subscriber
	nextSeq uint64
	nextSub uint64
	closed  bool
	fault   FaultFunc
	now     func() time.Time

	dispatchMu sync.Mutex
}

func New() *Store {
	return &Store{
		docs: make(map[string]map[string]*record),
		subs: make(map[uint64]*subscriber),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetFault installs (or clears, with nil) a fault injector.
func (s *Store) SetFault(fn FaultFunc) {
	s.mu.Lock()
	s.fault = fn
	s.mu.Unlock()
}

// ActiveSubscriptions returns the number of live listeners.
func (s *Store) ActiveSubscriptions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Store) Subscribe(ctx context.Context, collection string, filter docstore.Filter, fn docstore.SnapshotFunc) (docstore.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if collection == "" || fn == nil {
		return nil, fmt.Errorf("%w: subscribe requires collection and callback", docstore.ErrInvalidPath)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, docstore.ErrClosed
	}
	s.nextSub++
	sub := &subscriber{id: s.nextSub, collection: collection, filter: filter, fn: fn}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.subs, sub.id)
		s.mu.Unlock()
		slog.Debug("memstore subscription released", slog.String("collection", collection), slog.Uint64("id", sub.id))
	}
	subscription := docstore.NewSubscription(func() {
		if sub.stop != nil {
			sub.stop()
		}
		release()
	})
	sub.stop = context.AfterFunc(ctx, subscription.Close)

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	if snap, ok := s.snapshotFor(sub); ok {
		fn(snap)
	}
	return subscription, nil
}

func (s *Store) Get(ctx context.Context, path docstore.Path) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	if !path.Valid() {
		return docstore.Document{}, fmt.Errorf("%w: %s", docstore.ErrInvalidPath, path)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[path.Collection][path.ID]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	return docstore.Document{Path: path, Data: docstore.CloneData(rec.data), UpdatedAt: rec.updatedAt}, nil
}

func (s *Store) Query(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(collection, filter), nil
}

func (s *Store) Write(ctx context.Context, path docstore.Path, fields map[string]any, merge bool) error {
	return s.Commit(ctx, docstore.NewBatch().Set(path, fields, merge))
}

func (s *Store) Delete(ctx context.Context, path docstore.Path) error {
	return s.Commit(ctx, docstore.NewBatch().Delete(path))
}

// Commit applies every op of the batch or none of them.
func (s *Store) Commit(ctx context.Context, batch *docstore.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := batch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	if s.fault != nil {
		for _, op := range batch.Ops() {
			path := op.Path
			if op.Kind == docstore.OpDeleteWhere {
				path = docstore.Path{Collection: op.Collection}
			}
			if err := s.fault(op.Kind, path); err != nil {
				s.mu.Unlock()
				return err
			}
		}
	}

	touched := make(map[string]struct{})
	now := s.now()
	for _, op := range batch.Ops() {
		switch op.Kind {
		case docstore.OpSet:
			s.setLocked(op.Path, op.Fields, op.Merge, now)
			touched[op.Path.Collection] = struct{}{}
		case docstore.OpDelete:
			if coll := s.docs[op.Path.Collection]; coll != nil {
				delete(coll, op.Path.ID)
			}
			touched[op.Path.Collection] = struct{}{}
		case docstore.OpDeleteWhere:
			for id, rec := range s.docs[op.Collection] {
				if op.Filter.Matches(rec.data) {
					delete(s.docs[op.Collection], id)
				}
			}
			touched[op.Collection] = struct{}{}
		}
	}
	s.mu.Unlock()

	s.notify(touched)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[uint64]*subscriber)
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.stop != nil {
			sub.stop()
		}
	}
	return nil
}

func (s *Store) setLocked(path docstore.Path, fields map[string]any, merge bool, now time.Time) {
	coll := s.docs[path.Collection]
	if coll == nil {
		coll = make(map[string]*record)
		s.docs[path.Collection] = coll
	}
	existing, ok := coll[path.ID]
	if !ok {
		s.nextSeq++
		coll[path.ID] = &record{seq: s.nextSeq, data: docstore.CloneData(fields), updatedAt: now}
		if coll[path.ID].data == nil {
			coll[path.ID].data = map[string]any{}
		}
		return
	}
	if merge {
		for k, v := range docstore.CloneData(fields) {
			existing.data[k] = v
		}
	} else {
		existing.data = docstore.CloneData(fields)
		if existing.data == nil {
			existing.data = map[string]any{}
		}
	}
	existing.updatedAt = now
}

func (s *Store) queryLocked(collection string, filter docstore.Filter) []docstore.Document {
	type entry struct {
		id  string
		rec *record
	}
	matches := make([]entry, 0)
	for id, rec := range s.docs[collection] {
		if filter.Matches(rec.data) {
			matches = append(matches, entry{id: id, rec: rec})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].rec.seq < matches[j].rec.seq })

	docs := make([]docstore.Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, docstore.Document{
			Path:      docstore.Path{Collection: collection, ID: m.id},
			Data:      docstore.CloneData(m.rec.data),
			UpdatedAt: m.rec.updatedAt,
		})
	}
	return docs
}

func (s *Store) snapshotFor(sub *subscriber) (docstore.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, live := s.subs[sub.id]; !live {
		return docstore.Snapshot{}, false
	}
	return docstore.Snapshot{
		Collection: sub.collection,
		Documents:  s.queryLocked(sub.collection, sub.filter),
		At:         s.now(),
	}, true
}

func (s *Store) notify(collections map[string]struct{}) {
	s.mu.RLock()
	targets := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		if _, ok := collections[sub.collection]; ok {
			targets = append(targets, sub)
		}
	}
	s.mu.RUnlock()
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	for _, sub := range targets {
		if snap, ok := s.snapshotFor(sub); ok {
			sub.fn(snap)
		}
	}
}

var _ docstore.Store = (*Store)(nil)
