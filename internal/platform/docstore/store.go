// Package docstore defines the boundary to the managed document database: live
// snapshot subscriptions, merge writes, deletes and atomic batches.
package docstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
	ErrClosed      = errors.New("document store closed")
)

// Path addresses a single record.
type Path struct {
	Collection string
	ID         string
}

func (p Path) Valid() bool {
	return strings.TrimSpace(p.Collection) != "" && strings.TrimSpace(p.ID) != ""
}

func (p Path) String() string {
	return p.Collection + "/" + p.ID
}

// Document is a stored record. Data is owned by the receiver and may be mutated freely.
type Document struct {
	Path      Path
	Data      map[string]any
	UpdatedAt time.Time
}

// Snapshot is the full materialized set of documents matching a subscription at one moment.
type Snapshot struct {
	Collection string
	Documents  []Document
	At         time.Time
}

// Subscription is released by calling Close exactly once; further calls are no-ops.
type Subscription interface {
	Close()
}

// SnapshotFunc receives every snapshot of a subscription in emission order.
type SnapshotFunc func(Snapshot)

// Store is the document database port.
type Store interface {
	Subscribe(ctx context.Context, collection string, filter Filter, fn SnapshotFunc) (Subscription, error)
	Get(ctx context.Context, path Path) (Document, error)
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
	Write(ctx context.Context, path Path, fields map[string]any, merge bool) error
	Delete(ctx context.Context, path Path) error
	Commit(ctx context.Context, batch *Batch) error
	Close() error
}

type onceSubscription struct {
	once    sync.Once
	release func()
}

// NewSubscription wraps release so it runs at most once however often Close is called.
func NewSubscription(release func()) Subscription {
	return &onceSubscription{release: release}
}

func (s *onceSubscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}
