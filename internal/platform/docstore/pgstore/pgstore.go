// Package pgstore implements the document store on PostgreSQL. Documents live in a single
// JSONB table; live snapshots are driven by LISTEN/NOTIFY and re-queried per subscription.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tableside/internal/platform/docstore"
)

const notifyChannel = "docstore_changes"

const (
	sqlGet         = `SELECT data, updated_at FROM documents WHERE collection = $1 AND id = $2`
	sqlQuery       = `SELECT id, data, updated_at FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY created_at, id`
	sqlUpsertMerge = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`
	sqlUpsertReplace = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	sqlDelete      = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	sqlDeleteWhere = `DELETE FROM documents WHERE collection = $1 AND data @> $2::jsonb`
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type subscription struct {
	id         uint64
	collection string
	filter     docstore.Filter
	fn         docstore.SnapshotFunc
	signal     chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

func (s *subscription) poke() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

type Store struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// Connect opens a pool, verifies connectivity and starts the change listener.
func Connect(ctx context.Context, databaseURL string, opTimeout time.Duration) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgstore pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore ping: %w", err)
	}
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	listenCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		pool:      pool,
		opTimeout: opTimeout,
		subs:      make(map[uint64]*subscription),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go s.listen(listenCtx)
	return s, nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, filter docstore.Filter, fn docstore.SnapshotFunc) (docstore.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if collection == "" || fn == nil {
		return nil, fmt.Errorf("%w: subscribe requires collection and callback", docstore.ErrInvalidPath)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.nextID++
	sub := &subscription{
		id:         s.nextID,
		collection: collection,
		filter:     filter,
		fn:         fn,
		signal:     make(chan struct{}, 1),
		ctx:        subCtx,
		cancel:     cancel,
	}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	go s.run(sub)
	sub.poke()

	return docstore.NewSubscription(func() {
		cancel()
		s.mu.Lock()
		delete(s.subs, sub.id)
		s.mu.Unlock()
		slog.Debug("pgstore subscription released", slog.String("collection", collection), slog.Uint64("id", sub.id))
	}), nil
}

// run re-queries the subscription each time it is signalled. Signals coalesce, so a burst
// of notifications yields one fresh snapshot.
func (s *Store) run(sub *subscription) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case <-sub.signal:
		}
		docs, err := s.Query(sub.ctx, sub.collection, sub.filter)
		if err != nil {
			if sub.ctx.Err() != nil {
				return
			}
			slog.Warn("pgstore snapshot query failed", slog.String("collection", sub.collection), slog.Any("error", err))
			continue
		}
		if sub.ctx.Err() != nil {
			return
		}
		sub.fn(docstore.Snapshot{Collection: sub.collection, Documents: docs, At: time.Now().UTC()})
	}
}

func (s *Store) listen(ctx context.Context) {
	defer close(s.done)
	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("pgstore listener disconnected", slog.Any("error", err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	slog.Info("pgstore listening for changes", slog.String("channel", notifyChannel))
	// Notifications may have been missed while disconnected.
	s.pokeCollection("")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.pokeCollection(n.Payload)
	}
}

// pokeCollection signals every subscription on collection, or all of them when empty.
func (s *Store) pokeCollection(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if collection == "" || sub.collection == collection {
			sub.poke()
		}
	}
}

func (s *Store) Get(ctx context.Context, path docstore.Path) (docstore.Document, error) {
	if !path.Valid() {
		return docstore.Document{}, fmt.Errorf("%w: %s", docstore.ErrInvalidPath, path)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var (
		raw       []byte
		updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx, sqlGet, path.Collection, path.ID).Scan(&raw, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("pgstore get %s: %w", path, err)
	}
	data, err := decodeData(raw)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("pgstore get %s: %w", path, err)
	}
	return docstore.Document{Path: path, Data: data, UpdatedAt: updatedAt.UTC()}, nil
}

func (s *Store) Query(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	filterJSON, err := encodeFilter(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sqlQuery, collection, filterJSON)
	if err != nil {
		return nil, fmt.Errorf("pgstore query %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make([]docstore.Document, 0)
	for rows.Next() {
		var (
			id        string
			raw       []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("pgstore scan %s: %w", collection, err)
		}
		data, err := decodeData(raw)
		if err != nil {
			slog.Warn("pgstore skipping undecodable document", slog.String("collection", collection), slog.String("id", id), slog.Any("error", err))
			continue
		}
		docs = append(docs, docstore.Document{
			Path:      docstore.Path{Collection: collection, ID: id},
			Data:      data,
			UpdatedAt: updatedAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore rows %s: %w", collection, err)
	}
	return docs, nil
}

func (s *Store) Write(ctx context.Context, path docstore.Path, fields map[string]any, merge bool) error {
	if !path.Valid() {
		return fmt.Errorf("%w: %s", docstore.ErrInvalidPath, path)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return applyOp(ctx, s.pool, docstore.Op{Kind: docstore.OpSet, Path: path, Fields: fields, Merge: merge})
}

func (s *Store) Delete(ctx context.Context, path docstore.Path) error {
	if !path.Valid() {
		return fmt.Errorf("%w: %s", docstore.ErrInvalidPath, path)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return applyOp(ctx, s.pool, docstore.Op{Kind: docstore.OpDelete, Path: path})
}

// Commit applies the batch inside one transaction.
func (s *Store) Commit(ctx context.Context, batch *docstore.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, op := range batch.Ops() {
			if err := applyOp(ctx, tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	s.cancel()
	<-s.done
	s.mu.Lock()
	for id, sub := range s.subs {
		sub.cancel()
		delete(s.subs, id)
	}
	s.mu.Unlock()
	s.pool.Close()
	return nil
}

func applyOp(ctx context.Context, db execer, op docstore.Op) error {
	switch op.Kind {
	case docstore.OpSet:
		fields := op.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op.Path, err)
		}
		stmt := sqlUpsertReplace
		if op.Merge {
			stmt = sqlUpsertMerge
		}
		if _, err := db.Exec(ctx, stmt, op.Path.Collection, op.Path.ID, string(raw)); err != nil {
			return fmt.Errorf("pgstore write %s: %w", op.Path, err)
		}
	case docstore.OpDelete:
		if _, err := db.Exec(ctx, sqlDelete, op.Path.Collection, op.Path.ID); err != nil {
			return fmt.Errorf("pgstore delete %s: %w", op.Path, err)
		}
	case docstore.OpDeleteWhere:
		filterJSON, err := encodeFilter(op.Filter)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx, sqlDeleteWhere, op.Collection, filterJSON); err != nil {
			return fmt.Errorf("pgstore delete where %s: %w", op.Collection, err)
		}
	default:
		return fmt.Errorf("unknown op %q", op.Kind)
	}
	return nil
}

func encodeFilter(filter docstore.Filter) (string, error) {
	raw, err := json.Marshal(filter.AsMap())
	if err != nil {
		return "", fmt.Errorf("encode filter: %w", err)
	}
	return string(raw), nil
}

func decodeData(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return data, nil
}

var _ docstore.Store = (*Store)(nil)
