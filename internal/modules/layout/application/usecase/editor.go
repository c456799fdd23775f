package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"tableside/internal/modules/layout/domain"
	service "tableside/internal/modules/service/domain"
	"tableside/internal/platform/docstore"
	"tableside/internal/shared/normalization"
)

var ErrNoSession = fmt.Errorf("%w: no layout session in progress", service.ErrNotFound)

type sessionKey struct {
	restaurantID string
	managerID    string
}

// Editor keeps one in-memory layout session per restaurant and manager and persists
// finished layouts atomically.
type Editor struct {
	store docstore.Store

	mu       sync.Mutex
	sessions map[sessionKey]*domain.Session
}

// Layout is the persisted table set of a restaurant with its fitted canvas.
type Layout struct {
	RestaurantID string             `json:"restaurantId"`
	GridUnit     float64            `json:"gridUnit"`
	Canvas       domain.Canvas      `json:"canvas"`
	Tables       []domain.Placement `json:"tables"`
}

func NewEditor(store docstore.Store) *Editor {
	return &Editor{store: store, sessions: make(map[sessionKey]*domain.Session)}
}

func key(restaurantID, managerID string) sessionKey {
	return sessionKey{restaurantID: strings.TrimSpace(restaurantID), managerID: strings.TrimSpace(managerID)}
}

// Start opens a new session with rawCount tables, replacing any session in progress.
func (e *Editor) Start(restaurantID, managerID, rawCount string, viewport domain.Canvas) (domain.View, error) {
	session := domain.NewSession(restaurantID, viewport)
	if err := session.SetCount(rawCount); err != nil {
		return session.View(), err
	}
	e.mu.Lock()
	e.sessions[key(restaurantID, managerID)] = session
	e.mu.Unlock()
	slog.Info("layout session started", slog.String("restaurantId", restaurantID), slog.String("managerId", managerID), slog.Int("tables", len(session.View().Tables)))
	return session.View(), nil
}

// Resume opens a session on the currently persisted tables.
func (e *Editor) Resume(ctx context.Context, restaurantID, managerID string, viewport domain.Canvas) (domain.View, error) {
	tables, err := e.persisted(ctx, restaurantID)
	if err != nil {
		return domain.View{}, err
	}
	session := domain.ResumeSession(restaurantID, viewport, tables)
	e.mu.Lock()
	e.sessions[key(restaurantID, managerID)] = session
	e.mu.Unlock()
	return session.View(), nil
}

func (e *Editor) View(restaurantID, managerID string) (domain.View, error) {
	var view domain.View
	err := e.withSession(restaurantID, managerID, func(s *domain.Session) error {
		view = s.View()
		return nil
	})
	return view, err
}

func (e *Editor) Drag(restaurantID, managerID string, tableNumber int, drop service.Position) (domain.View, error) {
	var view domain.View
	err := e.withSession(restaurantID, managerID, func(s *domain.Session) error {
		if _, err := s.Drag(tableNumber, drop); err != nil {
			return err
		}
		view = s.View()
		return nil
	})
	return view, err
}

func (e *Editor) Optimize(restaurantID, managerID string) (domain.View, error) {
	var view domain.View
	err := e.withSession(restaurantID, managerID, func(s *domain.Session) error {
		if _, err := s.Optimize(); err != nil {
			return err
		}
		view = s.View()
		return nil
	})
	return view, err
}

// Save persists the session's tables and ends the session.
func (e *Editor) Save(ctx context.Context, restaurantID, managerID string) (domain.View, error) {
	var (
		session *domain.Session
		tables  []service.Table
	)
	err := e.withSession(restaurantID, managerID, func(s *domain.Session) error {
		session = s
		var err error
		tables, err = s.Tables()
		return err
	})
	if err != nil {
		return domain.View{}, err
	}
	if err := e.replace(ctx, restaurantID, tables); err != nil {
		return domain.View{}, err
	}

	k := key(restaurantID, managerID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessions[k] == session {
		delete(e.sessions, k)
	}
	if err := session.MarkSaved(); err != nil {
		return session.View(), err
	}
	return session.View(), nil
}

// SaveTables persists an explicit placement set, as sent by an editor that keeps its
// own state. Duplicate numbers are rejected before anything is written.
func (e *Editor) SaveTables(ctx context.Context, restaurantID string, placements []domain.Placement) (Layout, error) {
	tables, err := domain.ToTables(restaurantID, placements)
	if err != nil {
		return Layout{}, err
	}
	if err := e.replace(ctx, restaurantID, tables); err != nil {
		return Layout{}, err
	}
	return layoutOf(restaurantID, tables), nil
}

// Current returns the persisted layout of the restaurant.
func (e *Editor) Current(ctx context.Context, restaurantID string) (Layout, error) {
	tables, err := e.persisted(ctx, restaurantID)
	if err != nil {
		return Layout{}, err
	}
	return layoutOf(restaurantID, tables), nil
}

// replace deletes every table of the restaurant and writes the new set in one batch.
func (e *Editor) replace(ctx context.Context, restaurantID string, tables []service.Table) error {
	batch := docstore.NewBatch().
		DeleteWhere(normalization.CollectionTables, docstore.Where(service.FieldRestaurantID, restaurantID))
	for _, t := range tables {
		batch.Set(docstore.Path{Collection: normalization.CollectionTables, ID: t.ID}, t.Fields(), false)
	}
	if err := e.store.Commit(ctx, batch); err != nil {
		slog.Error("layout save failed", slog.String("restaurantId", restaurantID), slog.Int("tables", len(tables)), slog.Any("error", err))
		return fmt.Errorf("save layout: %w", err)
	}
	slog.Info("layout saved", slog.String("restaurantId", restaurantID), slog.Int("tables", len(tables)))
	return nil
}

func (e *Editor) persisted(ctx context.Context, restaurantID string) ([]service.Table, error) {
	docs, err := e.store.Query(ctx, normalization.CollectionTables, docstore.Where(service.FieldRestaurantID, restaurantID))
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}
	tables := make([]service.Table, 0, len(docs))
	for _, doc := range docs {
		t, err := service.ParseTable(doc.Path.ID, doc.Data)
		if err != nil {
			slog.Warn("layout skipped malformed table", slog.String("id", doc.Path.ID), slog.Any("error", err))
			continue
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (e *Editor) withSession(restaurantID, managerID string, fn func(*domain.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.sessions[key(restaurantID, managerID)]
	if !ok {
		return ErrNoSession
	}
	return fn(session)
}

func layoutOf(restaurantID string, tables []service.Table) Layout {
	placements := make([]domain.Placement, 0, len(tables))
	for _, t := range tables {
		placements = append(placements, domain.Placement{Number: t.Number, Position: t.Position})
	}
	domain.SortPlacements(placements)
	unit := domain.GridUnit(len(placements))
	return Layout{
		RestaurantID: restaurantID,
		GridUnit:     unit,
		Canvas:       domain.CanvasFor(placements, unit, domain.Canvas{}),
		Tables:       placements,
	}
}
