package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	service "tableside/internal/modules/service/domain"
)

var (
	ErrInvalidTableCount = fmt.Errorf("%w: table count must be a whole number between 1 and %d", service.ErrValidation, MaxTables)
	ErrInvalidTransition = errors.New("invalid layout transition")
	ErrUnknownTable      = fmt.Errorf("%w: table is not part of this layout", service.ErrValidation)
	ErrDuplicateTable    = fmt.Errorf("%w: duplicate table number", service.ErrValidation)
)

type Phase string

const (
	PhaseCountEntry Phase = "count_entry"
	PhaseEditing    Phase = "layout_editing"
	PhaseOptimizing Phase = "optimizing"
	PhaseSaved      Phase = "saved"
)

// Session is one manager's layout editing session. It is not safe for concurrent use.
type Session struct {
	restaurantID string
	viewport     Canvas
	phase        Phase
	unit         float64
	canvas       Canvas
	tables       []Placement
}

// View is the serializable state of a session.
type View struct {
	RestaurantID string      `json:"restaurantId"`
	Phase        Phase       `json:"phase"`
	GridUnit     float64     `json:"gridUnit"`
	Canvas       Canvas      `json:"canvas"`
	Tables       []Placement `json:"tables"`
}

func NewSession(restaurantID string, viewport Canvas) *Session {
	return &Session{
		restaurantID: strings.TrimSpace(restaurantID),
		viewport:     viewport,
		phase:        PhaseCountEntry,
		canvas:       DefaultCanvas(),
	}
}

// ResumeSession starts editing an already persisted layout.
func ResumeSession(restaurantID string, viewport Canvas, tables []service.Table) *Session {
	s := NewSession(restaurantID, viewport)
	if len(tables) == 0 {
		return s
	}
	placements := make([]Placement, 0, len(tables))
	for _, t := range tables {
		placements = append(placements, Placement{Number: t.Number, Position: t.Position})
	}
	SortPlacements(placements)
	s.unit = GridUnit(len(placements))
	s.tables = placements
	s.canvas = CanvasFor(placements, s.unit, viewport)
	s.phase = PhaseEditing
	return s
}

func (s *Session) Phase() Phase { return s.phase }

// SetCount generates a fresh grid of tables from the manager's raw input. Invalid input
// leaves the session without tables on the default canvas.
func (s *Session) SetCount(raw string) error {
	if s.phase != PhaseCountEntry && s.phase != PhaseEditing {
		return fmt.Errorf("%w: set count while %s", ErrInvalidTransition, s.phase)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 || n > MaxTables {
		s.phase = PhaseCountEntry
		s.unit = 0
		s.tables = nil
		s.canvas = DefaultCanvas()
		return fmt.Errorf("%w: %q", ErrInvalidTableCount, raw)
	}
	s.unit = GridUnit(n)
	s.tables = InitialPositions(n, s.unit)
	s.canvas = CanvasFor(s.tables, s.unit, s.viewport)
	s.phase = PhaseEditing
	return nil
}

// Drag moves table n to the snapped drop point, given relative to the canvas.
// Overlapping another table is allowed.
func (s *Session) Drag(n int, drop service.Position) (service.Position, error) {
	if s.phase != PhaseEditing && s.phase != PhaseOptimizing {
		return service.Position{}, fmt.Errorf("%w: drag while %s", ErrInvalidTransition, s.phase)
	}
	for i := range s.tables {
		if s.tables[i].Number == n {
			pos := Snap(drop, s.canvas, s.unit)
			s.tables[i].Position = pos
			return pos, nil
		}
	}
	return service.Position{}, fmt.Errorf("%w: table %d", ErrUnknownTable, n)
}

// Optimize shrinks the canvas around the current tables.
func (s *Session) Optimize() (Canvas, error) {
	if s.phase != PhaseEditing && s.phase != PhaseOptimizing {
		return Canvas{}, fmt.Errorf("%w: optimize while %s", ErrInvalidTransition, s.phase)
	}
	s.tables, s.canvas = Optimize(s.tables, s.unit)
	s.phase = PhaseOptimizing
	return s.canvas, nil
}

// Tables returns the records to persist, keyed by restaurant and table number.
func (s *Session) Tables() ([]service.Table, error) {
	if s.phase != PhaseEditing && s.phase != PhaseOptimizing {
		return nil, fmt.Errorf("%w: save while %s", ErrInvalidTransition, s.phase)
	}
	return ToTables(s.restaurantID, s.tables)
}

// MarkSaved ends the session.
func (s *Session) MarkSaved() error {
	if s.phase != PhaseEditing && s.phase != PhaseOptimizing {
		return fmt.Errorf("%w: save while %s", ErrInvalidTransition, s.phase)
	}
	s.phase = PhaseSaved
	return nil
}

func (s *Session) View() View {
	return View{
		RestaurantID: s.restaurantID,
		Phase:        s.phase,
		GridUnit:     s.unit,
		Canvas:       s.canvas,
		Tables:       clonePlacements(s.tables),
	}
}

// ToTables converts placements to table records, rejecting invalid or duplicate numbers
// and layouts larger than MaxTables.
func ToTables(restaurantID string, placements []Placement) ([]service.Table, error) {
	if len(placements) > MaxTables {
		return nil, fmt.Errorf("%w: %d tables", ErrInvalidTableCount, len(placements))
	}
	if dups := DuplicateNumbers(placements); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateTable, dups)
	}
	sorted := clonePlacements(placements)
	SortPlacements(sorted)
	out := make([]service.Table, 0, len(sorted))
	for _, p := range sorted {
		if p.Number <= 0 {
			return nil, fmt.Errorf("%w: table number %d", service.ErrValidation, p.Number)
		}
		out = append(out, service.Table{
			ID:           service.TableDocID(restaurantID, p.Number),
			RestaurantID: restaurantID,
			Number:       p.Number,
			Position:     p.Position,
		})
	}
	return out, nil
}
