// Package domain holds the table layout geometry: grid sizing, initial placement,
// drag snapping and bounding-box optimization.
package domain

import (
	"math"
	"sort"

	service "tableside/internal/modules/service/domain"
)

const (
	// Columns is the number of tables per row in a generated layout.
	Columns = 5
	// PaddingUnits is the grid padding kept around the tables on every side.
	PaddingUnits = 2
	// MaxTables bounds the size of one restaurant layout.
	MaxTables = 200

	MinCanvasWidth      = 800.0
	MinCanvasHeight     = 600.0
	DefaultCanvasWidth  = 1600.0
	DefaultCanvasHeight = 1000.0
)

// Canvas is the drawing area of the layout editor, in canvas units.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultCanvas is used when there are no tables or the viewport is unknown.
func DefaultCanvas() Canvas {
	return Canvas{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight}
}

func (c Canvas) measurable() bool {
	return c.Width > 0 && c.Height > 0
}

// Placement is a table number at a canvas position.
type Placement struct {
	Number   int              `json:"tableNumber"`
	Position service.Position `json:"position"`
}

// GridUnit returns the snap spacing for a layout of n tables. Denser layouts get finer grids.
func GridUnit(n int) float64 {
	switch {
	case n <= 10:
		return 48
	case n <= 20:
		return 40
	case n <= 30:
		return 32
	default:
		return 24
	}
}

// InitialPositions lays tables 1..n out in rows of Columns, one grid unit away from
// the origin, with an empty cell between neighbours.
func InitialPositions(n int, unit float64) []Placement {
	if n <= 0 {
		return nil
	}
	spacing := 2 * unit
	out := make([]Placement, 0, n)
	for i := 0; i < n; i++ {
		row, col := i/Columns, i%Columns
		out = append(out, Placement{
			Number:   i + 1,
			Position: service.Position{X: unit + float64(col)*spacing, Y: unit + float64(row)*spacing},
		})
	}
	return out
}

// Snap rounds a drop point to the nearest grid intersection and clamps it into
// [unit, dimension-unit] on each axis. The result is always a multiple of unit.
func Snap(drop service.Position, canvas Canvas, unit float64) service.Position {
	return service.Position{
		X: snapAxis(drop.X, canvas.Width, unit),
		Y: snapAxis(drop.Y, canvas.Height, unit),
	}
}

func snapAxis(v, dim, unit float64) float64 {
	if unit <= 0 {
		return v
	}
	lo := unit
	hi := math.Floor((dim-unit)/unit) * unit
	snapped := math.Round(v/unit) * unit
	if hi < lo {
		return lo
	}
	return math.Min(math.Max(snapped, lo), hi)
}

// Bounds is the axis-aligned box around a set of positions.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsOf returns false when there are no placements.
func BoundsOf(placements []Placement) (Bounds, bool) {
	if len(placements) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, p := range placements {
		b.MinX = math.Min(b.MinX, p.Position.X)
		b.MinY = math.Min(b.MinY, p.Position.Y)
		b.MaxX = math.Max(b.MaxX, p.Position.X)
		b.MaxY = math.Max(b.MaxY, p.Position.Y)
	}
	return b, true
}

// Optimize fits the canvas tightly around the tables. The box corners are floored and
// ceiled to the grid, padded by PaddingUnits on every side and never smaller than
// 800x600; positions are shifted so the box origin becomes the canvas origin.
// Running it again without moving tables yields the same canvas.
func Optimize(placements []Placement, unit float64) ([]Placement, Canvas) {
	b, ok := BoundsOf(placements)
	if !ok || unit <= 0 {
		return clonePlacements(placements), DefaultCanvas()
	}
	pad := PaddingUnits * unit
	originX := math.Floor(b.MinX/unit)*unit - pad
	originY := math.Floor(b.MinY/unit)*unit - pad
	endX := math.Ceil(b.MaxX/unit)*unit + pad
	endY := math.Ceil(b.MaxY/unit)*unit + pad

	canvas := Canvas{
		Width:  math.Max(endX-originX, MinCanvasWidth),
		Height: math.Max(endY-originY, MinCanvasHeight),
	}
	out := make([]Placement, 0, len(placements))
	for _, p := range placements {
		out = append(out, Placement{
			Number:   p.Number,
			Position: service.Position{X: p.Position.X - originX, Y: p.Position.Y - originY},
		})
	}
	return out, canvas
}

// CanvasFor sizes the editor canvas: the viewport, grown until every table plus its
// cell and PaddingUnits of padding fits. Without tables the default canvas is used.
func CanvasFor(placements []Placement, unit float64, viewport Canvas) Canvas {
	b, ok := BoundsOf(placements)
	if !ok {
		return DefaultCanvas()
	}
	canvas := viewport
	if !canvas.measurable() {
		canvas = DefaultCanvas()
	}
	edge := unit + PaddingUnits*unit
	canvas.Width = math.Max(canvas.Width, b.MaxX+edge)
	canvas.Height = math.Max(canvas.Height, b.MaxY+edge)
	return canvas
}

// DuplicateNumbers returns the table numbers used more than once, ascending.
func DuplicateNumbers(placements []Placement) []int {
	seen := make(map[int]int, len(placements))
	for _, p := range placements {
		seen[p.Number]++
	}
	var dups []int
	for n, count := range seen {
		if count > 1 {
			dups = append(dups, n)
		}
	}
	sort.Ints(dups)
	return dups
}

// SortPlacements orders placements by table number.
func SortPlacements(placements []Placement) {
	sort.SliceStable(placements, func(i, j int) bool { return placements[i].Number < placements[j].Number })
}

func clonePlacements(in []Placement) []Placement {
	if in == nil {
		return nil
	}
	return append([]Placement(nil), in...)
}
