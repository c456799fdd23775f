package domain

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	service "tableside/internal/modules/service/domain"
)

func TestGridUnit(t *testing.T) {
	t.Parallel()
	cases := []struct {
		count int
		unit  float64
	}{
		{1, 48}, {10, 48}, {11, 40}, {12, 40}, {20, 40}, {21, 32}, {30, 32}, {31, 24}, {200, 24},
	}
	for _, tc := range cases {
		if got := GridUnit(tc.count); got != tc.unit {
			t.Fatalf("GridUnit(%d) = %v, want %v", tc.count, got, tc.unit)
		}
	}
}

func TestInitialPositionsTwelveTables(t *testing.T) {
	t.Parallel()
	unit := GridUnit(12)
	if unit != 40 {
		t.Fatalf("unit = %v, want 40", unit)
	}
	placements := InitialPositions(12, unit)
	if len(placements) != 12 {
		t.Fatalf("len = %d, want 12", len(placements))
	}

	rows := map[float64][]int{}
	for _, p := range placements {
		rows[p.Position.Y] = append(rows[p.Position.Y], p.Number)
	}
	want := map[float64][]int{
		40:  {1, 2, 3, 4, 5},
		120: {6, 7, 8, 9, 10},
		200: {11, 12},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v", rows)
	}
	for y, numbers := range want {
		got := rows[y]
		if len(got) != len(numbers) {
			t.Fatalf("row y=%v = %v, want %v", y, got, numbers)
		}
		for i := range numbers {
			if got[i] != numbers[i] {
				t.Fatalf("row y=%v = %v, want %v", y, got, numbers)
			}
		}
	}
	if p := placements[4].Position; p.X != 360 {
		t.Fatalf("table 5 x = %v, want 360", p.X)
	}
	if p := placements[11].Position; p.X != 120 || p.Y != 200 {
		t.Fatalf("table 12 = %+v", p)
	}
}

func TestSnapStaysOnGridInsideCanvas(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	canvases := []Canvas{{Width: 800, Height: 600}, {Width: 1600, Height: 1000}, {Width: 1013, Height: 777}}
	for _, unit := range []float64{48, 40, 32, 24} {
		for _, canvas := range canvases {
			for i := 0; i < 500; i++ {
				drop := service.Position{X: rng.Float64()*canvas.Width*1.5 - 200, Y: rng.Float64()*canvas.Height*1.5 - 200}
				got := Snap(drop, canvas, unit)
				for _, axis := range []struct{ v, dim float64 }{{got.X, canvas.Width}, {got.Y, canvas.Height}} {
					if math.Mod(axis.v, unit) != 0 {
						t.Fatalf("Snap(%+v) = %+v: %v not a multiple of %v", drop, got, axis.v, unit)
					}
					if axis.v < unit || axis.v > axis.dim-unit {
						t.Fatalf("Snap(%+v) = %+v outside [%v, %v]", drop, got, unit, axis.dim-unit)
					}
				}
			}
		}
	}
}

func TestSnapNearestIntersection(t *testing.T) {
	t.Parallel()
	canvas := Canvas{Width: 800, Height: 600}
	cases := []struct {
		drop service.Position
		want service.Position
	}{
		{drop: service.Position{X: 70, Y: 100}, want: service.Position{X: 48, Y: 96}},
		{drop: service.Position{X: 73, Y: 121}, want: service.Position{X: 96, Y: 144}},
		{drop: service.Position{X: -30, Y: 5}, want: service.Position{X: 48, Y: 48}},
		{drop: service.Position{X: 5000, Y: 5000}, want: service.Position{X: 720, Y: 528}},
	}
	for _, tc := range cases {
		if got := Snap(tc.drop, canvas, 48); got != tc.want {
			t.Fatalf("Snap(%+v) = %+v, want %+v", tc.drop, got, tc.want)
		}
	}
}

func TestOptimizeIsStableWithoutDrags(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		placements []Placement
		unit       float64
		canvas     Canvas
	}{
		{name: "twelve tables fall back to floor", placements: InitialPositions(12, 40), unit: 40, canvas: Canvas{Width: 800, Height: 600}},
		{
			name: "off-grid wide layout",
			placements: []Placement{
				{Number: 1, Position: service.Position{X: 100, Y: 100}},
				{Number: 2, Position: service.Position{X: 1000, Y: 700}},
			},
			unit:   48,
			canvas: Canvas{Width: 1104, Height: 816},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first, canvas := Optimize(tc.placements, tc.unit)
			if canvas != tc.canvas {
				t.Fatalf("canvas = %+v, want %+v", canvas, tc.canvas)
			}
			second, again := Optimize(first, tc.unit)
			if again != canvas {
				t.Fatalf("second canvas = %+v, want %+v", again, canvas)
			}
			for i := range first {
				if first[i] != second[i] {
					t.Fatalf("placement %d moved: %+v -> %+v", i, first[i], second[i])
				}
			}
		})
	}
}

func TestOptimizeMovesBoxToOrigin(t *testing.T) {
	t.Parallel()
	placements, _ := Optimize([]Placement{
		{Number: 1, Position: service.Position{X: 480, Y: 384}},
		{Number: 2, Position: service.Position{X: 576, Y: 432}},
	}, 48)
	if got := placements[0].Position; got.X != 96 || got.Y != 96 {
		t.Fatalf("table 1 = %+v, want padding offset 96,96", got)
	}
	if got := placements[1].Position; got.X != 192 || got.Y != 144 {
		t.Fatalf("table 2 = %+v", got)
	}
}

func TestCanvasFor(t *testing.T) {
	t.Parallel()
	if got := CanvasFor(nil, 48, Canvas{Width: 900, Height: 700}); got != DefaultCanvas() {
		t.Fatalf("no tables = %+v, want default", got)
	}
	tables := []Placement{{Number: 1, Position: service.Position{X: 1800, Y: 240}}}
	if got := CanvasFor(tables, 48, Canvas{}); got.Width != 1800+3*48 || got.Height != DefaultCanvasHeight {
		t.Fatalf("unmeasurable viewport = %+v", got)
	}
	if got := CanvasFor(tables[:1], 48, Canvas{Width: 2400, Height: 900}); got.Width != 2400 || got.Height != 900 {
		t.Fatalf("fitting viewport = %+v", got)
	}
}

func TestToTablesRejectsDuplicates(t *testing.T) {
	t.Parallel()
	_, err := ToTables("ABC123", []Placement{{Number: 2}, {Number: 1}, {Number: 2}})
	if !errors.Is(err, ErrDuplicateTable) || !errors.Is(err, service.ErrValidation) {
		t.Fatalf("err = %v, want duplicate validation error", err)
	}
	tables, err := ToTables("ABC123", []Placement{{Number: 2}, {Number: 1}})
	if err != nil {
		t.Fatalf("ToTables: %v", err)
	}
	if tables[0].ID != "ABC123_table_1" || tables[1].Number != 2 {
		t.Fatalf("tables = %+v", tables)
	}
}
