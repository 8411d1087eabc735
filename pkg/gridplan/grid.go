// Package gridplan finds a coarse global path over an occupancy grid in which
// every cell near an obstacle point is blocked.
package gridplan

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrNoPath is returned when the goal cell cannot be reached.
	ErrNoPath = errors.New("no path to goal")
	// ErrOutOfBounds is returned when the start or goal lies outside the grid.
	ErrOutOfBounds = errors.New("position outside planning bounds")
	// ErrInvalidOptions is returned for a non-positive resolution, a negative
	// inflation radius or an empty bounding box.
	ErrInvalidOptions = errors.New("invalid planner options")
)

// Bounds is the axis-aligned region covered by the grid.
type Bounds struct {
	Min r2.Vec `json:"min"`
	Max r2.Vec `json:"max"`
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p r2.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// BoundsFor spans the obstacle points and the start and goal positions,
// each padded by pad on every side.
func BoundsFor(obstacles []r2.Vec, start, goal r2.Vec, pad float64) Bounds {
	b := Bounds{
		Min: r2.Vec{X: math.Min(start.X, goal.X) - pad, Y: math.Min(start.Y, goal.Y) - pad},
		Max: r2.Vec{X: math.Max(start.X, goal.X) + pad, Y: math.Max(start.Y, goal.Y) + pad},
	}
	for _, p := range obstacles {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// Options configures the grid.
type Options struct {
	Resolution      float64 `json:"resolution"`       // cell size
	InflationRadius float64 `json:"inflation_radius"` // cells whose center is this close to an obstacle are blocked
	Bounds          Bounds  `json:"bounds"`
}

func (o Options) validate() error {
	if !(o.Resolution > 0) || math.IsInf(o.Resolution, 1) {
		return fmt.Errorf("%w: resolution must be positive, got %g", ErrInvalidOptions, o.Resolution)
	}
	if !(o.InflationRadius >= 0) {
		return fmt.Errorf("%w: inflation radius must be non-negative, got %g", ErrInvalidOptions, o.InflationRadius)
	}
	b := o.Bounds
	if !(b.Max.X >= b.Min.X) || !(b.Max.Y >= b.Min.Y) {
		return fmt.Errorf("%w: empty bounds %v..%v", ErrInvalidOptions, b.Min, b.Max)
	}
	return nil
}

// Cell addresses one grid cell.
type Cell struct {
	Col, Row int
}

// Grid is an occupancy grid over Options.Bounds. Cell (0, 0) is centered on
// Bounds.Min.
type Grid struct {
	origin  r2.Vec
	res     float64
	cols    int
	rows    int
	blocked []bool
}

// NewGrid rasterizes the obstacle points. A cell is blocked when the
// distance from its center to any obstacle point is at most the inflation
// radius.
func NewGrid(obstacles []r2.Vec, opts Options) (*Grid, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	b := opts.Bounds
	g := &Grid{
		origin: b.Min,
		res:    opts.Resolution,
		cols:   int(math.Round((b.Max.X-b.Min.X)/opts.Resolution)) + 1,
		rows:   int(math.Round((b.Max.Y-b.Min.Y)/opts.Resolution)) + 1,
	}
	g.blocked = make([]bool, g.cols*g.rows)

	infl := opts.InflationRadius
	for _, p := range obstacles {
		// candidate window, one cell wider than needed so rounding never
		// drops a cell that sits exactly on the inflation radius
		c0 := max(0, int(math.Floor((p.X-infl-g.origin.X)/g.res)))
		c1 := min(g.cols-1, int(math.Ceil((p.X+infl-g.origin.X)/g.res)))
		r0 := max(0, int(math.Floor((p.Y-infl-g.origin.Y)/g.res)))
		r1 := min(g.rows-1, int(math.Ceil((p.Y+infl-g.origin.Y)/g.res)))
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				c := g.Position(Cell{col, row})
				if math.Hypot(c.X-p.X, c.Y-p.Y) <= infl {
					g.blocked[g.index(Cell{col, row})] = true
				}
			}
		}
	}
	return g, nil
}

// Size returns the number of columns and rows.
func (g *Grid) Size() (cols, rows int) {
	return g.cols, g.rows
}

// Resolution returns the cell size.
func (g *Grid) Resolution() float64 {
	return g.res
}

// Locate returns the cell whose center is nearest to p.
func (g *Grid) Locate(p r2.Vec) (Cell, bool) {
	c := Cell{
		Col: int(math.Round((p.X - g.origin.X) / g.res)),
		Row: int(math.Round((p.Y - g.origin.Y) / g.res)),
	}
	return c, g.inBounds(c)
}

// Position returns the center of c.
func (g *Grid) Position(c Cell) r2.Vec {
	return r2.Vec{
		X: float64(c.Col)*g.res + g.origin.X,
		Y: float64(c.Row)*g.res + g.origin.Y,
	}
}

// Blocked reports whether c is blocked. Cells outside the grid are blocked.
func (g *Grid) Blocked(c Cell) bool {
	if !g.inBounds(c) {
		return true
	}
	return g.blocked[g.index(c)]
}

func (g *Grid) inBounds(c Cell) bool {
	return c.Col >= 0 && c.Row >= 0 && c.Col < g.cols && c.Row < g.rows
}

func (g *Grid) index(c Cell) int {
	return c.Row*g.cols + c.Col
}
