// Package robot provides the robot model: footprint shape, pose and velocity
// state, the unicycle motion model, and the planner configuration.
package robot

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ShapeKind identifies the footprint variant of a robot.
type ShapeKind string

// Supported footprint variants.
const (
	ShapeCircle    ShapeKind = "circle"
	ShapeRectangle ShapeKind = "rectangle"
)

// AllShapeKinds returns all shape kinds in display order.
func AllShapeKinds() []ShapeKind {
	return []ShapeKind{
		ShapeCircle,
		ShapeRectangle,
	}
}

// Shape is the robot footprint. Kind selects which dimensions apply:
// Radius for circles, Length and Width for rectangles. Build shapes with
// Circle or Rectangle so the kind and its dimensions are set together.
type Shape struct {
	Kind   ShapeKind `json:"kind"`
	Radius float64   `json:"radius,omitempty"`
	Length float64   `json:"length,omitempty"` // along the heading
	Width  float64   `json:"width,omitempty"`  // across the heading
}

// Circle returns a circular footprint of the given radius.
func Circle(radius float64) Shape {
	return Shape{Kind: ShapeCircle, Radius: radius}
}

// Rectangle returns a rectangular footprint; length runs along the heading.
func Rectangle(length, width float64) Shape {
	return Shape{Kind: ShapeRectangle, Length: length, Width: width}
}

// Validate reports whether the kind is known and its dimensions are positive.
// Dimensions belonging to the other variant must be unset.
func (s Shape) Validate() error {
	switch s.Kind {
	case ShapeCircle:
		if !finitePositive(s.Radius) {
			return fmt.Errorf("%w: circle shape needs a positive radius, got %g", ErrInvalidConfig, s.Radius)
		}
		if s.Length != 0 || s.Width != 0 {
			return fmt.Errorf("%w: circle shape must not set length or width", ErrInvalidConfig)
		}
	case ShapeRectangle:
		if !finitePositive(s.Length) || !finitePositive(s.Width) {
			return fmt.Errorf("%w: rectangle shape needs positive length and width, got %gx%g",
				ErrInvalidConfig, s.Length, s.Width)
		}
		if s.Radius != 0 {
			return fmt.Errorf("%w: rectangle shape must not set radius", ErrInvalidConfig)
		}
	case "":
		return fmt.Errorf("%w: shape kind is missing", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown shape kind %q", ErrInvalidConfig, s.Kind)
	}
	return nil
}

// finitePositive is false for NaN and infinities as well as for values <= 0.
func finitePositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// BoundingRadius returns the radius of the smallest circle around the robot
// center that contains the whole footprint.
func (s Shape) BoundingRadius() float64 {
	if s.Kind == ShapeRectangle {
		return math.Hypot(s.Length/2, s.Width/2)
	}
	return s.Radius
}

// UnmarshalJSON replaces the whole shape so that decoding a circle over a
// rectangle default does not leave stale rectangle dimensions behind.
func (s *Shape) UnmarshalJSON(data []byte) error {
	type plain Shape
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Shape(p)
	return nil
}

func (s Shape) String() string {
	if s.Kind == ShapeRectangle {
		return fmt.Sprintf("rectangle %gx%g", s.Length, s.Width)
	}
	return fmt.Sprintf("circle r=%g", s.Radius)
}

// Outline returns the footprint boundary at pose p as a closed polygon, the
// first vertex repeated at the end. Circles are approximated by 36 segments.
func (s Shape) Outline(p State) []r2.Vec {
	center := p.Position()
	if s.Kind == ShapeRectangle {
		hl, hw := s.Length/2, s.Width/2
		corners := []r2.Vec{{X: hl, Y: hw}, {X: -hl, Y: hw}, {X: -hl, Y: -hw}, {X: hl, Y: -hw}, {X: hl, Y: hw}}
		for i, c := range corners {
			corners[i] = r2.Add(center, r2.Rotate(c, p.Heading, r2.Vec{}))
		}
		return corners
	}
	const segments = 36
	pts := make([]r2.Vec, segments+1)
	for i := range pts {
		a := 2 * math.Pi * float64(i%segments) / segments
		pts[i] = r2.Add(center, r2.Vec{X: s.Radius * math.Cos(a), Y: s.Radius * math.Sin(a)})
	}
	return pts
}
