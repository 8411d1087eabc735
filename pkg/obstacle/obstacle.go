// Package obstacle holds the point obstacles the planners avoid: a flat,
// append-only set of circles that may grow while a run is in progress.
package obstacle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidRadius is returned when an obstacle is ingested with a zero,
// negative, NaN or infinite radius, or when a set is created without a
// positive default.
var ErrInvalidRadius = errors.New("obstacle radius must be positive")

// Obstacle is a circular obstacle. When Default is set, Radius is ignored
// and the obstacle takes the default radius of the set it is added to;
// otherwise Radius must be positive. Obstacles stored in a set always carry
// their resolved radius with Default cleared.
//
// In JSON a missing "radius" key means Default; an explicit radius, zero
// included, is taken as given.
type Obstacle struct {
	X       float64
	Y       float64
	Radius  float64
	Default bool
}

// At returns an obstacle at (x, y) with the set default radius.
func At(x, y float64) Obstacle {
	return Obstacle{X: x, Y: y, Default: true}
}

type obstacleJSON struct {
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Radius *float64 `json:"radius,omitempty"`
}

// MarshalJSON omits the radius of a Default obstacle.
func (o Obstacle) MarshalJSON() ([]byte, error) {
	w := obstacleJSON{X: o.X, Y: o.Y}
	if !o.Default {
		r := o.Radius
		w.Radius = &r
	}
	return json.Marshal(w)
}

func (o *Obstacle) UnmarshalJSON(data []byte) error {
	var w obstacleJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Obstacle{X: w.X, Y: w.Y, Default: w.Radius == nil}
	if w.Radius != nil {
		o.Radius = *w.Radius
	}
	return nil
}

// Center returns the obstacle center.
func (o Obstacle) Center() r2.Vec {
	return r2.Vec{X: o.X, Y: o.Y}
}

// Set is an append-only obstacle collection, safe for concurrent use.
// Obstacles are never removed or edited once added.
type Set struct {
	defaultRadius float64

	mu    sync.RWMutex
	items []Obstacle
}

// NewSet creates a set whose obstacles default to defaultRadius.
func NewSet(defaultRadius float64, initial ...Obstacle) (*Set, error) {
	if !(defaultRadius > 0) || math.IsInf(defaultRadius, 1) {
		return nil, fmt.Errorf("%w: default radius %g", ErrInvalidRadius, defaultRadius)
	}
	s := &Set{defaultRadius: defaultRadius}
	if err := s.Add(initial...); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultRadius returns the radius given to obstacles added without one.
func (s *Set) DefaultRadius() float64 {
	return s.defaultRadius
}

// Add appends obstacles to the set. Either all of them are added or, if any
// has an invalid radius, none are.
func (s *Set) Add(obs ...Obstacle) error {
	if len(obs) == 0 {
		return nil
	}
	resolved := make([]Obstacle, len(obs))
	for i, o := range obs {
		r, err := s.resolveRadius(o)
		if err != nil {
			return fmt.Errorf("obstacle at (%g, %g): %w", o.X, o.Y, err)
		}
		resolved[i] = Obstacle{X: o.X, Y: o.Y, Radius: r}
	}

	s.mu.Lock()
	s.items = append(s.items, resolved...)
	s.mu.Unlock()
	return nil
}

func (s *Set) resolveRadius(o Obstacle) (float64, error) {
	if o.Default {
		return s.defaultRadius, nil
	}
	if !(o.Radius > 0) || math.IsInf(o.Radius, 1) {
		return 0, fmt.Errorf("%w: got %g", ErrInvalidRadius, o.Radius)
	}
	return o.Radius, nil
}

// Len returns the number of obstacles currently in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns the obstacles added so far. The snapshot shares storage
// with the set but is capped, so later additions never show up in it.
func (s *Set) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.items)
	return Snapshot(s.items[:n:n])
}

// Snapshot is an immutable view of a Set at one point in time. Every
// obstacle in a snapshot has a positive radius. Callers must not modify it.
type Snapshot []Obstacle

// Points returns the obstacle centers.
func (sn Snapshot) Points() []r2.Vec {
	pts := make([]r2.Vec, len(sn))
	for i, o := range sn {
		pts[i] = o.Center()
	}
	return pts
}

// MinDistance returns the distance from p to the nearest obstacle center,
// or +Inf for an empty snapshot.
func (sn Snapshot) MinDistance(p r2.Vec) float64 {
	best := math.Inf(1)
	for _, o := range sn {
		if d := math.Hypot(o.X-p.X, o.Y-p.Y); d < best {
			best = d
		}
	}
	return best
}

// Nearest returns the obstacle whose center is closest to p.
func (sn Snapshot) Nearest(p r2.Vec) (Obstacle, bool) {
	if len(sn) == 0 {
		return Obstacle{}, false
	}
	best, bestDist := sn[0], math.Inf(1)
	for _, o := range sn {
		if d := math.Hypot(o.X-p.X, o.Y-p.Y); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best, true
}

// MaxRadius returns the largest obstacle radius, or 0 when empty.
func (sn Snapshot) MaxRadius() float64 {
	var r float64
	for _, o := range sn {
		r = math.Max(r, o.Radius)
	}
	return r
}

// Bounds returns the axis-aligned box spanned by the obstacle centers.
func (sn Snapshot) Bounds() (lo, hi r2.Vec, ok bool) {
	if len(sn) == 0 {
		return r2.Vec{}, r2.Vec{}, false
	}
	lo = sn[0].Center()
	hi = lo
	for _, o := range sn[1:] {
		lo.X = math.Min(lo.X, o.X)
		lo.Y = math.Min(lo.Y, o.Y)
		hi.X = math.Max(hi.X, o.X)
		hi.Y = math.Max(hi.Y, o.Y)
	}
	return lo, hi, true
}
