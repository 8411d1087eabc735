// Package collision implements the overlap tests between the robot footprint
// and circular obstacles, and the forward simulation that finds how far the
// robot can travel along a constant command before it hits something.
package collision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

// CircleOverlapsCircle reports whether two circles touch or overlap.
func CircleOverlapsCircle(c1 r2.Vec, radius1 float64, c2 r2.Vec, radius2 float64) bool {
	return math.Hypot(c1.X-c2.X, c1.Y-c2.Y) <= radius1+radius2
}

// CircleOverlapsRotatedBox reports whether a circle touches or overlaps a
// box of the given length and width, centered on boxCenter and rotated
// counter-clockwise by rotation radians. Length runs along the rotated X axis.
func CircleOverlapsRotatedBox(center r2.Vec, radius float64, boxCenter r2.Vec, length, width, rotation float64) bool {
	// circle center in the box frame
	dx, dy := center.X-boxCenter.X, center.Y-boxCenter.Y
	cos, sin := math.Cos(rotation), math.Sin(rotation)
	lx := dx*cos + dy*sin
	ly := -dx*sin + dy*cos

	cx := clamp(lx, -length/2, length/2)
	cy := clamp(ly, -width/2, width/2)
	ex, ey := lx-cx, ly-cy
	return ex*ex+ey*ey <= radius*radius
}

// ShapeOverlaps reports whether the robot footprint at pose overlaps o.
// A rectangular footprint is rotated by the pose heading.
func ShapeOverlaps(shape robot.Shape, pose robot.State, o obstacle.Obstacle) bool {
	if shape.Kind == robot.ShapeRectangle {
		return CircleOverlapsRotatedBox(o.Center(), o.Radius, pose.Position(), shape.Length, shape.Width, pose.Heading)
	}
	return CircleOverlapsCircle(pose.Position(), shape.Radius, o.Center(), o.Radius)
}

// AnyOverlap reports whether the footprint at pose overlaps any obstacle.
func AnyOverlap(shape robot.Shape, pose robot.State, obs obstacle.Snapshot) bool {
	for _, o := range obs {
		if ShapeOverlaps(shape, pose, o) {
			return true
		}
	}
	return false
}

// DistanceToNearestCollision simulates the robot from s under cmd in steps
// of cfg.DT for cfg.CheckTime seconds. At the first step whose pose
// overlaps an obstacle it returns the arc length travelled and time elapsed
// before that step; if nothing is hit it returns (+Inf, +Inf).
func DistanceToNearestCollision(s robot.State, obs obstacle.Snapshot, cmd robot.Command, cfg robot.Config) (dist, t float64) {
	near := Reachable(s, obs, cmd, cfg)
	if len(near) == 0 {
		return math.Inf(1), math.Inf(1)
	}

	steps := CheckSteps(cfg)
	speed := math.Abs(cmd.V)
	for i := 0; i < steps; i++ {
		s = robot.Integrate(s, cmd, cfg.DT)
		if AnyOverlap(cfg.Shape, s, near) {
			return dist, t
		}
		t += cfg.DT
		dist += speed * cfg.DT
	}
	return math.Inf(1), math.Inf(1)
}

// CheckSteps returns the number of simulation steps covering cfg.CheckTime.
func CheckSteps(cfg robot.Config) int {
	return int(math.Ceil(cfg.CheckTime/cfg.DT - 1e-9))
}

// Reachable drops the obstacles that the robot cannot touch while driving
// cmd for the check horizon. The robot center never moves farther than
// |v|·(check_time + dt) from where it starts, so any obstacle beyond that
// plus the footprint and obstacle radii is out of reach.
func Reachable(s robot.State, obs obstacle.Snapshot, cmd robot.Command, cfg robot.Config) obstacle.Snapshot {
	reach := math.Abs(cmd.V)*(cfg.CheckTime+cfg.DT) + cfg.Shape.BoundingRadius()

	var near obstacle.Snapshot
	for _, o := range obs {
		limit := reach + o.Radius
		if math.Hypot(o.X-s.X, o.Y-s.Y) <= limit {
			near = append(near, o)
		}
	}
	return near
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
