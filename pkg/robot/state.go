package robot

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// State is the robot pose plus its current velocities.
type State struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"` // radians, counter-clockwise from +X
	V       float64 `json:"v"`       // m/s
	Omega   float64 `json:"omega"`   // rad/s
}

// Command is a velocity command for one control tick.
type Command struct {
	V     float64 `json:"v"`
	Omega float64 `json:"omega"`
}

// Position returns the robot center.
func (s State) Position() r2.Vec {
	return r2.Vec{X: s.X, Y: s.Y}
}

// DistanceTo returns the distance from the robot center to p.
func (s State) DistanceTo(p r2.Vec) float64 {
	return r2.Norm(r2.Sub(p, s.Position()))
}

func (s State) String() string {
	return fmt.Sprintf("(%.2f, %.2f) heading %.1f° v=%.2f ω=%.2f",
		s.X, s.Y, s.Heading*180/math.Pi, s.V, s.Omega)
}

// Integrate advances s by one step of the unicycle model under cmd.
// The heading is updated first and the position follows the new heading;
// the velocity fields are set to the command.
func Integrate(s State, cmd Command, dt float64) State {
	s.Heading += cmd.Omega * dt
	s.X += cmd.V * math.Cos(s.Heading) * dt
	s.Y += cmd.V * math.Sin(s.Heading) * dt
	s.V = cmd.V
	s.Omega = cmd.Omega
	return s
}

// NormalizeAngle wraps a to the range [-π, π].
func NormalizeAngle(a float64) float64 {
	return math.Atan2(math.Sin(a), math.Cos(a))
}
