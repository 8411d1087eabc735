// Package telemetry publishes navigation ticks to external consumers: JSON
// lines on any writer or serial port, and a websocket hub that also accepts
// obstacles from its clients.
package telemetry

import (
	"math"

	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/robot"
)

// Costs mirrors dwa.Costs with infinite values left out.
type Costs struct {
	Goal     float64  `json:"goal"`
	Speed    float64  `json:"speed"`
	Obstacle *float64 `json:"obstacle,omitempty"`
	Total    *float64 `json:"total,omitempty"`
}

// Frame is the wire form of one tick.
type Frame struct {
	Tick       int           `json:"tick"`
	Time       float64       `json:"t"`
	State      robot.State   `json:"state"`
	Command    robot.Command `json:"cmd"`
	Goal       [2]float64    `json:"goal"`
	GoalIndex  int           `json:"goal_index"`
	Final      bool          `json:"final"`
	Phase      string        `json:"phase"`
	Costs      Costs         `json:"costs"`
	Clearance  *float64      `json:"clearance,omitempty"` // omitted when nothing is in reach
	Deadlock   bool          `json:"deadlock,omitempty"`
	Unstuck    bool          `json:"unstuck,omitempty"`
	Skipped    []int         `json:"skipped,omitempty"`
	Obstacles  int           `json:"obstacles"`
	Trajectory [][2]float64  `json:"trajectory"`
}

// NewFrame converts t.
func NewFrame(t navigate.Tick) Frame {
	traj := make([][2]float64, len(t.Control.Trajectory))
	for i, s := range t.Control.Trajectory {
		traj[i] = [2]float64{s.X, s.Y}
	}
	return Frame{
		Tick:      t.N,
		Time:      t.Time,
		State:     t.State,
		Command:   t.Control.Command,
		Goal:      [2]float64{t.Goal.X, t.Goal.Y},
		GoalIndex: t.GoalIndex,
		Final:     t.Final,
		Phase:     t.Phase.String(),
		Costs: Costs{
			Goal:     t.Control.Costs.Goal,
			Speed:    t.Control.Costs.Speed,
			Obstacle: finite(t.Control.Costs.Obstacle),
			Total:    finite(t.Control.Costs.Total),
		},
		Clearance:  finite(t.Control.Clearance),
		Deadlock:   t.Control.Deadlock,
		Unstuck:    t.Control.Unstuck,
		Skipped:    t.Skipped,
		Obstacles:  len(t.Obstacles),
		Trajectory: traj,
	}
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
