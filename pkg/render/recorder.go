// Package render draws finished runs: a trajectory snapshot and a cost
// history as PNG through gonum/plot, and an interactive HTML page through
// go-echarts.
package render

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/dwa"
	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

// Sample is what the recorder keeps of one tick.
type Sample struct {
	Tick      int
	Time      float64
	Command   robot.Command
	Costs     dwa.Costs
	Clearance float64
	Deadlock  bool
	Unstuck   bool
}

// Scene is everything drawn in a trajectory snapshot.
type Scene struct {
	Obstacles  obstacle.Snapshot
	GlobalPath []r2.Vec
	Driven     []robot.State
	Predicted  []robot.State
	Goal       r2.Vec
	Shape      robot.Shape
}

// Recorder is an observer that keeps the per-tick costs and the latest
// tick of a run.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
	last    navigate.Tick
	seen    bool
}

func (r *Recorder) OnTick(t navigate.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{
		Tick:      t.N,
		Time:      t.Time,
		Command:   t.Control.Command,
		Costs:     t.Control.Costs,
		Clearance: t.Control.Clearance,
		Deadlock:  t.Control.Deadlock,
		Unstuck:   t.Control.Unstuck,
	})
	r.last = t
	r.seen = true
}

// Samples returns a copy of the recorded samples.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Scene builds the snapshot at the latest tick. ok is false before the
// first tick.
func (r *Recorder) Scene(globalPath []r2.Vec, shape robot.Shape) (s Scene, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seen {
		return Scene{}, false
	}
	return Scene{
		Obstacles:  r.last.Obstacles,
		GlobalPath: globalPath,
		Driven:     r.last.History,
		Predicted:  r.last.Control.Trajectory,
		Goal:       r.last.Goal,
		Shape:      shape,
	}, true
}
