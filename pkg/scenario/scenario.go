// Package scenario describes a navigation problem: where the robot starts,
// where it must go, the static map, and obstacles that appear during the run.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/gridplan"
	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

// ErrInvalidScenario is wrapped by every scenario validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Point is a JSON friendly 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec converts p to a gonum vector.
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Wall is a row of unit obstacles.
type Wall struct {
	From  Point `json:"from"`
	Step  Point `json:"step"`
	Count int   `json:"count"`
}

// Obstacles expands the wall into its points.
func (w Wall) Obstacles() []obstacle.Obstacle {
	return obstacle.Line(w.From.X, w.From.Y, w.Step.X, w.Step.Y, w.Count)
}

// Injection adds obstacles once a tick has been run. AtTick 0 adds them
// after the global path is planned but before the first tick, so the
// planner never sees them.
type Injection struct {
	AtTick    int                 `json:"at_tick"`
	Obstacles []obstacle.Obstacle `json:"obstacles"`
}

// Grid holds the global planner settings.
type Grid struct {
	Resolution float64 `json:"resolution"`
	Inflation  float64 `json:"inflation"`
	Pad        float64 `json:"pad"` // margin around start and goal when deriving the bounds
}

// Scenario is a complete navigation problem.
type Scenario struct {
	Name       string              `json:"name"`
	Start      robot.State         `json:"start"`
	Goal       Point               `json:"goal"`
	Border     int                 `json:"border,omitempty"` // side of a bordered square arena, 0 for none
	Walls      []Wall              `json:"walls,omitempty"`
	Obstacles  []obstacle.Obstacle `json:"obstacles,omitempty"`
	Grid       Grid                `json:"grid"`
	Injections []Injection         `json:"injections,omitempty"`
}

// Validate checks the scenario before it is built.
func (s Scenario) Validate() error {
	if !(s.Grid.Resolution > 0) {
		return fmt.Errorf("%w: grid resolution must be positive, got %g", ErrInvalidScenario, s.Grid.Resolution)
	}
	if s.Grid.Inflation < 0 || s.Grid.Pad < 0 {
		return fmt.Errorf("%w: grid inflation and pad must be non-negative", ErrInvalidScenario)
	}
	if s.Border < 0 {
		return fmt.Errorf("%w: border size must be non-negative, got %d", ErrInvalidScenario, s.Border)
	}
	for i, w := range s.Walls {
		if w.Count <= 0 {
			return fmt.Errorf("%w: wall %d has no points", ErrInvalidScenario, i)
		}
	}
	if err := checkRadii("obstacle", s.Obstacles); err != nil {
		return err
	}
	for i, inj := range s.Injections {
		if inj.AtTick < 0 {
			return fmt.Errorf("%w: injection %d at negative tick %d", ErrInvalidScenario, i, inj.AtTick)
		}
		if err := checkRadii(fmt.Sprintf("injection %d obstacle", i), inj.Obstacles); err != nil {
			return err
		}
	}
	return nil
}

func checkRadii(what string, obs []obstacle.Obstacle) error {
	for i, o := range obs {
		if o.Default {
			continue
		}
		if !(o.Radius > 0) || math.IsInf(o.Radius, 1) {
			return fmt.Errorf("%w: %s %d has radius %g", ErrInvalidScenario, what, i, o.Radius)
		}
	}
	return nil
}

// StaticObstacles returns the map known before the run: border, walls and
// listed obstacles.
func (s Scenario) StaticObstacles() []obstacle.Obstacle {
	var obs []obstacle.Obstacle
	if s.Border > 0 {
		obs = append(obs, obstacle.Border(s.Border)...)
	}
	for _, w := range s.Walls {
		obs = append(obs, w.Obstacles()...)
	}
	return append(obs, s.Obstacles...)
}

// Load reads a scenario from a JSON file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the scenario as indented JSON.
func (s *Scenario) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Prepared is a scenario with its obstacle set built and global path planned.
type Prepared struct {
	Scenario *Scenario
	Config   robot.Config
	Set      *obstacle.Set
	Path     []r2.Vec
	Bounds   gridplan.Bounds

	pending map[int][]obstacle.Obstacle
}

// Build creates the obstacle set, plans the global path over the static map
// and then applies the tick 0 injections.
func (s *Scenario) Build(cfg robot.Config) (*Prepared, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	set, err := obstacle.NewSet(cfg.ObstacleRadius, s.StaticObstacles()...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	pts := set.Snapshot().Points()
	start, goal := s.Start.Position(), s.Goal.Vec()
	opts := gridplan.Options{
		Resolution:      s.Grid.Resolution,
		InflationRadius: s.Grid.Inflation,
		Bounds:          gridplan.BoundsFor(pts, start, goal, s.Grid.Pad),
	}
	path, err := gridplan.Plan(pts, opts, start, goal)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: plan global path: %w", s.Name, err)
	}

	p := &Prepared{
		Scenario: s,
		Config:   cfg,
		Set:      set,
		Path:     path,
		Bounds:   opts.Bounds,
		pending:  make(map[int][]obstacle.Obstacle),
	}
	for _, inj := range s.Injections {
		if inj.AtTick == 0 {
			if err := set.Add(inj.Obstacles...); err != nil {
				return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
			}
			continue
		}
		p.pending[inj.AtTick] = append(p.pending[inj.AtTick], inj.Obstacles...)
	}
	return p, nil
}

// PendingTicks returns the ticks after which obstacles will be injected.
func (p *Prepared) PendingTicks() []int {
	ticks := make([]int, 0, len(p.pending))
	for t := range p.pending {
		ticks = append(ticks, t)
	}
	sort.Ints(ticks)
	return ticks
}

// Sequencer creates the goal sequencer for the prepared scenario.
func (p *Prepared) Sequencer(opts navigate.Options) (*navigate.Sequencer, error) {
	return navigate.NewSequencer(p.Path, p.Scenario.Start, p.Config, p.Set, opts)
}

// Injector returns an observer that queues the timed injections on seq.
// Observers run between ticks, so a batch too large for the injection
// queue is added to the set directly. A batch the set rejects is logged
// and dropped.
func (p *Prepared) Injector(seq *navigate.Sequencer) navigate.Observer {
	return navigate.ObserverFunc(func(t navigate.Tick) {
		obs, ok := p.pending[t.N]
		if !ok {
			return
		}
		for i, o := range obs {
			if err := seq.Inject(o); err != nil {
				if err := p.Set.Add(obs[i:]...); err != nil {
					log.Printf("tick %d: dropping %d injected obstacles: %v", t.N, len(obs)-i, err)
				}
				return
			}
		}
	})
}
