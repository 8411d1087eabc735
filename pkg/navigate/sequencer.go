// Package navigate walks a global path as a chain of local goals, driving
// the dynamic window controller tick by tick until the final goal is caught.
package navigate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/dwa"
	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

const (
	DefaultMaxTicksPerGoal  = 5000
	DefaultMaxDeadlockTicks = 50
	injectQueueSize         = 256
)

var (
	// ErrTickBudget is returned when a single goal is not caught within
	// Options.MaxTicksPerGoal ticks.
	ErrTickBudget = errors.New("tick budget exhausted")
	// ErrDeadlock is returned after Options.MaxDeadlockTicks consecutive
	// ticks without an admissible command.
	ErrDeadlock = errors.New("controller deadlocked")
	// ErrNoGoals is returned when every remaining waypoint is too close to
	// an obstacle to be used as a goal.
	ErrNoGoals = errors.New("no usable goal")
	// ErrAlreadyStarted is returned when a sequencer is run a second time.
	ErrAlreadyStarted = errors.New("sequencer already started")
	// ErrInjectQueueFull is returned by Inject when obstacles arrive faster
	// than ticks drain them.
	ErrInjectQueueFull = errors.New("obstacle injection queue full")
)

// ControlFunc computes the command for one tick.
type ControlFunc func(s robot.State, cfg robot.Config, goal r2.Vec, obs obstacle.Snapshot) dwa.Result

// Options tunes a Sequencer. The zero value uses the defaults.
type Options struct {
	MaxTicksPerGoal  int
	MaxDeadlockTicks int
	Control          ControlFunc // defaults to dwa.ComputeControl
	Logf             func(format string, args ...any)
}

// Phase is the sequencer state after a tick.
type Phase int

const (
	Approaching Phase = iota
	ReachedLocal
	ReachedFinal
	Deadlock
)

func (p Phase) String() string {
	switch p {
	case Approaching:
		return "approaching"
	case ReachedLocal:
		return "reached local goal"
	case ReachedFinal:
		return "reached final goal"
	case Deadlock:
		return "deadlock"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Tick is emitted once per control step.
type Tick struct {
	N         int
	Time      float64
	State     robot.State
	Control   dwa.Result
	History   []robot.State // every state so far, start included; read-only
	GoalIndex int           // index into the waypoints
	Goal      r2.Vec
	Final     bool // no later waypoint is usable in this tick's snapshot
	Phase     Phase
	GoalTicks int
	Skipped   []int // waypoints skipped while choosing this tick's goal
	Obstacles obstacle.Snapshot
}

// Result summarizes a finished run.
type Result struct {
	Reached   bool
	Ticks     int
	Final     robot.State
	History   []robot.State
	Visited   []int // waypoint indices caught, in order
	Skipped   []int // waypoint indices never approached
	Deadlocks int   // ticks without an admissible command
}

// Observer receives every tick of a run.
type Observer interface {
	OnTick(Tick)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Tick)

func (f ObserverFunc) OnTick(t Tick) { f(t) }

// Sequencer drives the robot through the retained waypoints of a global
// path. It runs once; obstacles may be injected from other goroutines while
// it runs and take effect at the start of the next tick.
type Sequencer struct {
	waypoints []r2.Vec
	cfg       robot.Config
	obstacles *obstacle.Set
	opts      Options
	logf      atomic.Pointer[func(string, ...any)]

	inject  chan obstacle.Obstacle
	started atomic.Bool

	state   robot.State
	history []robot.State
	result  Result
	err     error
}

// NewSequencer prepares a run from start along waypoints. waypoints[0] is
// the start of the global path and is never used as a goal, so a path of
// fewer than two waypoints is a run that has already arrived.
func NewSequencer(waypoints []r2.Vec, start robot.State, cfg robot.Config, obstacles *obstacle.Set, opts Options) (*Sequencer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if obstacles == nil {
		return nil, errors.New("navigate: nil obstacle set")
	}
	if opts.MaxTicksPerGoal <= 0 {
		opts.MaxTicksPerGoal = DefaultMaxTicksPerGoal
	}
	if opts.MaxDeadlockTicks <= 0 {
		opts.MaxDeadlockTicks = DefaultMaxDeadlockTicks
	}
	if opts.Control == nil {
		opts.Control = dwa.ComputeControl
	}

	s := &Sequencer{
		waypoints: append([]r2.Vec(nil), waypoints...),
		cfg:       cfg,
		obstacles: obstacles,
		opts:      opts,
		inject:    make(chan obstacle.Obstacle, injectQueueSize),
		state:     start,
		history:   []robot.State{start},
	}
	s.SetLogger(opts.Logf)
	return s, nil
}

// SetLogger replaces the diagnostic logger. Passing nil mutes it.
func (s *Sequencer) SetLogger(f func(format string, args ...any)) {
	if f == nil {
		f = func(string, ...any) {}
	}
	s.logf.Store(&f)
}

func (s *Sequencer) log(format string, args ...any) {
	(*s.logf.Load())(format, args...)
}

// Waypoints returns the global path the sequencer follows.
func (s *Sequencer) Waypoints() []r2.Vec {
	return s.waypoints
}

// Config returns the planner configuration.
func (s *Sequencer) Config() robot.Config {
	return s.cfg
}

// Inject queues obstacles for the next tick. It never blocks.
func (s *Sequencer) Inject(obs ...obstacle.Obstacle) error {
	for _, o := range obs {
		select {
		case s.inject <- o:
		default:
			return ErrInjectQueueFull
		}
	}
	return nil
}

// Result returns the run summary and the error that ended the run. It is
// valid once the tick sequence is exhausted.
func (s *Sequencer) Result() (Result, error) {
	return s.result, s.err
}

// Run drives the tick sequence to completion, handing each tick to the
// observers in order.
func (s *Sequencer) Run(ctx context.Context, observers ...Observer) (Result, error) {
	if s.started.Load() {
		return Result{}, ErrAlreadyStarted
	}
	for t := range s.Ticks(ctx) {
		for _, o := range observers {
			o.OnTick(t)
		}
	}
	return s.Result()
}

// Ticks returns the lazy tick sequence. It can be ranged over once; any
// later sequence yields nothing. Stopping the range early ends the run
// without an error.
func (s *Sequencer) Ticks(ctx context.Context) iter.Seq[Tick] {
	return func(yield func(Tick) bool) {
		if s.started.Swap(true) {
			return
		}
		s.err = s.loop(ctx, yield)
		s.result.Ticks = len(s.history) - 1
		s.result.Final = s.state
		s.result.History = s.history[:len(s.history):len(s.history)]
	}
}

func (s *Sequencer) loop(ctx context.Context, yield func(Tick) bool) error {
	var (
		goal      int // 0 until a goal is selected
		next      = 1
		goalTicks int
		deadlocks int
		n         int
	)

	if len(s.waypoints) < 2 {
		s.log("global path has no goals beyond the start, nothing to do")
		s.result.Reached = true
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			s.log("stopped after %d ticks: %v", n, err)
			return err
		}
		s.drainInjections()
		snap := s.obstacles.Snapshot()

		var skipped []int
		if goal == 0 {
			goal, next, skipped = s.selectGoal(next, snap)
			s.result.Skipped = append(s.result.Skipped, skipped...)
			if goal == 0 {
				if len(s.result.Visited) == 0 {
					return fmt.Errorf("all %d waypoints are within %g of an obstacle: %w",
						len(s.waypoints)-1, s.cfg.MinObstacleLocalGoalDistance, ErrNoGoals)
				}
				return fmt.Errorf("waypoints after %v are blocked: %w", s.waypoints[s.result.Visited[len(s.result.Visited)-1]], ErrNoGoals)
			}
			s.log("goal %d at (%.1f, %.1f)", goal, s.waypoints[goal].X, s.waypoints[goal].Y)
		}
		target := s.waypoints[goal]
		final := !s.retainedAfter(goal, snap)

		res := s.opts.Control(s.state, s.cfg, target, snap)
		s.state = robot.Integrate(s.state, res.Command, s.cfg.DT)
		s.history = append(s.history, s.state)
		n++
		goalTicks++

		phase := Approaching
		if res.Deadlock {
			phase = Deadlock
			deadlocks++
			s.result.Deadlocks++
		} else {
			deadlocks = 0
		}

		catch := s.cfg.CatchLocalGoalDist
		if final {
			catch = s.cfg.CatchGoalDist
		}
		if s.state.DistanceTo(target) <= catch {
			phase = ReachedLocal
			if final {
				phase = ReachedFinal
			}
		}

		h := len(s.history)
		t := Tick{
			N:         n,
			Time:      float64(n) * s.cfg.DT,
			State:     s.state,
			Control:   res,
			History:   s.history[:h:h],
			GoalIndex: goal,
			Goal:      target,
			Final:     final,
			Phase:     phase,
			GoalTicks: goalTicks,
			Skipped:   skipped,
			Obstacles: snap,
		}
		if !yield(t) {
			return nil
		}

		switch phase {
		case ReachedFinal:
			s.result.Visited = append(s.result.Visited, goal)
			s.result.Reached = true
			s.log("goal reached after %d ticks", n)
			return nil
		case ReachedLocal:
			s.result.Visited = append(s.result.Visited, goal)
			s.log("local goal %d reached after %d ticks", goal, goalTicks)
			goal, goalTicks = 0, 0
			continue
		}

		if deadlocks >= s.opts.MaxDeadlockTicks {
			return fmt.Errorf("%d consecutive ticks at %v: %w", deadlocks, s.state, ErrDeadlock)
		}
		if goalTicks >= s.opts.MaxTicksPerGoal {
			return fmt.Errorf("goal %d at %v not reached in %d ticks: %w", goal, target, goalTicks, ErrTickBudget)
		}
	}
}

// selectGoal returns the first waypoint from next on that keeps its
// clearance in snap, the index after it, and the waypoints passed over.
func (s *Sequencer) selectGoal(next int, snap obstacle.Snapshot) (goal, after int, skipped []int) {
	for ; next < len(s.waypoints); next++ {
		if s.usable(next, snap) {
			return next, next + 1, skipped
		}
		s.log("skipping goal %d at (%.1f, %.1f): obstacle within %g",
			next, s.waypoints[next].X, s.waypoints[next].Y, s.cfg.MinObstacleLocalGoalDistance)
		skipped = append(skipped, next)
	}
	return 0, next, skipped
}

func (s *Sequencer) usable(i int, snap obstacle.Snapshot) bool {
	return snap.MinDistance(s.waypoints[i]) > s.cfg.MinObstacleLocalGoalDistance
}

func (s *Sequencer) retainedAfter(goal int, snap obstacle.Snapshot) bool {
	for i := goal + 1; i < len(s.waypoints); i++ {
		if s.usable(i, snap) {
			return true
		}
	}
	return false
}

func (s *Sequencer) drainInjections() {
	for {
		select {
		case o := <-s.inject:
			if err := s.obstacles.Add(o); err != nil {
				s.log("dropping injected obstacle: %v", err)
				continue
			}
			s.log("obstacle added at (%.1f, %.1f)", o.X, o.Y)
		default:
			return
		}
	}
}

// RunGoalSequence runs a fresh sequencer to completion.
func RunGoalSequence(ctx context.Context, waypoints []r2.Vec, start robot.State, cfg robot.Config,
	obstacles *obstacle.Set, opts Options, observers ...Observer) (Result, error) {
	s, err := NewSequencer(waypoints, start, cfg, obstacles, opts)
	if err != nil {
		return Result{}, err
	}
	return s.Run(ctx, observers...)
}
