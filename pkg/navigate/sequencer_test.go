package navigate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/collision"
	"github.com/gwillem/roverplan/pkg/dwa"
	"github.com/gwillem/roverplan/pkg/gridplan"
	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

// pursue turns onto the goal bearing and drives straight at it, ignoring
// obstacles.
func pursue(maxV float64) ControlFunc {
	return func(s robot.State, cfg robot.Config, goal r2.Vec, _ obstacle.Snapshot) dwa.Result {
		bearing := math.Atan2(goal.Y-s.Y, goal.X-s.X)
		return dwa.Result{Command: robot.Command{
			V:     math.Min(maxV, s.DistanceTo(goal)/cfg.DT),
			Omega: robot.NormalizeAngle(bearing-s.Heading) / cfg.DT,
		}}
	}
}

// recordGoals wraps a controller and remembers every goal handed to it.
func recordGoals(inner ControlFunc, seen map[r2.Vec]int) ControlFunc {
	return func(s robot.State, cfg robot.Config, goal r2.Vec, obs obstacle.Snapshot) dwa.Result {
		seen[goal]++
		return inner(s, cfg, goal, obs)
	}
}

func newSet(t *testing.T, obs ...obstacle.Obstacle) *obstacle.Set {
	t.Helper()
	set, err := obstacle.NewSet(0.5, obs...)
	require.NoError(t, err)
	return set
}

func line(xs ...float64) []r2.Vec {
	var wp []r2.Vec
	for _, x := range xs {
		wp = append(wp, r2.Vec{X: x})
	}
	return wp
}

func TestSequencer_SkippedGoalNeverReachesController(t *testing.T) {
	cfg := robot.DefaultConfig()
	waypoints := line(0, 5, 10, 15)
	// within min_obstacle_localgoal_distance of (10, 0) only
	set := newSet(t, obstacle.At(10, 1.5))

	seen := map[r2.Vec]int{}
	res, err := RunGoalSequence(context.Background(), waypoints, robot.State{}, cfg, set,
		Options{Control: recordGoals(pursue(1), seen)})

	require.NoError(t, err)
	assert.True(t, res.Reached)
	assert.Zero(t, seen[waypoints[2]], "skipped goal was passed to the controller")
	assert.Positive(t, seen[waypoints[1]])
	assert.Positive(t, seen[waypoints[3]])
	assert.Zero(t, seen[waypoints[0]], "the start is never a goal")
	assert.Equal(t, []int{1, 3}, res.Visited)
	assert.Equal(t, []int{2}, res.Skipped)
	assert.LessOrEqual(t, res.Final.DistanceTo(waypoints[3]), cfg.CatchGoalDist)
}

func TestSequencer_InjectionBetweenTicks(t *testing.T) {
	cfg := robot.DefaultConfig()
	waypoints := line(0, 2, 4, 6)
	seq, err := NewSequencer(waypoints, robot.State{}, cfg, newSet(t), Options{Control: pursue(1)})
	require.NoError(t, err)

	var ticks []Tick
	for tk := range seq.Ticks(context.Background()) {
		if tk.N == 1 {
			require.NoError(t, seq.Inject(obstacle.At(4, 1)))
		}
		ticks = append(ticks, tk)
	}

	res, err := seq.Result()
	require.NoError(t, err)
	require.True(t, res.Reached)
	require.GreaterOrEqual(t, len(ticks), 2)

	assert.Empty(t, ticks[0].Obstacles, "injection must not show up in the tick that queued it")
	assert.Len(t, ticks[1].Obstacles, 1)
	assert.Equal(t, 0.5, ticks[1].Obstacles[0].Radius)

	assert.False(t, ticks[0].Final)
	last := ticks[len(ticks)-1]
	assert.Equal(t, ReachedFinal, last.Phase)
	assert.Equal(t, 3, last.GoalIndex)
	assert.True(t, last.Final)
	assert.Equal(t, []int{1, 3}, res.Visited)
	assert.Equal(t, []int{2}, res.Skipped)

	var sawLocal bool
	for _, tk := range ticks {
		assert.NotEqual(t, 2, tk.GoalIndex)
		if tk.Phase == ReachedLocal {
			sawLocal = true
			assert.Equal(t, 1, tk.GoalIndex)
		}
	}
	assert.True(t, sawLocal)
}

func TestSequencer_FinalUsesTightCatchRadius(t *testing.T) {
	cfg := robot.DefaultConfig()
	waypoints := line(0, 3)

	// creep forward so the catch radius decides which tick ends the run
	creep := func(s robot.State, cfg robot.Config, goal r2.Vec, _ obstacle.Snapshot) dwa.Result {
		return dwa.Result{Command: robot.Command{V: 0.5}}
	}
	res, err := RunGoalSequence(context.Background(), waypoints, robot.State{}, cfg, newSet(t),
		Options{Control: creep})
	require.NoError(t, err)

	d := res.Final.DistanceTo(waypoints[1])
	assert.LessOrEqual(t, d, cfg.CatchGoalDist)
	assert.Greater(t, d, cfg.CatchGoalDist-0.05-1e-9, "stopped later than the first tick inside the radius")
}

func TestSequencer_HistorySnapshots(t *testing.T) {
	cfg := robot.DefaultConfig()
	seq, err := NewSequencer(line(0, 4), robot.State{}, cfg, newSet(t), Options{Control: pursue(1)})
	require.NoError(t, err)

	var ticks []Tick
	res, err := seq.Run(context.Background(), ObserverFunc(func(tk Tick) { ticks = append(ticks, tk) }))
	require.NoError(t, err)

	require.Len(t, ticks, res.Ticks)
	for _, tk := range ticks {
		require.Len(t, tk.History, tk.N+1)
		assert.Equal(t, tk.State, tk.History[tk.N])
		assert.InDelta(t, float64(tk.N)*cfg.DT, tk.Time, 1e-12)
	}
	// earlier ticks keep their view after later appends
	assert.Equal(t, robot.State{}, ticks[0].History[0])
	assert.Len(t, ticks[0].History, 2)
	assert.Equal(t, res.History[len(res.History)-1], res.Final)
}

func TestSequencer_TickBudget(t *testing.T) {
	stall := func(robot.State, robot.Config, r2.Vec, obstacle.Snapshot) dwa.Result {
		return dwa.Result{}
	}
	res, err := RunGoalSequence(context.Background(), line(0, 5), robot.State{}, robot.DefaultConfig(), newSet(t),
		Options{Control: stall, MaxTicksPerGoal: 10})

	assert.ErrorIs(t, err, ErrTickBudget)
	assert.False(t, res.Reached)
	assert.Equal(t, 10, res.Ticks)
}

func TestSequencer_Deadlock(t *testing.T) {
	stuck := func(s robot.State, _ robot.Config, _ r2.Vec, _ obstacle.Snapshot) dwa.Result {
		return dwa.Result{Deadlock: true, Trajectory: []robot.State{s}}
	}
	var phases []Phase
	res, err := RunGoalSequence(context.Background(), line(0, 5), robot.State{}, robot.DefaultConfig(), newSet(t),
		Options{Control: stuck, MaxDeadlockTicks: 5},
		ObserverFunc(func(tk Tick) { phases = append(phases, tk.Phase) }))

	assert.ErrorIs(t, err, ErrDeadlock)
	assert.Equal(t, 5, res.Deadlocks)
	assert.Equal(t, []Phase{Deadlock, Deadlock, Deadlock, Deadlock, Deadlock}, phases)
}

func TestSequencer_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	creep := func(robot.State, robot.Config, r2.Vec, obstacle.Snapshot) dwa.Result {
		return dwa.Result{Command: robot.Command{V: 0.01}}
	}
	res, err := RunGoalSequence(ctx, line(0, 50), robot.State{}, robot.DefaultConfig(), newSet(t),
		Options{Control: creep},
		ObserverFunc(func(tk Tick) {
			if tk.N == 3 {
				cancel()
			}
		}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, res.Ticks)
	assert.InDelta(t, 0.003, res.Final.X, 1e-12)
}

func TestSequencer_NoGoals(t *testing.T) {
	set := newSet(t, obstacle.At(5, 0), obstacle.At(10, 0))
	res, err := RunGoalSequence(context.Background(), line(0, 5, 10), robot.State{}, robot.DefaultConfig(), set,
		Options{Control: pursue(1)})

	assert.ErrorIs(t, err, ErrNoGoals)
	assert.Zero(t, res.Ticks)
	assert.Equal(t, []int{1, 2}, res.Skipped)
}

func TestSequencer_StartOnlyPathIsArrived(t *testing.T) {
	start := robot.State{X: 8, Y: 8, Heading: 1}
	for _, waypoints := range [][]r2.Vec{{{X: 8, Y: 8}}, nil} {
		seen := map[r2.Vec]int{}
		seq, err := NewSequencer(waypoints, start, robot.DefaultConfig(), newSet(t),
			Options{Control: recordGoals(pursue(1), seen)})
		require.NoError(t, err)

		ticks := 0
		for range seq.Ticks(context.Background()) {
			ticks++
		}
		res, err := seq.Result()

		require.NoError(t, err, "waypoints %v", waypoints)
		assert.True(t, res.Reached)
		assert.Zero(t, ticks)
		assert.Zero(t, res.Ticks)
		assert.Empty(t, seen)
		assert.Equal(t, start, res.Final)
		assert.Equal(t, []robot.State{start}, res.History)
	}
}

func TestSequencer_RunsOnce(t *testing.T) {
	seq, err := NewSequencer(line(0, 1), robot.State{}, robot.DefaultConfig(), newSet(t), Options{Control: pursue(1)})
	require.NoError(t, err)

	first, err := seq.Run(context.Background())
	require.NoError(t, err)
	require.True(t, first.Reached)

	_, err = seq.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	count := 0
	for range seq.Ticks(context.Background()) {
		count++
	}
	assert.Zero(t, count)

	again, err := seq.Result()
	assert.NoError(t, err)
	assert.Equal(t, first.Ticks, again.Ticks)
}

func TestSequencer_EarlyBreak(t *testing.T) {
	seq, err := NewSequencer(line(0, 10), robot.State{}, robot.DefaultConfig(), newSet(t), Options{Control: pursue(1)})
	require.NoError(t, err)

	for tk := range seq.Ticks(context.Background()) {
		if tk.N == 2 {
			break
		}
	}
	res, err := seq.Result()
	assert.NoError(t, err)
	assert.False(t, res.Reached)
	assert.Equal(t, 2, res.Ticks)
}

func TestNewSequencer_RejectsInvalidConfig(t *testing.T) {
	cfg := robot.DefaultConfig()
	cfg.CatchGoalDist = 2
	_, err := NewSequencer(line(0, 1), robot.State{}, cfg, newSet(t), Options{})
	assert.True(t, errors.Is(err, robot.ErrInvalidConfig))
}

func TestInject_DroppedWhenInvalid(t *testing.T) {
	var logs []string
	seq, err := NewSequencer(line(0, 1), robot.State{}, robot.DefaultConfig(), newSet(t), Options{
		Control: pursue(1),
		Logf:    func(format string, args ...any) { logs = append(logs, format) },
	})
	require.NoError(t, err)

	require.NoError(t, seq.Inject(obstacle.Obstacle{X: 30, Y: 30, Radius: -1}, obstacle.At(40, 40)))
	res, err := seq.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Reached)
	assert.Contains(t, logs, "dropping injected obstacle: %v")
	assert.Contains(t, logs, "obstacle added at (%.1f, %.1f)")
}

// Border-only 60 x 60 arena, planned at resolution 5 with inflation 1.
func TestRunGoalSequence_BorderedArena(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end run")
	}

	shapes := map[string]robot.Shape{
		"circle":    robot.Circle(0.5),
		"rectangle": robot.Rectangle(1.2, 0.5),
	}
	for name, shape := range shapes {
		t.Run(name, func(t *testing.T) {
			cfg := robot.DefaultConfig()
			cfg.Shape = shape
			cfg.CheckTime = 3
			cfg.YawRateResolution = math.Pi / 180

			border := obstacle.Border(60)
			set := newSet(t, border...)
			snap := set.Snapshot()

			start := robot.State{X: 10, Y: 10, Heading: math.Pi / 8}
			goal := r2.Vec{X: 50, Y: 50}
			path, err := gridplan.Plan(snap.Points(), gridplan.Options{
				Resolution:      5,
				InflationRadius: 1,
				Bounds:          gridplan.BoundsFor(snap.Points(), start.Position(), goal, 2),
			}, start.Position(), goal)
			require.NoError(t, err)

			var predictedHits int
			check := ObserverFunc(func(tk Tick) {
				for _, p := range tk.Control.Trajectory {
					if collision.AnyOverlap(cfg.Shape, p, snap) {
						predictedHits++
					}
				}
			})

			res, err := RunGoalSequence(context.Background(), path, start, cfg, set, Options{MaxTicksPerGoal: 5000}, check)
			require.NoError(t, err)
			require.True(t, res.Reached)

			assert.LessOrEqual(t, res.Ticks, 5000)
			assert.LessOrEqual(t, res.Final.DistanceTo(goal), cfg.CatchGoalDist)
			assert.Zero(t, predictedHits)
			for i, s := range res.History {
				if collision.AnyOverlap(cfg.Shape, s, snap) {
					t.Fatalf("state %d %v overlaps the border", i, s)
				}
			}
		})
	}
}
