package runlog

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/dwa"
	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func straight(s robot.State, _ robot.Config, _ r2.Vec, _ obstacle.Snapshot) dwa.Result {
	return dwa.Result{Command: robot.Command{V: 1}, Clearance: math.Inf(1), Trajectory: []robot.State{s}}
}

func TestOpen_Migrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	require.NoError(t, s.Close())

	// reopening an up to date database is a no-op
	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRun_RecordsTicksAndSummary(t *testing.T) {
	store := openStore(t)
	set, err := obstacle.NewSet(0.5)
	require.NoError(t, err)

	run, err := store.Begin("line", robot.Circle(0.5))
	require.NoError(t, err)

	path := []r2.Vec{{}, {X: 2}, {X: 4}}
	res, runErr := navigate.RunGoalSequence(context.Background(), path, robot.State{}, robot.DefaultConfig(), set,
		navigate.Options{Control: straight}, run)
	require.NoError(t, runErr)
	require.NoError(t, run.Err())

	sum, err := run.Finish(res, runErr)
	require.NoError(t, err)
	assert.Equal(t, run.ID, sum.ID)
	assert.Equal(t, "line", sum.Scenario)
	assert.Equal(t, "circle r=0.5", sum.Shape)
	assert.True(t, sum.Reached)
	assert.Equal(t, res.Ticks, sum.Ticks)
	assert.Equal(t, 2, sum.Visited)
	assert.False(t, sum.FinishedAt.IsZero())
	assert.True(t, math.IsInf(sum.MinClearance, 1))
	assert.Empty(t, sum.Error)
	assert.InDelta(t, float64(res.Ticks)*0.1, sum.PathLength, 1e-9)
	assert.Equal(t, 1.0, sum.MaxSpeed)

	n, err := store.TickCount(run.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Ticks, n)

	speeds, err := store.Speeds(run.ID)
	require.NoError(t, err)
	require.Len(t, speeds, res.Ticks)
	assert.Equal(t, 1.0, speeds[len(speeds)-1])
}

func TestRun_RecordsFailure(t *testing.T) {
	store := openStore(t)
	run, err := store.Begin("broken", robot.Rectangle(1.2, 0.5))
	require.NoError(t, err)

	sum, err := run.Finish(navigate.Result{}, errors.New("controller deadlocked"))
	require.NoError(t, err)
	assert.False(t, sum.Reached)
	assert.Equal(t, "controller deadlocked", sum.Error)
}

func TestStore_List(t *testing.T) {
	store := openStore(t)
	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		run, err := store.Begin(name, robot.Circle(1))
		require.NoError(t, err)
		_, err = run.Finish(navigate.Result{}, nil)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	two, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStats(t *testing.T) {
	length, mean, peak := Stats([]robot.State{
		{X: 0, Y: 0, V: 0},
		{X: 3, Y: 4, V: 1},
		{X: 3, Y: 5, V: 0.5},
	})
	assert.InDelta(t, 6.0, length, 1e-12)
	assert.InDelta(t, 0.5, mean, 1e-12)
	assert.Equal(t, 1.0, peak)

	length, mean, peak = Stats(nil)
	assert.Zero(t, length+mean+peak)
}
