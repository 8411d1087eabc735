package obstacle

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestNewSet_RejectsBadDefault(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewSet(r)
		assert.ErrorIs(t, err, ErrInvalidRadius, "default radius %g", r)
	}
}

func TestSet_AddResolvesDefaultRadius(t *testing.T) {
	s, err := NewSet(0.5, At(1, 2))
	require.NoError(t, err)
	require.NoError(t, s.Add(Obstacle{X: 3, Y: 4, Radius: 2}))

	want := Snapshot{{X: 1, Y: 2, Radius: 0.5}, {X: 3, Y: 4, Radius: 2}}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_AddRejectsBatchAtomically(t *testing.T) {
	s, err := NewSet(0.5)
	require.NoError(t, err)

	err = s.Add(At(1, 1), Obstacle{X: 2, Y: 2, Radius: -0.1})
	assert.ErrorIs(t, err, ErrInvalidRadius)
	assert.Equal(t, 0, s.Len())

	assert.ErrorIs(t, s.Add(Obstacle{Radius: math.NaN()}), ErrInvalidRadius)
}

func TestSet_AddRejectsExplicitZeroRadius(t *testing.T) {
	s, err := NewSet(0.5)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Add(Obstacle{X: 1, Y: 1, Radius: 0}), ErrInvalidRadius)
	assert.ErrorIs(t, s.Add(Obstacle{X: 1, Y: 1, Radius: math.Inf(1)}), ErrInvalidRadius)
	assert.Equal(t, 0, s.Len())

	// Default wins over whatever Radius holds
	require.NoError(t, s.Add(Obstacle{X: 1, Y: 1, Radius: -3, Default: true}))
	assert.Equal(t, Snapshot{{X: 1, Y: 1, Radius: 0.5}}, s.Snapshot())
}

func TestObstacle_JSONRadius(t *testing.T) {
	var got []Obstacle
	require.NoError(t, json.Unmarshal([]byte(`[{"x":1,"y":2},{"x":3,"y":4,"radius":0},{"x":5,"y":6,"radius":1.5}]`), &got))
	assert.Equal(t, []Obstacle{
		At(1, 2),
		{X: 3, Y: 4, Radius: 0},
		{X: 5, Y: 6, Radius: 1.5},
	}, got)

	s, err := NewSet(0.5)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Add(got[1]), ErrInvalidRadius)
	require.NoError(t, s.Add(got[0], got[2]))

	data, err := json.Marshal([]Obstacle{At(1, 2), {X: 3, Y: 4, Radius: 0}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"x":1,"y":2},{"x":3,"y":4,"radius":0}]`, string(data))
}

func TestSet_SnapshotIsStable(t *testing.T) {
	s, err := NewSet(0.5, At(0, 0), At(1, 0))
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NoError(t, s.Add(At(2, 0), At(3, 0)))

	assert.Len(t, snap, 2)
	assert.Len(t, s.Snapshot(), 4)

	// appending to a snapshot must not write into the set's storage
	grown := append(snap, At(99, 99))
	assert.Len(t, grown, 3)
	assert.Equal(t, At(2, 0).X, s.Snapshot()[2].X)
}

func TestSet_ConcurrentAdd(t *testing.T) {
	s, err := NewSet(0.5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = s.Add(At(float64(w), float64(i)))
				_ = s.Snapshot().MinDistance(r2.Vec{})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 800, s.Len())
}

func TestSnapshot_Queries(t *testing.T) {
	snap := Snapshot{
		{X: 3, Y: 4, Radius: 0.5},
		{X: -1, Y: 10, Radius: 1.5},
		{X: 6, Y: -2, Radius: 0.5},
	}

	assert.Equal(t, 5.0, snap.MinDistance(r2.Vec{}))
	assert.True(t, math.IsInf(Snapshot(nil).MinDistance(r2.Vec{}), 1))

	near, ok := snap.Nearest(r2.Vec{X: 5, Y: -1})
	require.True(t, ok)
	assert.Equal(t, snap[2], near)

	assert.Equal(t, 1.5, snap.MaxRadius())

	lo, hi, ok := snap.Bounds()
	require.True(t, ok)
	assert.Equal(t, r2.Vec{X: -1, Y: -2}, lo)
	assert.Equal(t, r2.Vec{X: 6, Y: 10}, hi)

	_, _, ok = Snapshot{}.Bounds()
	assert.False(t, ok)
}

func TestBorder(t *testing.T) {
	obs := Border(60)
	assert.Len(t, obs, 60+60+61+61)

	for _, o := range obs {
		onEdge := o.X == 0 || o.X == 60 || o.Y == 0 || o.Y == 60
		assert.True(t, onEdge, "obstacle (%g, %g) is not on the border", o.X, o.Y)
	}

	lo, hi, _ := Snapshot(obs).Bounds()
	assert.Equal(t, r2.Vec{X: 0, Y: 0}, lo)
	assert.Equal(t, r2.Vec{X: 60, Y: 60}, hi)
}

func TestCluster(t *testing.T) {
	got := Cluster(0.5, At(10, 20), At(30, 40))
	want := []Obstacle{
		At(10.5, 20.5), At(30.5, 40.5),
		At(9.5, 19.5), At(29.5, 39.5),
		At(10.5, 19.5), At(30.5, 39.5),
		At(9.5, 20.5), At(29.5, 40.5),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cluster mismatch (-want +got):\n%s", diff)
	}
}
