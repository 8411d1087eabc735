package collision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

func TestCircleOverlapsCircle(t *testing.T) {
	tests := []struct {
		name   string
		c2     r2.Vec
		r1, r2 float64
		want   bool
	}{
		{"touching", r2.Vec{X: 1.5}, 1, 0.5, true},
		{"apart", r2.Vec{X: 1.5}, 1, 0.25, false},
		{"inside", r2.Vec{X: 0.1, Y: 0.1}, 1, 0.1, true},
		{"concentric", r2.Vec{}, 0.5, 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CircleOverlapsCircle(r2.Vec{}, tt.r1, tt.c2, tt.r2)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCircleOverlapsRotatedBox_Boundary(t *testing.T) {
	const (
		length = 2.0
		width  = 1.0
		radius = 0.5
	)
	edge := r2.Vec{X: length/2 + radius}

	assert.True(t, CircleOverlapsRotatedBox(edge, radius, r2.Vec{}, length, width, 0), "touching circle must overlap")

	for _, eps := range []float64{1e-9, 1e-6, 0.01} {
		beyond := r2.Vec{X: length/2 + radius + eps}
		assert.False(t, CircleOverlapsRotatedBox(beyond, radius, r2.Vec{}, length, width, 0), "eps %g", eps)
	}

	// same along the short side
	assert.True(t, CircleOverlapsRotatedBox(r2.Vec{Y: width/2 + radius}, radius, r2.Vec{}, length, width, 0))
	assert.False(t, CircleOverlapsRotatedBox(r2.Vec{Y: width/2 + radius + 1e-9}, radius, r2.Vec{}, length, width, 0))
}

func TestCircleOverlapsRotatedBox_Rotation(t *testing.T) {
	box := r2.Vec{X: 5, Y: 5}

	// a long thin box along X misses a circle above its center...
	above := r2.Vec{X: 5, Y: 6.5}
	assert.False(t, CircleOverlapsRotatedBox(above, 0.4, box, 4, 1, 0))
	// ...until it is turned to point at it
	assert.True(t, CircleOverlapsRotatedBox(above, 0.4, box, 4, 1, math.Pi/2))
	assert.True(t, CircleOverlapsRotatedBox(above, 0.4, box, 4, 1, -math.Pi/2))

	// corner region: the clamped point is the box corner, not the edge
	corner := r2.Vec{X: 5 + 2 + 0.3, Y: 5 + 0.5 + 0.3}
	assert.True(t, CircleOverlapsRotatedBox(corner, 0.43, box, 4, 1, 0))
	assert.False(t, CircleOverlapsRotatedBox(corner, 0.42, box, 4, 1, 0))
}

func TestShapeOverlaps(t *testing.T) {
	pose := robot.State{X: 0, Y: 0, Heading: math.Pi / 2}
	side := obstacle.Obstacle{X: 0.55, Y: 0, Radius: 0.1}

	// rectangle 2 x 0.5 pointing along +Y: the obstacle at x=0.55 is clear
	assert.False(t, ShapeOverlaps(robot.Rectangle(2, 0.5), pose, side))
	// a circle of radius 0.5 reaches it
	assert.True(t, ShapeOverlaps(robot.Circle(0.5), pose, side))

	ahead := obstacle.Obstacle{X: 0, Y: 1.05, Radius: 0.1}
	assert.True(t, ShapeOverlaps(robot.Rectangle(2, 0.5), pose, ahead))
	assert.False(t, ShapeOverlaps(robot.Circle(0.5), pose, ahead))
}

func testConfig() robot.Config {
	cfg := robot.DefaultConfig()
	cfg.Shape = robot.Circle(0.5)
	cfg.CheckTime = 5
	return cfg
}

func TestDistanceToNearestCollision_StraightAhead(t *testing.T) {
	cfg := testConfig()
	obs := obstacle.Snapshot{{X: 3, Y: 0, Radius: 0.5}}

	dist, ttc := DistanceToNearestCollision(robot.State{}, obs, robot.Command{V: 1}, cfg)

	// the footprints touch once the center is within 1.0 of the obstacle,
	// which is reached at x=2.0 after 20 steps; 19 steps were clear before it
	assert.InDelta(t, 1.9, dist, 0.1+1e-9)
	assert.InDelta(t, dist, ttc, 1e-9, "unit speed: distance equals time")
	assert.False(t, math.IsInf(dist, 1))
}

func TestDistanceToNearestCollision_NoHit(t *testing.T) {
	cfg := testConfig()
	obs := obstacle.Snapshot{{X: 0, Y: 3, Radius: 0.5}, {X: 50, Y: 0, Radius: 0.5}}

	dist, ttc := DistanceToNearestCollision(robot.State{}, obs, robot.Command{V: 1}, cfg)
	assert.True(t, math.IsInf(dist, 1))
	assert.True(t, math.IsInf(ttc, 1))

	dist, _ = DistanceToNearestCollision(robot.State{}, nil, robot.Command{V: 1}, cfg)
	assert.True(t, math.IsInf(dist, 1))
}

func TestDistanceToNearestCollision_AlreadyTouching(t *testing.T) {
	cfg := testConfig()
	obs := obstacle.Snapshot{{X: 0.8, Y: 0, Radius: 0.5}}

	dist, ttc := DistanceToNearestCollision(robot.State{}, obs, robot.Command{}, cfg)
	assert.Equal(t, 0.0, dist)
	assert.Equal(t, 0.0, ttc)
}

func TestDistanceToNearestCollision_Reversing(t *testing.T) {
	cfg := testConfig()
	cfg.MinSpeed = -0.5
	obs := obstacle.Snapshot{{X: -2, Y: 0, Radius: 0.5}}

	dist, _ := DistanceToNearestCollision(robot.State{}, obs, robot.Command{V: -0.5}, cfg)
	assert.False(t, math.IsInf(dist, 1))
	assert.Greater(t, dist, 0.0)
}

func TestReachable_CullingKeepsResult(t *testing.T) {
	cfg := testConfig()
	cfg.Shape = robot.Rectangle(1.2, 0.5)

	var obs obstacle.Snapshot
	for i := 0; i < 40; i++ {
		a := float64(i) * math.Pi / 20
		r := 1.5 + float64(i%7)
		obs = append(obs, obstacle.Obstacle{X: r * math.Cos(a), Y: r * math.Sin(a), Radius: 0.5})
	}

	start := robot.State{Heading: 0.3}
	for _, cmd := range []robot.Command{{V: 0.2}, {V: 0.5, Omega: 0.4}, {V: 1, Omega: -0.2}, {}} {
		near := Reachable(start, obs, cmd, cfg)
		assert.LessOrEqual(t, len(near), len(obs))

		// brute force without the cull
		wantDist := math.Inf(1)
		s := start
		var d float64
		for i := 0; i < CheckSteps(cfg); i++ {
			s = robot.Integrate(s, cmd, cfg.DT)
			if AnyOverlap(cfg.Shape, s, obs) {
				wantDist = d
				break
			}
			d += math.Abs(cmd.V) * cfg.DT
		}

		got, _ := DistanceToNearestCollision(start, obs, cmd, cfg)
		assert.Equal(t, wantDist, got, "command %+v", cmd)
	}
}
