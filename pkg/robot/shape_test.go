package robot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_Outline(t *testing.T) {
	rect := Rectangle(2, 1).Outline(State{X: 1, Y: 1, Heading: math.Pi / 2})
	require.Len(t, rect, 5)
	assert.Equal(t, rect[0], rect[4], "polygon is closed")
	// the long side now runs along Y
	assert.InDelta(t, 0.5, rect[0].X, 1e-9)
	assert.InDelta(t, 2.0, rect[0].Y, 1e-9)
	assert.InDelta(t, 1.5, rect[2].X, 1e-9)
	assert.InDelta(t, 0.0, rect[2].Y, 1e-9)

	circle := Circle(0.5).Outline(State{X: 3, Y: -1})
	require.Len(t, circle, 37)
	assert.Equal(t, circle[0], circle[36])
	for _, p := range circle {
		assert.InDelta(t, 0.5, math.Hypot(p.X-3, p.Y+1), 1e-9)
	}
}
