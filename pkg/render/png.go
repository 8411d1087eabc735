package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gwillem/roverplan/pkg/robot"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("nothing to draw")

var (
	obstacleColor  = color.RGBA{A: 255}
	globalColor    = color.RGBA{R: 30, G: 120, B: 220, A: 255}
	drivenColor    = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	predictedColor = color.RGBA{R: 40, G: 170, B: 60, A: 255}
	robotColor     = color.RGBA{R: 120, G: 40, B: 160, A: 255}
)

// TrajectoryPNG draws the scene to path. The file type follows the
// extension, so .svg and .pdf work too.
func TrajectoryPNG(path string, s Scene) error {
	if len(s.Driven) == 0 && len(s.Obstacles) == 0 && len(s.GlobalPath) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Trajectory"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(plotter.NewGrid())

	if len(s.Obstacles) > 0 {
		sc, err := plotter.NewScatter(vecXYs(s.Obstacles.Points()))
		if err != nil {
			return fmt.Errorf("obstacles: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = obstacleColor
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add("obstacles", sc)
	}

	lines := []struct {
		name  string
		pts   plotter.XYs
		color color.Color
		width vg.Length
	}{
		{"global path", vecXYs(s.GlobalPath), globalColor, vg.Points(1)},
		{"driven", stateXYs(s.Driven), drivenColor, vg.Points(1.5)},
		{"predicted", stateXYs(s.Predicted), predictedColor, vg.Points(1)},
	}
	for _, l := range lines {
		if len(l.pts) < 2 {
			continue
		}
		line, err := plotter.NewLine(l.pts)
		if err != nil {
			return fmt.Errorf("%s: %w", l.name, err)
		}
		line.Color = l.color
		line.Width = l.width
		p.Add(line)
		p.Legend.Add(l.name, line)
	}

	if len(s.Driven) > 0 && s.Shape.Kind != "" {
		outline, err := plotter.NewLine(vecXYs(s.Shape.Outline(s.Driven[len(s.Driven)-1])))
		if err != nil {
			return fmt.Errorf("footprint: %w", err)
		}
		outline.Color = robotColor
		outline.Width = vg.Points(1.5)
		p.Add(outline)
	}

	goal, err := plotter.NewScatter(plotter.XYs{{X: s.Goal.X, Y: s.Goal.Y}})
	if err != nil {
		return err
	}
	goal.GlyphStyle.Shape = draw.CrossGlyph{}
	goal.GlyphStyle.Color = globalColor
	goal.GlyphStyle.Radius = vg.Points(5)
	p.Add(goal)
	p.Legend.Add("goal", goal)

	p.Legend.Top = true
	p.Legend.Left = false
	squareAxes(p)

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}

// CostsPNG draws the cost breakdown of the selected command per tick.
// Infinite costs are left out of their series.
func CostsPNG(path string, samples []Sample) error {
	if len(samples) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Cost of the selected command"
	p.X.Label.Text = "tick"
	p.Y.Label.Text = "cost"
	p.Add(plotter.NewGrid())

	series := []struct {
		name  string
		value func(Sample) float64
		color color.Color
	}{
		{"to goal", func(s Sample) float64 { return s.Costs.Goal }, globalColor},
		{"speed", func(s Sample) float64 { return s.Costs.Speed }, predictedColor},
		{"obstacle", func(s Sample) float64 { return s.Costs.Obstacle }, drivenColor},
		{"total", func(s Sample) float64 { return s.Costs.Total }, obstacleColor},
	}
	for _, ser := range series {
		pts := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			v := ser.value(s)
			if math.IsInf(v, 0) || math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(s.Tick), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", ser.name, err)
		}
		line.Color = ser.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(ser.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}

// squareAxes widens the shorter axis so metres look the same both ways on
// a square canvas.
func squareAxes(p *plot.Plot) {
	w := p.X.Max - p.X.Min
	h := p.Y.Max - p.Y.Min
	switch {
	case w > h:
		mid := (p.Y.Min + p.Y.Max) / 2
		p.Y.Min, p.Y.Max = mid-w/2, mid+w/2
	case h > w:
		mid := (p.X.Min + p.X.Max) / 2
		p.X.Min, p.X.Max = mid-h/2, mid+h/2
	}
}

func vecXYs(vs []r2.Vec) plotter.XYs {
	pts := make(plotter.XYs, len(vs))
	for i, v := range vs {
		pts[i] = plotter.XY{X: v.X, Y: v.Y}
	}
	return pts
}

func stateXYs(states []robot.State) plotter.XYs {
	pts := make(plotter.XYs, len(states))
	for i, s := range states {
		pts[i] = plotter.XY{X: s.X, Y: s.Y}
	}
	return pts
}
