package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/robot"
)

// HTML writes an interactive page with the scene as a scatter chart and the
// cost history as a line chart.
func HTML(w io.Writer, title string, s Scene, samples []Sample) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(sceneChart(title, s), costChart(samples))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func sceneChart(title string, s Scene) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("obstacles=%d ticks=%d shape=%s", len(s.Obstacles), len(s.Driven), s.Shape),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("obstacles", vecData(s.Obstacles.Points()),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#212121"}))
	scatter.AddSeries("global path", vecData(s.GlobalPath),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1e78dc"}))
	scatter.AddSeries("driven", stateData(s.Driven),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#dc2828"}))
	scatter.AddSeries("predicted", stateData(s.Predicted),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#28aa3c"}))
	if len(s.Driven) > 0 && s.Shape.Kind != "" {
		scatter.AddSeries("robot", vecData(s.Shape.Outline(s.Driven[len(s.Driven)-1])),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#7828a0"}))
	}
	return scatter
}

func costChart(samples []Sample) *charts.Line {
	ticks := make([]int, len(samples))
	goal := make([]opts.LineData, len(samples))
	speed := make([]opts.LineData, len(samples))
	obst := make([]opts.LineData, len(samples))
	total := make([]opts.LineData, len(samples))
	for i, s := range samples {
		ticks[i] = s.Tick
		goal[i] = lineValue(s.Costs.Goal)
		speed[i] = lineValue(s.Costs.Speed)
		obst[i] = lineValue(s.Costs.Obstacle)
		total[i] = lineValue(s.Costs.Total)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Cost of the selected command"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(ticks).
		AddSeries("to goal", goal).
		AddSeries("speed", speed).
		AddSeries("obstacle", obst).
		AddSeries("total", total)
	return line
}

// lineValue maps non-finite values to echarts' missing marker.
func lineValue(v float64) opts.LineData {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: v}
}

func vecData(vs []r2.Vec) []opts.ScatterData {
	data := make([]opts.ScatterData, len(vs))
	for i, v := range vs {
		data[i] = opts.ScatterData{Value: []interface{}{v.X, v.Y}}
	}
	return data
}

func stateData(states []robot.State) []opts.ScatterData {
	data := make([]opts.ScatterData, len(states))
	for i, s := range states {
		data[i] = opts.ScatterData{Value: []interface{}{s.X, s.Y}}
	}
	return data
}
