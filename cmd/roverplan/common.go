package main

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/robot"
	"github.com/gwillem/roverplan/pkg/scenario"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// ScenarioOptions selects the scenario and lets the footprint be changed
// without editing the configuration file.
type ScenarioOptions struct {
	Scenario  string  `short:"s" long:"scenario" default:"arena" description:"Built-in scenario (arena, border, walled) or a scenario JSON file"`
	Shape     string  `long:"shape" choice:"circle" choice:"rectangle" description:"Override the robot footprint"`
	Radius    float64 `long:"radius" default:"1.0" description:"Radius of a circular footprint"`
	Length    float64 `long:"length" default:"1.2" description:"Length of a rectangular footprint"`
	Width     float64 `long:"width" default:"0.5" description:"Width of a rectangular footprint"`
	CheckTime float64 `long:"check-time" description:"Override the admissibility horizon in seconds; watch and serve cap it at 3 when unset"`
}

// liveCheckTime caps the admissibility horizon of the real-time commands.
// At the default horizon a single tick takes longer than a 20 Hz period.
const liveCheckTime = 3.0

// loadConfig reads the configuration file named by --config. A missing
// file yields the defaults.
func loadConfig() (robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, fs.ErrNotExist) {
		return robot.DefaultConfig(), nil
	}
	if err != nil {
		return robot.Config{}, err
	}
	return *cfg, nil
}

func (o ScenarioOptions) config() (robot.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	switch robot.ShapeKind(o.Shape) {
	case robot.ShapeCircle:
		cfg.Shape = robot.Circle(o.Radius)
	case robot.ShapeRectangle:
		cfg.Shape = robot.Rectangle(o.Length, o.Width)
	}
	if o.CheckTime > 0 {
		cfg.CheckTime = o.CheckTime
	}
	return cfg, cfg.Validate()
}

// liveConfig is config for commands that tick in real time.
func (o ScenarioOptions) liveConfig() (robot.Config, error) {
	cfg, err := o.config()
	if err != nil {
		return cfg, err
	}
	if o.CheckTime <= 0 && cfg.CheckTime > liveCheckTime {
		cfg.CheckTime = liveCheckTime
	}
	return cfg, nil
}

// prepare loads the scenario and plans its global path.
func (o ScenarioOptions) prepare() (*scenario.Prepared, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	return o.build(cfg)
}

// prepareLive is prepare with the real-time horizon cap.
func (o ScenarioOptions) prepareLive() (*scenario.Prepared, error) {
	cfg, err := o.liveConfig()
	if err != nil {
		return nil, err
	}
	return o.build(cfg)
}

func (o ScenarioOptions) build(cfg robot.Config) (*scenario.Prepared, error) {
	s, err := scenario.Resolve(o.Scenario)
	if err != nil {
		return nil, err
	}
	return s.Build(cfg)
}

func styledTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
}

func resultTable(p *scenario.Prepared, res navigate.Result, err error) string {
	status := successStyle.Render("goal reached")
	if !res.Reached {
		status = failStyle.Render("not reached")
	}
	if err != nil {
		status = failStyle.Render(err.Error())
	}
	rows := [][]string{
		{"scenario", p.Scenario.Name},
		{"shape", p.Config.Shape.String()},
		{"result", status},
		{"ticks", strconv.Itoa(res.Ticks)},
		{"time", fmt.Sprintf("%.1f s", float64(res.Ticks)*p.Config.DT)},
		{"final pose", res.Final.String()},
		{"goals visited", fmt.Sprintf("%d of %d", len(res.Visited), len(p.Path)-1)},
		{"goals skipped", fmt.Sprint(res.Skipped)},
		{"deadlock ticks", strconv.Itoa(res.Deadlocks)},
	}
	return styledTable([]string{"", ""}, rows).Render()
}

func formatDistance(d float64) string {
	if math.IsInf(d, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", d)
}
