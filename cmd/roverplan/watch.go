package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/roverplan/pkg/gridplan"
	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/scenario"
)

type WatchCommand struct {
	ScenarioOptions
	Hz       int     `long:"hz" default:"20" description:"Control ticks per second"`
	DropDist float64 `long:"drop-distance" default:"3" description:"How far ahead of the robot the o key drops an obstacle"`
}

const (
	headerHeight = 2 // title + blank line
	statusHeight = 1
	chartHeight  = 6
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// map layers, drawn in this order
var layers = []struct {
	name  string
	ch    string
	color string
}{
	{"path", "·", "33"},
	{"driven", "•", "196"},
	{"predicted", "∘", "46"},
	{"obstacle", "█", "252"},
	{"goal", "◎", "226"},
	{"robot", "▲", "201"},
}

const (
	layerPath = iota
	layerDriven
	layerPredicted
	layerObstacle
	layerGoal
	layerRobot
)

var seriesColors = map[string]string{
	"v": "208",
	"ω": "51",
}

type watchModel struct {
	ctrl     *navigate.Controller
	prepared *scenario.Prepared
	chart    *streamlinechart.Model
	dropDist float64

	width    int
	height   int
	logs     []string
	last     navigate.Tick
	hasTick  bool
	finished bool
	quitting bool
}

type stateMsg navigate.Tick
type logMsg string
type doneMsg struct{}

func waitForState(ctrl *navigate.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *navigate.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func waitForDone(ctrl *navigate.Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctrl.Done()
		return doneMsg{}
	}
}

func initialWatchModel(ctrl *navigate.Controller, p *scenario.Prepared, dropDist float64) watchModel {
	yMax := math.Max(p.Config.MaxSpeed, p.Config.MaxYawRate) * 1.1
	chart := streamlinechart.New(80, chartHeight,
		streamlinechart.WithYRange(-yMax, yMax),
	)
	for name, color := range seriesColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}
	return watchModel{
		ctrl:     ctrl,
		prepared: p,
		chart:    &chart,
		dropDist: dropDist,
	}
}

func (m *watchModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// mapSize is the character area left for the arena.
func (m *watchModel) mapSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 24
	}
	width = max(m.width-borderSize-2, 20)
	height = max(m.height-headerHeight-statusHeight-chartHeight-legendHeight-footerHeight-2*borderSize, 8)
	return width, height
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
		waitForDone(m.ctrl),
	)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, _ := m.mapSize()
		m.chart.Resize(w, chartHeight)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "o":
			m.dropObstacle()
		}

	case stateMsg:
		t := navigate.Tick(msg)
		m.last = t
		m.hasTick = true
		m.chart.PushDataSet("v", t.State.V)
		m.chart.PushDataSet("ω", t.State.Omega)
		m.chart.DrawAll()
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case doneMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}

// dropObstacle puts an obstacle straight ahead of the robot.
func (m *watchModel) dropObstacle() {
	if !m.hasTick || m.finished {
		return
	}
	s := m.last.State
	o := obstacle.At(s.X+m.dropDist*math.Cos(s.Heading), s.Y+m.dropDist*math.Sin(s.Heading))
	if err := m.ctrl.Inject(o); err != nil {
		m.addLog(fmt.Sprintf("cannot drop obstacle: %v", err))
	}
}

func (m watchModel) View() string {
	if m.quitting {
		return "Navigation stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("roverplan watch"))
	sb.WriteString(fmt.Sprintf(" - %s, %s, %d Hz", m.prepared.Scenario.Name, m.prepared.Config.Shape, m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	w, h := m.mapSize()
	sb.WriteString(boxStyle.Render(m.renderMap(w, h)))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(boxStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'o' to drop an obstacle ahead of the robot, 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m watchModel) renderStatus() string {
	if !m.hasTick {
		return statusStyle.Render("waiting for the first tick")
	}
	t := m.last
	line := fmt.Sprintf("tick %d  t=%.1fs  %s  goal #%d (%.1f, %.1f)  v=%.2f ω=%.2f  clearance %s  obstacles %d",
		t.N, t.Time, t.Phase, t.GoalIndex, t.Goal.X, t.Goal.Y, t.State.V, t.State.Omega,
		formatDistance(t.Control.Clearance), len(t.Obstacles))
	if t.Control.Unstuck {
		line += "  unstuck"
	}
	if m.finished {
		return successStyle.Render(line + "  (finished)")
	}
	return statusStyle.Render(line)
}

// renderMap rasterizes the arena into w x h characters.
func (m watchModel) renderMap(w, h int) string {
	b := m.prepared.Bounds
	points := make([][]r2.Vec, len(layers))
	points[layerPath] = m.prepared.Path

	obs := m.prepared.Set.Snapshot()
	if m.hasTick {
		obs = m.last.Obstacles
		for _, s := range m.last.History {
			points[layerDriven] = append(points[layerDriven], s.Position())
		}
		for _, s := range m.last.Control.Trajectory {
			points[layerPredicted] = append(points[layerPredicted], s.Position())
		}
		points[layerGoal] = []r2.Vec{m.last.Goal}
		points[layerRobot] = m.prepared.Config.Shape.Outline(m.last.State)
	} else {
		points[layerRobot] = []r2.Vec{m.prepared.Scenario.Start.Position()}
	}
	points[layerObstacle] = obs.Points()

	cells := make([]int, w*h)
	for i := range cells {
		cells[i] = -1
	}
	for layer, pts := range points {
		for _, p := range pts {
			col, row, ok := project(b, w, h, p)
			if ok {
				cells[row*w+col] = layer
			}
		}
	}

	styles := make([]lipgloss.Style, len(layers))
	for i, l := range layers {
		styles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(l.color))
	}

	var sb strings.Builder
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			layer := cells[row*w+col]
			if layer < 0 {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(styles[layer].Render(layers[layer].ch))
		}
		if row < h-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// project maps p into the character grid with +Y up.
func project(b gridplan.Bounds, w, h int, p r2.Vec) (col, row int, ok bool) {
	spanX := b.Max.X - b.Min.X
	spanY := b.Max.Y - b.Min.Y
	if spanX <= 0 || spanY <= 0 {
		return 0, 0, false
	}
	col = int(math.Round((p.X - b.Min.X) / spanX * float64(w-1)))
	row = int(math.Round((b.Max.Y - p.Y) / spanY * float64(h-1)))
	if col < 0 || col >= w || row < 0 || row >= h {
		return 0, 0, false
	}
	return col, row, true
}

func renderLegend() string {
	var items []string
	for _, l := range layers {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(l.color)).Bold(true)
		items = append(items, style.Render(l.ch)+" "+l.name)
	}
	for _, name := range []string{"v", "ω"} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, style.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func (c *WatchCommand) Execute(args []string) error {
	p, err := c.prepareLive()
	if err != nil {
		return err
	}
	seq, err := p.Sequencer(navigate.Options{})
	if err != nil {
		return err
	}
	ctrl := navigate.NewController(seq, c.Hz, p.Injector(seq))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Navigation error: %v", err)
		}
	}()

	prog := tea.NewProgram(initialWatchModel(ctrl, p, c.DropDist), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	cancel()
	res, runErr := ctrl.Result()
	fmt.Println(resultTable(p, res, runErr))
	return nil
}
