package scenario

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

// clusterCenters sit on the global path of the walled arena; each becomes a
// square of four obstacles.
var clusterCenters = []obstacle.Obstacle{
	obstacle.At(12.5, 12.5),
	obstacle.At(15.0, 17.5),
	obstacle.At(15.0, 22.5),
	obstacle.At(15.0, 27.5),
	obstacle.At(15.0, 32.5),
	obstacle.At(15.0, 37.5),
	obstacle.At(17.5, 42.5),
	obstacle.At(22.5, 42.5),
	obstacle.At(27.5, 37.5),
	obstacle.At(32.5, 32.5),
	obstacle.At(35.0, 27.5),
	obstacle.At(35.0, 22.5),
	obstacle.At(37.5, 17.5),
	obstacle.At(42.5, 17.5),
	obstacle.At(45.0, 22.5),
	obstacle.At(45.0, 27.5),
	obstacle.At(45.0, 32.5),
	obstacle.At(45.0, 37.5),
	obstacle.At(45.0, 42.5),
	obstacle.At(47.5, 47.5),
}

// BorderArena is a 60 x 60 bordered square with nothing inside.
func BorderArena() *Scenario {
	return &Scenario{
		Name:   "border",
		Start:  robot.State{X: 10, Y: 10, Heading: math.Pi / 8},
		Goal:   Point{X: 50, Y: 50},
		Border: 60,
		Grid:   Grid{Resolution: 5, Inflation: 1, Pad: 2},
	}
}

// Arena is the bordered square with two inner walls, one rising from the
// bottom at x=20 and one hanging from the top at x=40. Clusters of obstacles
// are dropped onto the planned path before the robot starts moving.
func Arena() *Scenario {
	s := BorderArena()
	s.Name = "arena"
	s.Walls = []Wall{
		{From: Point{X: 20, Y: 0}, Step: Point{X: 0, Y: 1}, Count: 40},
		{From: Point{X: 40, Y: 60}, Step: Point{X: 0, Y: -1}, Count: 40},
	}
	s.Injections = []Injection{
		{AtTick: 0, Obstacles: obstacle.Cluster(0.5, clusterCenters...)},
	}
	return s
}

// Walled is the arena without the injected clusters.
func Walled() *Scenario {
	s := Arena()
	s.Name = "walled"
	s.Injections = nil
	return s
}

var builtins = map[string]func() *Scenario{
	"arena":  Arena,
	"border": BorderArena,
	"walled": Walled,
}

// Names lists the built-in scenarios.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the built-in scenario called name, or loads name as a
// JSON file.
func Resolve(name string) (*Scenario, error) {
	if f, ok := builtins[name]; ok {
		return f(), nil
	}
	if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("unknown scenario %q (built-in: %v)", name, Names())
	}
	return Load(name)
}
