package main

import (
	"fmt"
	"strconv"

	"github.com/gwillem/roverplan/pkg/gridplan"
	"github.com/gwillem/roverplan/pkg/render"
)

type PlanCommand struct {
	ScenarioOptions
	PNG string `long:"png" description:"Also draw the map and global path to this file"`
}

func (c *PlanCommand) Execute(args []string) error {
	p, err := c.prepare()
	if err != nil {
		return err
	}

	snap := p.Set.Snapshot()
	minDist := p.Config.MinObstacleLocalGoalDistance
	rows := make([][]string, 0, len(p.Path))
	compromised := 0
	for i, wp := range p.Path {
		d := snap.MinDistance(wp)
		status := "ok"
		switch {
		case i == 0:
			status = "start"
		case d <= minDist:
			status = failStyle.Render("too close")
			compromised++
		case i == len(p.Path)-1:
			status = "goal"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			fmt.Sprintf("%.1f", wp.X),
			fmt.Sprintf("%.1f", wp.Y),
			formatDistance(d),
			status,
		})
	}

	fmt.Println(headerStyle.Render("Global path for " + p.Scenario.Name))
	fmt.Println(dimStyle.Render(fmt.Sprintf("bounds (%.0f, %.0f)-(%.0f, %.0f), resolution %g, inflation %g, %d obstacles",
		p.Bounds.Min.X, p.Bounds.Min.Y, p.Bounds.Max.X, p.Bounds.Max.Y,
		p.Scenario.Grid.Resolution, p.Scenario.Grid.Inflation, len(snap))))
	fmt.Println(styledTable([]string{"#", "x", "y", "clearance", "status"}, rows).Render())
	fmt.Printf("%d waypoints, %.1f m", len(p.Path), gridplan.PathLength(p.Path))
	if compromised > 0 {
		fmt.Printf(", %d within %g m of an obstacle and skipped at run time", compromised, minDist)
	}
	fmt.Println()
	if ticks := p.PendingTicks(); len(ticks) > 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("more obstacles appear after ticks %v", ticks)))
	}

	if c.PNG != "" {
		scene := render.Scene{
			Obstacles:  snap,
			GlobalPath: p.Path,
			Goal:       p.Scenario.Goal.Vec(),
			Shape:      p.Config.Shape,
		}
		if err := render.TrajectoryPNG(c.PNG, scene); err != nil {
			return fmt.Errorf("draw plan: %w", err)
		}
		fmt.Printf("Plan drawn to %s\n", c.PNG)
	}
	return nil
}
