package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gwillem/roverplan/pkg/render"
	"github.com/gwillem/roverplan/pkg/scenario"
)

func (c *RunCommand) writeReports(out io.Writer, p *scenario.Prepared, rec *render.Recorder) error {
	if c.PNG == "" && c.CostsPNG == "" && c.HTML == "" {
		return nil
	}
	scene, ok := rec.Scene(p.Path, p.Config.Shape)
	if !ok {
		return fmt.Errorf("no ticks recorded, nothing to draw")
	}

	if c.PNG != "" {
		if err := render.TrajectoryPNG(c.PNG, scene); err != nil {
			return fmt.Errorf("draw trajectory: %w", err)
		}
		fmt.Fprintf(out, "Trajectory drawn to %s\n", c.PNG)
	}
	if c.CostsPNG != "" {
		if err := render.CostsPNG(c.CostsPNG, rec.Samples()); err != nil {
			return fmt.Errorf("draw costs: %w", err)
		}
		fmt.Fprintf(out, "Cost history drawn to %s\n", c.CostsPNG)
	}
	if c.HTML != "" {
		f, err := os.Create(c.HTML)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := render.HTML(f, "roverplan "+p.Scenario.Name, scene, rec.Samples()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", c.HTML)
	}
	return nil
}
