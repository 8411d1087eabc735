package main

import (
	"fmt"
	"strconv"

	"github.com/gwillem/roverplan/pkg/runlog"
)

type RunsCommand struct {
	DB    string `long:"db" default:"roverplan.db" description:"Run log database"`
	Limit int    `short:"n" long:"limit" default:"20" description:"Number of runs to show, 0 for all"`
}

func (c *RunsCommand) Execute(args []string) error {
	store, err := runlog.Open(c.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("No runs recorded in %s.\n", c.DB)
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := successStyle.Render("reached")
		switch {
		case r.FinishedAt.IsZero():
			result = dimStyle.Render("unfinished")
		case r.Error != "":
			result = failStyle.Render(r.Error)
		case !r.Reached:
			result = failStyle.Render("not reached")
		}
		rows = append(rows, []string{
			r.ID[:8],
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Scenario,
			r.Shape,
			strconv.Itoa(r.Ticks),
			fmt.Sprintf("%.1f", r.PathLength),
			fmt.Sprintf("%.2f", r.MeanSpeed),
			formatDistance(r.MinClearance),
			result,
		})
	}
	fmt.Println(styledTable(
		[]string{"run", "started", "scenario", "shape", "ticks", "driven (m)", "mean v", "min clearance", "result"},
		rows,
	).Render())
	return nil
}
