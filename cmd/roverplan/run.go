package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/render"
	"github.com/gwillem/roverplan/pkg/runlog"
	"github.com/gwillem/roverplan/pkg/telemetry"
)

type RunCommand struct {
	ScenarioOptions
	DB         string        `long:"db" description:"Record the run in this SQLite run log"`
	PNG        string        `long:"png" description:"Draw the final trajectory to this file"`
	CostsPNG   string        `long:"costs-png" description:"Draw the cost history to this file"`
	HTML       string        `long:"html" description:"Write an interactive HTML report to this file"`
	Serial     string        `long:"serial" description:"Stream JSON frames to this serial port"`
	Baud       int           `long:"baud" default:"115200" description:"Serial baud rate"`
	JSON       bool          `long:"json" description:"Write one JSON frame per tick to stdout"`
	MaxTicks   int           `long:"max-ticks-per-goal" description:"Give up when one goal takes longer than this many ticks"`
	MaxStalled int           `long:"max-deadlock-ticks" description:"Give up after this many ticks without an admissible command"`
	Timeout    time.Duration `long:"timeout" description:"Stop the run after this long"`
}

func (c *RunCommand) Execute(args []string) error {
	p, err := c.prepare()
	if err != nil {
		return err
	}

	// keep stdout clean for frames
	var out io.Writer = os.Stdout
	if c.JSON {
		out = os.Stderr
	}

	seq, err := p.Sequencer(navigate.Options{
		MaxTicksPerGoal:  c.MaxTicks,
		MaxDeadlockTicks: c.MaxStalled,
		Logf:             log.Printf,
	})
	if err != nil {
		return err
	}

	rec := &render.Recorder{}
	observers := []navigate.Observer{p.Injector(seq), rec}

	var frames *telemetry.Writer
	if c.JSON {
		frames = telemetry.NewWriter(os.Stdout)
		observers = append(observers, frames)
	}

	var serialOut *telemetry.Writer
	if c.Serial != "" {
		port, err := telemetry.OpenSerial(c.Serial, c.Baud)
		if err != nil {
			return err
		}
		defer port.Close()
		serialOut = telemetry.NewWriter(port)
		observers = append(observers, serialOut)
	}

	var run *runlog.Run
	if c.DB != "" {
		store, err := runlog.Open(c.DB)
		if err != nil {
			return fmt.Errorf("open run log: %w", err)
		}
		defer store.Close()
		run, err = store.Begin(p.Scenario.Name, p.Config.Shape)
		if err != nil {
			return err
		}
		observers = append(observers, run)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	fmt.Fprintf(out, "Running %s with a %s robot along %d waypoints\n", p.Scenario.Name, p.Config.Shape, len(p.Path))
	started := time.Now()
	res, runErr := seq.Run(ctx, observers...)
	fmt.Fprintln(out, resultTable(p, res, runErr))
	fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("computed in %s", time.Since(started).Round(time.Millisecond))))

	if frames != nil && frames.Err() != nil {
		log.Printf("stdout frames stopped: %v", frames.Err())
	}
	if serialOut != nil {
		if err := serialOut.Err(); err != nil {
			log.Printf("serial frames stopped: %v", err)
		} else {
			fmt.Fprintf(out, "%d frames sent to %s\n", serialOut.Written(), c.Serial)
		}
	}

	if run != nil {
		sum, err := run.Finish(res, runErr)
		if err != nil {
			log.Printf("run log: %v", err)
		} else {
			fmt.Fprintf(out, "Recorded run %s in %s (%.1f m driven, mean speed %.2f m/s)\n",
				sum.ID, c.DB, sum.PathLength, sum.MeanSpeed)
		}
	}

	if err := c.writeReports(out, p, rec); err != nil {
		return err
	}
	return runErr
}
