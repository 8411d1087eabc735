package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"roverplan.json" description:"Robot configuration file; defaults are used when it does not exist"`

	Setup SetupCommand `command:"setup" description:"Create the robot configuration interactively"`
	Plan  PlanCommand  `command:"plan" description:"Plan the global path of a scenario and print its waypoints"`
	Run   RunCommand   `command:"run" description:"Run a scenario headless and report the result"`
	Watch WatchCommand `command:"watch" description:"Run a scenario in a live terminal view"`
	Serve ServeCommand `command:"serve" description:"Run a scenario and stream it over a websocket"`
	Ports PortsCommand `command:"ports" description:"List serial ports available for telemetry"`
	Runs  RunsCommand  `command:"runs" description:"List runs recorded in a run log database"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "roverplan - global grid planning and dynamic window navigation for a mobile robot"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
