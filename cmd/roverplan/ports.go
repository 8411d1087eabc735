package main

import (
	"fmt"

	"github.com/gwillem/roverplan/pkg/telemetry"
)

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := telemetry.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	fmt.Println(headerStyle.Render("Serial ports"))
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}
	fmt.Println()
	fmt.Println("Stream a run with: " + headerStyle.Render("roverplan run --serial "+ports[0]))
	return nil
}
