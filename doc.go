// Package roverplan plans and drives a simulated mobile robot through a 2D
// obstacle field.
//
// A grid A* planner finds a global path over the static map. A dynamic
// window controller then follows that path one local goal at a time,
// sampling velocity commands that the robot can reach and stop from, and
// obstacles may appear while it drives.
//
// # Installation
//
//	go install github.com/gwillem/roverplan/cmd/roverplan@latest
//
// # Usage
//
// Optionally create a robot configuration:
//
//	roverplan setup
//
// Then plan, run or watch a scenario:
//
//	roverplan plan --scenario arena
//	roverplan run --scenario arena --png trajectory.png --db roverplan.db
//	roverplan watch --scenario border --shape circle
//
// # Packages
//
//   - cmd/roverplan: CLI with setup, plan, run, watch, serve, ports and runs commands
//   - pkg/robot: footprint, state, motion model and configuration
//   - pkg/obstacle: concurrent obstacle set and snapshots
//   - pkg/collision: footprint overlap tests and distance to collision
//   - pkg/gridplan: occupancy grid and A* global planner
//   - pkg/dwa: dynamic window controller
//   - pkg/navigate: goal sequencer and paced controller
//   - pkg/scenario: scenario files and built-in arenas
//   - pkg/telemetry: JSON frames over writers, serial ports and websockets
//   - pkg/render: trajectory and cost plots
//   - pkg/runlog: SQLite run log
package roverplan
