package dwa

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gwillem/roverplan/pkg/collision"
	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/robot"
)

// Costs is the weighted cost breakdown of one candidate command.
type Costs struct {
	Goal     float64
	Speed    float64
	Obstacle float64 // +Inf when the candidate starts in contact
	Total    float64
}

// Result is the outcome of one controller tick. Clearance and the obstacle
// cost may be infinite.
type Result struct {
	Command    robot.Command
	Trajectory []robot.State // predicted for the selected sample
	Costs      Costs
	Window     Window
	Clearance  float64 // distance to collision along the selected command
	Evaluated  int
	Admissible int
	Deadlock   bool // no admissible command; Command is zero
	Unstuck    bool // the stall override replaced the yaw rate
}

// ComputeControl selects the velocity command for one tick.
//
// Candidates are visited with v in the outer loop and ω in the inner loop.
// A candidate whose cost equals the best so far replaces it, so among equal
// costs the last one visited wins. If both the selected and the current
// speed are below cfg.RobotStuckFlagCons the yaw rate is forced to
// -cfg.MaxYawRate; the returned trajectory is still the one predicted for
// the selected sample.
func ComputeControl(s robot.State, cfg robot.Config, goal r2.Vec, obs obstacle.Snapshot) Result {
	w := CalcDynamicWindow(s, cfg)
	res := Result{
		Window:     w,
		Trajectory: []robot.State{s},
		Clearance:  math.Inf(1),
	}

	best := math.Inf(1)
	found := false
	for _, v := range Arange(w.VMin, w.VMax, cfg.VResolution) {
		for _, omega := range Arange(w.OmegaMin, w.OmegaMax, cfg.YawRateResolution) {
			res.Evaluated++
			cmd := robot.Command{V: v, Omega: omega}

			dist, _ := collision.DistanceToNearestCollision(s, obs, cmd, cfg)
			if v > math.Sqrt(2*cfg.MaxAccel*dist) {
				continue
			}
			res.Admissible++

			traj := PredictTrajectory(s, cmd, cfg)
			c := Score(traj, goal, dist, cfg)
			if c.Total <= best {
				best = c.Total
				found = true
				res.Command = cmd
				res.Trajectory = traj
				res.Costs = c
				res.Clearance = dist
			}
		}
	}

	if !found {
		res.Deadlock = true
		return res
	}

	if math.Abs(res.Command.V) < cfg.RobotStuckFlagCons && math.Abs(s.V) < cfg.RobotStuckFlagCons {
		res.Command.Omega = -cfg.MaxYawRate
		res.Unstuck = true
	}
	return res
}

// Score weighs a predicted trajectory: heading error towards goal at the
// end of the trajectory, shortfall from the top speed, and inverse
// clearance.
func Score(traj []robot.State, goal r2.Vec, dist float64, cfg robot.Config) Costs {
	end := traj[len(traj)-1]
	c := Costs{
		Goal:     cfg.ToGoalCostGain * HeadingError(end, goal),
		Speed:    cfg.SpeedCostGain * (cfg.MaxSpeed - end.V),
		Obstacle: ObstacleCost(dist, cfg.ObstacleCostGain),
	}
	c.Total = c.Goal + c.Speed + c.Obstacle
	return c
}

// HeadingError returns the absolute angle between the heading of s and
// the bearing from s to goal.
func HeadingError(s robot.State, goal r2.Vec) float64 {
	bearing := math.Atan2(goal.Y-s.Y, goal.X-s.X)
	return math.Abs(robot.NormalizeAngle(bearing - s.Heading))
}

// ObstacleCost is gain/dist, +Inf when already in contact and 0 when no
// collision is predicted.
func ObstacleCost(dist, gain float64) float64 {
	switch {
	case dist == 0:
		return math.Inf(1)
	case math.IsInf(dist, 1):
		return 0
	}
	return gain / dist
}
