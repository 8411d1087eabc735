// Package dwa implements the dynamic window local controller: each tick it
// samples the velocity commands reachable within one time step, rejects the
// ones that could not stop before a predicted collision, scores the rest and
// returns the cheapest.
package dwa

import (
	"math"

	"github.com/gwillem/roverplan/pkg/robot"
)

// Window is the box of velocity commands reachable from the current state.
type Window struct {
	VMin     float64 `json:"v_min"`
	VMax     float64 `json:"v_max"`
	OmegaMin float64 `json:"omega_min"`
	OmegaMax float64 `json:"omega_max"`
}

// CalcDynamicWindow intersects the kinematic limits with the velocities
// reachable from s in one step of cfg.DT. Every bound is kept inside the
// kinematic limits, even for a state that is already outside them.
func CalcDynamicWindow(s robot.State, cfg robot.Config) Window {
	dv := cfg.MaxAccel * cfg.DT
	dw := cfg.MaxDeltaYawRate * cfg.DT

	clampV := func(v float64) float64 { return clamp(v, cfg.MinSpeed, cfg.MaxSpeed) }
	clampW := func(w float64) float64 { return clamp(w, -cfg.MaxYawRate, cfg.MaxYawRate) }

	return Window{
		VMin:     clampV(s.V - dv),
		VMax:     clampV(s.V + dv),
		OmegaMin: clampW(s.Omega - dw),
		OmegaMax: clampW(s.Omega + dw),
	}
}

// Arange returns lo, lo+step, lo+2·step, ... for every value below hi.
// An empty range (hi <= lo) yields lo alone so that a window collapsed onto
// a single value still offers that value.
func Arange(lo, hi, step float64) []float64 {
	if !(hi > lo) || !(step > 0) {
		return []float64{lo}
	}
	n := int(math.Ceil((hi - lo) / step))
	out := make([]float64, 0, n)
	for i := 0; ; i++ {
		x := lo + float64(i)*step
		if x >= hi {
			break
		}
		out = append(out, x)
	}
	return out
}

// PredictTrajectory integrates cmd from s for cfg.PredictTime. The first
// element is s itself.
func PredictTrajectory(s robot.State, cmd robot.Command, cfg robot.Config) []robot.State {
	steps := int(math.Floor(cfg.PredictTime/cfg.DT+1e-9)) + 1
	traj := make([]robot.State, 0, steps+1)
	traj = append(traj, s)
	for i := 0; i < steps; i++ {
		s = robot.Integrate(s, cmd, cfg.DT)
		traj = append(traj, s)
	}
	return traj
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
