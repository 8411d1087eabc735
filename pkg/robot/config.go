package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

const DefaultConfigFile = "roverplan.json"

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the kinematic limits, sampling resolutions, cost gains and
// goal tolerances used by the local controller and goal sequencer.
// Angles are radians, distances metres, times seconds.
type Config struct {
	MaxSpeed        float64 `json:"max_speed"`
	MinSpeed        float64 `json:"min_speed"`
	MaxYawRate      float64 `json:"max_yaw_rate"`
	MaxAccel        float64 `json:"max_accel"`
	MaxDeltaYawRate float64 `json:"max_delta_yaw_rate"`

	VResolution       float64 `json:"v_resolution"`
	YawRateResolution float64 `json:"yaw_rate_resolution"`
	DT                float64 `json:"dt"`
	PredictTime       float64 `json:"predict_time"`
	CheckTime         float64 `json:"check_time"` // horizon for the admissibility check

	ToGoalCostGain   float64 `json:"to_goal_cost_gain"`
	SpeedCostGain    float64 `json:"speed_cost_gain"`
	ObstacleCostGain float64 `json:"obstacle_cost_gain"`

	// RobotStuckFlagCons is the speed below which the robot counts as
	// stopped for the anti-deadlock override.
	RobotStuckFlagCons float64 `json:"robot_stuck_flag_cons"`

	Shape Shape `json:"shape"`

	CatchGoalDist                float64 `json:"catch_goal_dist"`
	CatchLocalGoalDist           float64 `json:"catch_localgoal_dist"`
	ObstacleRadius               float64 `json:"obstacle_radius"`
	MinObstacleLocalGoalDistance float64 `json:"min_obstacle_localgoal_distance"`
}

// DefaultConfig returns the reference parameter set: a 1.2 x 0.5 m
// rectangular robot limited to 1 m/s and 40°/s.
func DefaultConfig() Config {
	return Config{
		MaxSpeed:                     1.0,
		MinSpeed:                     0.0,
		MaxYawRate:                   40.0 * math.Pi / 180.0,
		MaxAccel:                     0.2,
		MaxDeltaYawRate:              40.0 * math.Pi / 180.0,
		VResolution:                  0.01,
		YawRateResolution:            0.1 * math.Pi / 180.0,
		DT:                           0.1,
		PredictTime:                  1.0,
		CheckTime:                    100.0,
		ToGoalCostGain:               0.2,
		SpeedCostGain:                1.0,
		ObstacleCostGain:             0.05,
		RobotStuckFlagCons:           0.001,
		Shape:                        Rectangle(1.2, 0.5),
		CatchGoalDist:                0.5,
		CatchLocalGoalDist:           1.0,
		ObstacleRadius:               0.5,
		MinObstacleLocalGoalDistance: 2.0,
	}
}

// Validate checks the configuration invariants. It must pass before the
// configuration is handed to any planner.
func (c Config) Validate() error {
	if err := c.Shape.Validate(); err != nil {
		return err
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"max_speed", c.MaxSpeed},
		{"min_speed", c.MinSpeed},
		{"max_yaw_rate", c.MaxYawRate},
		{"max_accel", c.MaxAccel},
		{"max_delta_yaw_rate", c.MaxDeltaYawRate},
		{"v_resolution", c.VResolution},
		{"yaw_rate_resolution", c.YawRateResolution},
		{"dt", c.DT},
		{"predict_time", c.PredictTime},
		{"check_time", c.CheckTime},
		{"to_goal_cost_gain", c.ToGoalCostGain},
		{"speed_cost_gain", c.SpeedCostGain},
		{"obstacle_cost_gain", c.ObstacleCostGain},
		{"robot_stuck_flag_cons", c.RobotStuckFlagCons},
		{"catch_goal_dist", c.CatchGoalDist},
		{"catch_localgoal_dist", c.CatchLocalGoalDist},
		{"obstacle_radius", c.ObstacleRadius},
		{"min_obstacle_localgoal_distance", c.MinObstacleLocalGoalDistance},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidConfig, f.name, f.value)
		}
	}

	if c.MaxSpeed < c.MinSpeed {
		return fmt.Errorf("%w: max_speed %g is below min_speed %g", ErrInvalidConfig, c.MaxSpeed, c.MinSpeed)
	}
	if c.MaxYawRate < 0 {
		return fmt.Errorf("%w: max_yaw_rate must be non-negative, got %g", ErrInvalidConfig, c.MaxYawRate)
	}
	if c.MaxAccel <= 0 {
		return fmt.Errorf("%w: max_accel must be positive, got %g", ErrInvalidConfig, c.MaxAccel)
	}
	if c.MaxDeltaYawRate < 0 {
		return fmt.Errorf("%w: max_delta_yaw_rate must be non-negative, got %g", ErrInvalidConfig, c.MaxDeltaYawRate)
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"v_resolution", c.VResolution},
		{"yaw_rate_resolution", c.YawRateResolution},
		{"dt", c.DT},
		{"predict_time", c.PredictTime},
		{"check_time", c.CheckTime},
		{"obstacle_radius", c.ObstacleRadius},
		{"catch_goal_dist", c.CatchGoalDist},
	}
	for _, p := range positive {
		if !(p.value > 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidConfig, p.name, p.value)
		}
	}

	if c.CatchGoalDist > c.CatchLocalGoalDist {
		return fmt.Errorf("%w: catch_goal_dist %g exceeds catch_localgoal_dist %g",
			ErrInvalidConfig, c.CatchGoalDist, c.CatchLocalGoalDist)
	}
	if c.MinObstacleLocalGoalDistance < 0 {
		return fmt.Errorf("%w: min_obstacle_localgoal_distance must be non-negative, got %g",
			ErrInvalidConfig, c.MinObstacleLocalGoalDistance)
	}
	if c.RobotStuckFlagCons < 0 {
		return fmt.Errorf("%w: robot_stuck_flag_cons must be non-negative, got %g", ErrInvalidConfig, c.RobotStuckFlagCons)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads and validates configuration from a specific file.
// Fields missing from the file keep their DefaultConfig values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
