package runlog

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/robot"
)

// Summary is one row of the runs table.
type Summary struct {
	ID           string
	Scenario     string
	Shape        string
	StartedAt    time.Time
	FinishedAt   time.Time // zero while the run is in progress
	Reached      bool
	Ticks        int
	Visited      int
	Skipped      int
	Deadlocks    int
	PathLength   float64
	MeanSpeed    float64
	MaxSpeed     float64
	MinClearance float64 // +Inf when nothing was ever in reach
	Error        string
}

// Run records the ticks of one navigation run. It is an observer; every
// tick is written inside one transaction that Finish commits.
type Run struct {
	ID string

	store  *Store
	tx     *sql.Tx
	insert *sql.Stmt

	mu           sync.Mutex
	err          error
	minClearance float64
}

// Begin registers a new run and returns its recorder.
func (s *Store) Begin(scenario string, shape robot.Shape) (*Run, error) {
	id := uuid.NewString()
	if _, err := s.db.Exec(`INSERT INTO runs (run_id, scenario, shape, started_at) VALUES (?, ?, ?, ?)`,
		id, scenario, shape.String(), unixMilli(time.Now())); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	stmt, err := tx.Prepare(`INSERT INTO ticks
		(run_id, tick, t, x, y, heading, v, omega, goal_index, phase, goal_cost, speed_cost, obstacle_cost, clearance, obstacles)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare tick insert: %w", err)
	}
	return &Run{ID: id, store: s, tx: tx, insert: stmt, minClearance: math.Inf(1)}, nil
}

func (r *Run) OnTick(t navigate.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	c := t.Control
	_, err := r.insert.Exec(r.ID, t.N, t.Time,
		t.State.X, t.State.Y, t.State.Heading, t.State.V, t.State.Omega,
		t.GoalIndex, t.Phase.String(),
		c.Costs.Goal, c.Costs.Speed, nullFinite(c.Costs.Obstacle), nullFinite(c.Clearance),
		len(t.Obstacles))
	if err != nil {
		r.err = fmt.Errorf("insert tick %d: %w", t.N, err)
		return
	}
	r.minClearance = math.Min(r.minClearance, c.Clearance)
}

// Err returns the first failed tick insert.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Finish commits the ticks and stores the run summary. runErr is the error
// the run ended with, if any.
func (r *Run) Finish(res navigate.Result, runErr error) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insert.Close()
	if r.err != nil {
		r.tx.Rollback()
		return Summary{}, r.err
	}
	if err := r.tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit ticks: %w", err)
	}

	length, mean, peak := Stats(res.History)
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := r.store.db.Exec(`UPDATE runs SET finished_at = ?, reached = ?, ticks = ?, visited = ?, skipped = ?,
		deadlocks = ?, path_length = ?, mean_speed = ?, max_speed = ?, min_clearance = ?, error = ?
		WHERE run_id = ?`,
		unixMilli(time.Now()), res.Reached, res.Ticks, len(res.Visited), len(res.Skipped),
		res.Deadlocks, length, mean, peak, nullFinite(r.minClearance), errText, r.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("update run: %w", err)
	}
	return r.store.Get(r.ID)
}

// Stats returns the driven path length and the mean and maximum speed over
// a state history.
func Stats(history []robot.State) (length, meanSpeed, maxSpeed float64) {
	if len(history) == 0 {
		return 0, 0, 0
	}
	speeds := make([]float64, len(history))
	steps := make([]float64, 0, len(history))
	for i, s := range history {
		speeds[i] = s.V
		if i > 0 {
			prev := history[i-1]
			steps = append(steps, math.Hypot(s.X-prev.X, s.Y-prev.Y))
		}
	}
	return floats.Sum(steps), stat.Mean(speeds, nil), floats.Max(speeds)
}

func nullFinite(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
