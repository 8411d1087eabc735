package runlog

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

const summaryColumns = `run_id, scenario, shape, started_at, finished_at, reached, ticks, visited, skipped,
	deadlocks, path_length, mean_speed, max_speed, min_clearance, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (Summary, error) {
	var s Summary
	var started int64
	var finished sql.NullInt64
	var length, mean, peak, minClr sql.NullFloat64
	var errText sql.NullString
	err := row.Scan(&s.ID, &s.Scenario, &s.Shape, &started, &finished, &s.Reached, &s.Ticks,
		&s.Visited, &s.Skipped, &s.Deadlocks, &length, &mean, &peak, &minClr, &errText)
	if err != nil {
		return Summary{}, err
	}
	s.StartedAt = time.UnixMilli(started).UTC()
	if finished.Valid {
		s.FinishedAt = time.UnixMilli(finished.Int64).UTC()
	}
	s.PathLength = length.Float64
	s.MeanSpeed = mean.Float64
	s.MaxSpeed = peak.Float64
	s.MinClearance = math.Inf(1)
	if minClr.Valid {
		s.MinClearance = minClr.Float64
	}
	s.Error = errText.String
	return s, nil
}

// Get returns the summary of one run.
func (s *Store) Get(id string) (Summary, error) {
	row := s.db.QueryRow(`SELECT `+summaryColumns+` FROM runs WHERE run_id = ?`, id)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return sum, err
}

// List returns the most recent runs first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+summaryColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// TickCount returns the number of ticks recorded for a run.
func (s *Store) TickCount(id string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ticks WHERE run_id = ?`, id).Scan(&n)
	return n, err
}

// Speeds returns the recorded speed of a run per tick, in tick order.
func (s *Store) Speeds(id string) ([]float64, error) {
	rows, err := s.db.Query(`SELECT v FROM ticks WHERE run_id = ? ORDER BY tick`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
