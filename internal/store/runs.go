package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one execution of the report pipeline.
type Run struct {
	ID           string
	SprintID     string
	SprintName   string
	Status       string
	Error        string
	StoriesTotal int
	StoriesDone  int
	DefectsTotal int
	DefectsDone  int
	Velocity     float64
	ReportPath   string
	ReportURL    string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// RunSummary carries the outcome numbers recorded when a run completes.
type RunSummary struct {
	StoriesTotal int
	StoriesDone  int
	DefectsTotal int
	DefectsDone  int
	Velocity     float64
	ReportPath   string
	ReportURL    string
}

// ChannelResult is the recorded outcome of one channel delivery.
type ChannelResult struct {
	RunID   string
	Channel string
	OK      bool
	Error   string
	SentAt  time.Time
}

// BeginRun inserts a new running record and returns its generated ID.
func (s *Store) BeginRun(ctx context.Context, sprintID, sprintName string) (string, error) {
	id := uuid.NewString()
	_, err := s.ExecContext(ctx,
		`INSERT INTO runs (id, sprint_id, sprint_name, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sprintID, sprintName, StatusRunning, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return id, nil
}

// CompleteRun marks the run succeeded and stores its summary numbers.
func (s *Store) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	_, err := s.ExecContext(ctx,
		`UPDATE runs SET status = ?, stories_total = ?, stories_done = ?,
		 defects_total = ?, defects_done = ?, velocity = ?, report_path = ?,
		 report_url = ?, finished_at = ? WHERE id = ?`,
		StatusSucceeded, summary.StoriesTotal, summary.StoriesDone,
		summary.DefectsTotal, summary.DefectsDone, summary.Velocity,
		summary.ReportPath, summary.ReportURL,
		time.Now().UTC().Format(time.RFC3339), runID)
	return err
}

// FailRun marks the run failed with its error text.
func (s *Store) FailRun(ctx context.Context, runID string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		StatusFailed, msg, time.Now().UTC().Format(time.RFC3339), runID)
	return err
}

// RecordChannel stores one channel delivery outcome for the run.
func (s *Store) RecordChannel(ctx context.Context, runID, channel string, sendErr error) error {
	ok := 1
	msg := ""
	if sendErr != nil {
		ok = 0
		msg = sendErr.Error()
	}
	_, err := s.ExecContext(ctx,
		`INSERT INTO run_channels (run_id, channel, ok, error, sent_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, channel, ok, msg, time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.QueryRowContext(ctx,
		`SELECT id, sprint_id, sprint_name, status, error, stories_total,
		 stories_done, defects_total, defects_done, velocity, report_path,
		 report_url, started_at, finished_at FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.QueryContext(ctx,
		`SELECT id, sprint_id, sprint_name, status, error, stories_total,
		 stories_done, defects_total, defects_done, velocity, report_path,
		 report_url, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// ChannelResults returns the delivery outcomes recorded for a run.
func (s *Store) ChannelResults(ctx context.Context, runID string) ([]ChannelResult, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT run_id, channel, ok, error, sent_at
		 FROM run_channels WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ChannelResult
	for rows.Next() {
		var c ChannelResult
		var ok int
		var ts string
		if err := rows.Scan(&c.RunID, &c.Channel, &ok, &c.Error, &ts); err != nil {
			return nil, err
		}
		c.OK = ok != 0
		c.SentAt = parseTime(ts)
		results = append(results, c)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var started, finished string
	if err := row.Scan(&r.ID, &r.SprintID, &r.SprintName, &r.Status, &r.Error,
		&r.StoriesTotal, &r.StoriesDone, &r.DefectsTotal, &r.DefectsDone,
		&r.Velocity, &r.ReportPath, &r.ReportURL, &started, &finished); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseOptionalTime(finished)
	return &r, nil
}
