// Package persistence journals pipeline runs and job snapshots to SQLite so
// past runs can be inspected after the process exits.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"agentcore/pkg/jobs"
	"agentcore/pkg/logx"
	"agentcore/pkg/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	report      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS job_snapshots (
	job_id     TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	status     TEXT NOT NULL,
	progress   INTEGER NOT NULL,
	result     TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	simulated  INTEGER NOT NULL DEFAULT 0,
	observed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (job_id, observed_at)
);
`

// Store is an explicit handle to the run journal. Callers construct one per
// database path; there is no package-level singleton.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (or creates) the journal at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("persistence")
	logger.Info("run journal opened: %s", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunRecord is one journaled pipeline run.
type RunRecord struct {
	RunID       string
	Description string
	Report      pipeline.Report
	CreatedAt   time.Time
}

// SaveReport journals a finished run's report.
func (s *Store) SaveReport(ctx context.Context, runID, description string, report *pipeline.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, description, report) VALUES (?, ?, ?)`,
		runID, description, string(payload))
	if err != nil {
		return fmt.Errorf("save report for run %s: %w", runID, err)
	}
	return nil
}

// GetReport loads one journaled run by ID.
func (s *Store) GetReport(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, description, report, created_at FROM runs WHERE run_id = ?`, runID)

	var rec RunRecord
	var payload string
	if err := row.Scan(&rec.RunID, &rec.Description, &payload, &rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(payload), &rec.Report); err != nil {
		return nil, fmt.Errorf("decode report for run %s: %w", runID, err)
	}
	return &rec, nil
}

// ListRuns returns journaled runs, newest first, up to limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, description, report, created_at FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var payload string
		if err := rows.Scan(&rec.RunID, &rec.Description, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Report); err != nil {
			return nil, fmt.Errorf("decode report for run %s: %w", rec.RunID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveJobSnapshot journals one observed job state. Snapshots are append-only;
// the newest row for a job ID is its latest known state.
func (s *Store) SaveJobSnapshot(ctx context.Context, runID string, job *jobs.Job) error {
	simulated := 0
	if job.Simulated {
		simulated = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_snapshots (job_id, run_id, status, progress, result, error, simulated, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, runID, string(job.Status), job.Progress, job.Result, job.Error, simulated, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot for job %s: %w", job.ID, err)
	}
	return nil
}

// LatestJobSnapshot returns the most recent journaled state of a job.
func (s *Store) LatestJobSnapshot(ctx context.Context, jobID string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, status, progress, result, error, simulated
		 FROM job_snapshots WHERE job_id = ? ORDER BY observed_at DESC LIMIT 1`, jobID)

	var job jobs.Job
	var status string
	var simulated int
	if err := row.Scan(&job.ID, &status, &job.Progress, &job.Result, &job.Error, &simulated); err != nil {
		return nil, fmt.Errorf("load snapshot for job %s: %w", jobID, err)
	}
	job.Status = jobs.Status(status)
	job.Simulated = simulated == 1
	return &job, nil
}
