// Package store is the run-ledger data access layer (§9.1): one row per
// clustering invocation, written before the loop starts and updated on
// completion. Purely observational; the merge loop never reads it back.
package store

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/jimspencer/spidermap/internal/logger"
)

// RunStore wraps a *sql.DB. A nil *RunStore (or one wrapping a nil db)
// short-circuits every method to a no-op, so a run without a configured
// database behaves identically to one with the ledger disabled.
type RunStore struct {
	db *sql.DB
}

// AttachDB wraps an already-open database handle.
func AttachDB(db *sql.DB) *RunStore { return &RunStore{db: db} }

// Open opens a new connection pool from a DSN.
func Open(dsn string) (*RunStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RunParams describes a clustering invocation at start time.
type RunParams struct {
	InputPath      string
	RegionCount    int
	Kernel         string
	CacheBackend   string
	CacheThreshold float64
}

// StartRun inserts a status=running row and returns its id, or 0 with a
// nil error when no database is configured.
func (s *RunStore) StartRun(ctx context.Context, p RunParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO cluster_runs
        (input_path, region_count, kernel, cache_backend, cache_threshold, status)
        VALUES ($1, $2, $3, $4, $5, 'running') RETURNING id`,
		p.InputPath, p.RegionCount, p.Kernel, p.CacheBackend, p.CacheThreshold,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	logger.L().Debug("run_ledger_started", "run_id", id)
	return id, nil
}

// RunResult describes a clustering invocation at completion time.
type RunResult struct {
	Status        string // "done" or "failed"
	MergesEmitted int
	PeakLiveSet   int
	DurationMs    int64
}

// FinishRun updates a started row to its terminal status. A no-op when no
// database is configured or runID is 0 (the sentinel StartRun returns in
// that case).
func (s *RunStore) FinishRun(ctx context.Context, runID int64, r RunResult) error {
	if s == nil || s.db == nil || runID == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE cluster_runs SET
        status=$1, merges_emitted=$2, peak_live_set=$3, duration_ms=$4, finished_at=now()
        WHERE id=$5`,
		r.Status, r.MergesEmitted, r.PeakLiveSet, r.DurationMs, runID,
	)
	if err != nil {
		return err
	}
	logger.L().Debug("run_ledger_finished", "run_id", runID, "status", r.Status)
	return nil
}
