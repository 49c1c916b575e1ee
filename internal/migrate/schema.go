// Package migrate creates the run-ledger schema on first use (§9.1).
package migrate

import (
	"database/sql"

	"github.com/jimspencer/spidermap/internal/logger"
)

// EnsureSchema creates the cluster_runs table if absent. Idempotent;
// safe to call at the start of every invocation.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cluster_runs (
            id SERIAL PRIMARY KEY,
            input_path TEXT NOT NULL,
            region_count INT NOT NULL,
            kernel TEXT NOT NULL,
            cache_backend TEXT NOT NULL,
            cache_threshold DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL,
            merges_emitted INT NOT NULL DEFAULT 0,
            peak_live_set INT NOT NULL DEFAULT 0,
            duration_ms BIGINT NOT NULL DEFAULT 0,
            started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            finished_at TIMESTAMPTZ
        )`,
		`CREATE INDEX IF NOT EXISTS idx_cluster_runs_status ON cluster_runs(status)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
