// ABOUTME: Database schema definitions for the sync ledger
// ABOUTME: Tracks acknowledged records, per-service sync state, and sync run history
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_state (
	service TEXT PRIMARY KEY,
	last_sync_time DATETIME,
	status TEXT CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_log (
	id TEXT PRIMARY KEY,
	local_id TEXT NOT NULL,
	kind TEXT NOT NULL CHECK(kind IN ('lead', 'followup')),
	remote_id TEXT NOT NULL,
	acknowledged_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(local_id)
);

CREATE INDEX IF NOT EXISTS idx_sync_log_local ON sync_log(local_id);
CREATE INDEX IF NOT EXISTS idx_sync_log_remote ON sync_log(kind, remote_id);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	synced INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	dead_lettered INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
