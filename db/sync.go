// ABOUTME: Database operations for sync_state, sync_log, and sync_runs tables
// ABOUTME: Maps local queue ids to remote ids and records the outcome of each sync pass
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hailtrack/models"
)

// ServiceRemoteAPI is the sync_state row for queue replay against the remote API.
const ServiceRemoteAPI = "remote_api"

// GetSyncState retrieves the sync state for a service. A service that never
// synced returns nil, nil.
func GetSyncState(db *sql.DB, service string) (*models.SyncState, error) {
	var state models.SyncState
	var lastSyncTime sql.NullTime
	var errorMessage sql.NullString

	err := db.QueryRow(`
		SELECT service, last_sync_time, status, error_message, updated_at
		FROM sync_state
		WHERE service = ?
	`, service).Scan(
		&state.Service,
		&lastSyncTime,
		&state.Status,
		&errorMessage,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if lastSyncTime.Valid {
		t := lastSyncTime.Time
		state.LastSyncTime = &t
	}
	if errorMessage.Valid {
		state.ErrorMessage = errorMessage.String
	}

	return &state, nil
}

// UpdateSyncStatus updates the sync status for a service. A pass that ends
// idle also stamps last_sync_time.
func UpdateSyncStatus(db *sql.DB, service, status string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	var lastSync sql.NullTime
	if status == models.SyncStatusIdle {
		lastSync = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (service, last_sync_time, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = COALESCE(excluded.last_sync_time, sync_state.last_sync_time),
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, service, lastSync, status, errorMsgVal)

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// LookupRemoteID returns the remote id acknowledged for a local queue id.
// ok is false when the record was never acknowledged.
func LookupRemoteID(db *sql.DB, localID string) (remoteID string, ok bool, err error) {
	err = db.QueryRow(`SELECT remote_id FROM sync_log WHERE local_id = ?`, localID).Scan(&remoteID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up sync log: %w", err)
	}
	return remoteID, true, nil
}

// RecordAck stores the remote id for an acknowledged local record. Recording
// the same local id twice keeps the first acknowledgement.
func RecordAck(db *sql.DB, localID string, kind models.RecordKind, remoteID string) error {
	_, err := db.Exec(`
		INSERT INTO sync_log (id, local_id, kind, remote_id, acknowledged_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(local_id) DO NOTHING
	`, uuid.New().String(), localID, string(kind), remoteID)

	if err != nil {
		return fmt.Errorf("failed to record acknowledgement: %w", err)
	}
	return nil
}

// CountAcks returns how many records of kind the remote API has acknowledged.
func CountAcks(db *sql.DB, kind models.RecordKind) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sync_log WHERE kind = ?`, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count acknowledgements: %w", err)
	}
	return count, nil
}

// RecordSyncRun appends a finished pass to the run history and returns its id.
func RecordSyncRun(db *sql.DB, startedAt, finishedAt time.Time, report models.SyncReport) (string, error) {
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO sync_runs (id, started_at, finished_at, total, synced, failed, dead_lettered)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, startedAt.UTC(), finishedAt.UTC(), report.Total, report.Synced, report.Failed, report.DeadLettered)
	if err != nil {
		return "", fmt.Errorf("failed to record sync run: %w", err)
	}
	return id, nil
}

// ListSyncRuns returns the most recent runs, newest first.
func ListSyncRuns(db *sql.DB, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, started_at, finished_at, total, synced, failed, dead_lettered
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Total,
			&run.Synced,
			&run.Failed,
			&run.DeadLettered,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}
