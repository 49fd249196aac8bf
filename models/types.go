// ABOUTME: Data models for offline capture, sync, and route planning
// ABOUTME: Defines queued records, leads, hail zones, routes, and sync reports
package models

import (
	"encoding/json"
	"time"
)

// RecordKind identifies what a queued record creates on the remote side.
type RecordKind string

const (
	KindLead     RecordKind = "lead"
	KindFollowUp RecordKind = "followup"
)

// SyncOrder is the order in which record kinds are replayed. Follow-ups may
// reference leads captured in the same offline session, so leads go first.
var SyncOrder = []RecordKind{KindLead, KindFollowUp}

// QueuedRecord is a create operation captured locally and awaiting remote acknowledgement.
type QueuedRecord struct {
	ID         string          `json:"id"`
	Kind       RecordKind      `json:"kind"`
	ParentID   string          `json:"parent_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Synced     bool            `json:"synced"`
	Attempts   int             `json:"attempts,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Lead is a read-only snapshot of a remote lead as consumed by the route optimizer.
type Lead struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Location  Location `json:"location"`
	Status    string   `json:"status,omitempty"`
	Canvassed bool     `json:"canvassed,omitempty"`
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type HailDamageZone struct {
	ID           string    `json:"id"`
	Center       Location  `json:"center"`
	Severity     Severity  `json:"severity"`
	RadiusMeters float64   `json:"radius"`
	Timestamp    time.Time `json:"timestamp"`
}

// SuggestedRoute is computed per optimizer call and never persisted by it.
type SuggestedRoute struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Leads          []Lead           `json:"leads"`
	HailZones      []HailDamageZone `json:"hail_zones"`
	TotalDistance  float64          `json:"total_distance"` // km
	EstimatedTime  int              `json:"estimated_time"` // minutes
	Priority       int              `json:"priority"`
	PotentialLeads int              `json:"potential_leads"`
}

// CachedRoute is the metadata kept for a route downloaded for offline use.
type CachedRoute struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Stops         []Lead    `json:"stops"`
	TotalDistance float64   `json:"total_distance"`
	EstimatedTime int       `json:"estimated_time"`
	CachedAt      time.Time `json:"cached_at"`
}

// SyncError describes one queued record that failed during a sync pass.
type SyncError struct {
	Kind  RecordKind `json:"kind"`
	ID    string     `json:"id"`
	Error string     `json:"error"`
}

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Total        int         `json:"total"`
	Synced       int         `json:"synced"`
	Failed       int         `json:"failed"`
	DeadLettered int         `json:"dead_lettered,omitempty"`
	Errors       []SyncError `json:"errors,omitempty"`
}

type CacheStats struct {
	Routes    int   `json:"routes"`
	Entries   int   `json:"entries"`
	SizeBytes int64 `json:"size_bytes"`
}

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

type SyncState struct {
	Service      string     `json:"service"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SyncRun is the persisted history entry for a finished sync pass.
type SyncRun struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Total        int       `json:"total"`
	Synced       int       `json:"synced"`
	Failed       int       `json:"failed"`
	DeadLettered int       `json:"dead_lettered"`
}
