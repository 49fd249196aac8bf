// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Summarizes the offline queue, sync history, and downloaded routes
package viz

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/hailtrack/db"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/offlinecache"
	"github.com/harperreed/hailtrack/queue"
)

type DashboardStats struct {
	Online bool

	// Queue overview
	Pending     map[models.RecordKind]int
	DeadLetters int
	Retrying    int

	// Sync state from the ledger
	Status       string
	LastSyncTime *time.Time
	LastError    string
	RecentRuns   []models.SyncRun
	AckedLeads   int
	AckedFollows int

	OfflineRoutes []models.CachedRoute
}

// GenerateDashboardStats gathers dashboard data. ledger and cache may be nil.
func GenerateDashboardStats(q *queue.Queue, ledger *sql.DB, cache *offlinecache.Manager, online bool) (*DashboardStats, error) {
	stats := &DashboardStats{Online: online, Status: models.SyncStatusIdle}

	counts, err := q.PendingCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to count pending records: %w", err)
	}
	stats.Pending = counts

	for _, kind := range models.SyncOrder {
		pending, err := q.ListPending(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list pending records: %w", err)
		}
		for _, rec := range pending {
			if rec.Attempts > 0 {
				stats.Retrying++
			}
		}
	}

	dead, err := q.ListDeadLetters()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	stats.DeadLetters = len(dead)

	if ledger != nil {
		state, err := db.GetSyncState(ledger, db.ServiceRemoteAPI)
		if err != nil {
			return nil, fmt.Errorf("failed to get sync state: %w", err)
		}
		if state != nil {
			stats.Status = state.Status
			stats.LastSyncTime = state.LastSyncTime
			stats.LastError = state.ErrorMessage
		}

		stats.RecentRuns, err = db.ListSyncRuns(ledger, 5)
		if err != nil {
			return nil, fmt.Errorf("failed to list sync runs: %w", err)
		}
		if stats.AckedLeads, err = db.CountAcks(ledger, models.KindLead); err != nil {
			return nil, fmt.Errorf("failed to count acknowledged leads: %w", err)
		}
		if stats.AckedFollows, err = db.CountAcks(ledger, models.KindFollowUp); err != nil {
			return nil, fmt.Errorf("failed to count acknowledged follow-ups: %w", err)
		}
	}

	if cache != nil {
		stats.OfflineRoutes = cache.GetOfflineRoutes()
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  HAILTRACK FIELD DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	connection := "🔴 offline"
	if stats.Online {
		connection = "🟢 online"
	}
	out.WriteString(fmt.Sprintf("CONNECTION  %s\n\n", connection))

	out.WriteString("OFFLINE QUEUE\n")
	renderQueue(&out, stats.Pending)
	out.WriteString("\n")

	out.WriteString("SYNC\n")
	last := "never"
	if stats.LastSyncTime != nil {
		last = formatAgo(time.Since(*stats.LastSyncTime))
	}
	out.WriteString(fmt.Sprintf("  status: %s   last sync: %s\n", stats.Status, last))
	out.WriteString(fmt.Sprintf("  📇 %d leads  📅 %d follow-ups delivered\n", stats.AckedLeads, stats.AckedFollows))
	for _, run := range stats.RecentRuns {
		out.WriteString(fmt.Sprintf("  %s  %d/%d synced, %d failed\n",
			run.FinishedAt.Local().Format("Jan 02 15:04"), run.Synced, run.Total, run.Failed))
	}
	out.WriteString("\n")

	out.WriteString(fmt.Sprintf("OFFLINE ROUTES  %d downloaded\n", len(stats.OfflineRoutes)))
	for _, r := range stats.OfflineRoutes {
		out.WriteString(fmt.Sprintf("  %-28s %2d stops  %.1f km\n", r.Name, len(r.Stops), r.TotalDistance))
	}

	if stats.DeadLetters > 0 || stats.Retrying > 0 || stats.LastError != "" {
		out.WriteString("\nNEEDS ATTENTION\n")
		if stats.Retrying > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d records failed at least once\n", stats.Retrying))
		}
		if stats.DeadLetters > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d records dead-lettered\n", stats.DeadLetters))
		}
		if stats.LastError != "" {
			out.WriteString(fmt.Sprintf("  ⚠️  last error: %s\n", stats.LastError))
		}
	}

	return out.String()
}

func renderQueue(out *strings.Builder, pending map[models.RecordKind]int) {
	maxCount := 0
	for _, n := range pending {
		if n > maxCount {
			maxCount = n
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, kind := range models.SyncOrder {
		n := pending[kind]
		barLength := (n * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-10s %s  %2d\n", kind, bar, n))
	}
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
