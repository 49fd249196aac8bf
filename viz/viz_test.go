// ABOUTME: Tests for route graph rendering and the field dashboard
// ABOUTME: Uses in-memory badger and sqlite stores
package viz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/hailtrack/db"
	"github.com/harperreed/hailtrack/kv"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSuggestions() (models.Location, []models.SuggestedRoute) {
	pos := models.Location{Lat: 32.7767, Lng: -96.7970}
	zones := []models.HailDamageZone{
		{ID: "z1", Center: pos, Severity: models.SeverityHigh, RadiusMeters: 3000, Timestamp: time.Now()},
	}
	leads := []models.Lead{
		{ID: "l1", Name: "Dana Ortiz", Address: "14 Elm St", Location: models.Location{Lat: 32.78, Lng: -96.80}},
		{ID: "l2", Name: "Sam Reyes", Location: models.Location{Lat: 32.77, Lng: -96.79}},
	}
	return pos, routes.GenerateRouteSuggestions(pos, leads, zones)
}

func TestGenerateRouteGraph(t *testing.T) {
	pos, suggestions := sampleSuggestions()
	require.NotEmpty(t, suggestions)

	dot, err := GenerateRouteGraph(context.Background(), pos, suggestions, FormatDOT)
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "Dana Ortiz")
	assert.Contains(t, dot, "Sam Reyes")
	assert.Contains(t, dot, "zone_z1")
	assert.Contains(t, dot, "->")
}

func TestGenerateRouteGraphEmpty(t *testing.T) {
	dot, err := GenerateRouteGraph(context.Background(), models.Location{}, nil, "")
	require.NoError(t, err)
	assert.Contains(t, dot, "start")
}

func TestGenerateRouteGraphUnknownFormat(t *testing.T) {
	_, err := GenerateRouteGraph(context.Background(), models.Location{}, nil, "gif")
	assert.Error(t, err)
}

func TestDashboard(t *testing.T) {
	store, err := kv.OpenBadgerInMemory()
	require.NoError(t, err)
	defer store.Close()
	ledger, err := db.OpenInMemory()
	require.NoError(t, err)
	defer ledger.Close()

	q := queue.New(store)
	id, err := q.Enqueue(&models.LeadPayload{Name: "Dana"}, "")
	require.NoError(t, err)
	_, err = q.RecordFailure(id, errors.New("timeout"))
	require.NoError(t, err)
	dead, err := q.Enqueue(&models.LeadPayload{Name: "Sam"}, "")
	require.NoError(t, err)
	require.NoError(t, q.DeadLetter(dead))

	require.NoError(t, db.RecordAck(ledger, "local-1", models.KindLead, "remote-1"))
	require.NoError(t, db.UpdateSyncStatus(ledger, db.ServiceRemoteAPI, models.SyncStatusIdle, nil))
	now := time.Now()
	_, err = db.RecordSyncRun(ledger, now.Add(-time.Second), now, models.SyncReport{Total: 1, Synced: 1})
	require.NoError(t, err)

	stats, err := GenerateDashboardStats(q, ledger, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending[models.KindLead])
	assert.Equal(t, 1, stats.Retrying)
	assert.Equal(t, 1, stats.DeadLetters)
	assert.Equal(t, 1, stats.AckedLeads)
	require.NotNil(t, stats.LastSyncTime)
	assert.Len(t, stats.RecentRuns, 1)

	out := RenderDashboard(stats)
	assert.Contains(t, out, "HAILTRACK FIELD DASHBOARD")
	assert.Contains(t, out, "online")
	assert.Contains(t, out, "just now")
	assert.Contains(t, out, "1 records dead-lettered")
	assert.True(t, strings.Contains(out, "lead"))
}

func TestDashboardWithoutLedger(t *testing.T) {
	store, err := kv.OpenBadgerInMemory()
	require.NoError(t, err)
	defer store.Close()

	stats, err := GenerateDashboardStats(queue.New(store), nil, nil, false)
	require.NoError(t, err)
	out := RenderDashboard(stats)
	assert.Contains(t, out, "offline")
	assert.Contains(t, out, "never")
	assert.NotContains(t, out, "NEEDS ATTENTION")
}
