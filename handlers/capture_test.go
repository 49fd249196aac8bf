// ABOUTME: Tests for capture and sync MCP tool handlers
// ABOUTME: Covers online/offline capture, pending listing, sync_now, and requeue
package handlers

import (
	"context"
	"testing"

	"github.com/harperreed/hailtrack/connectivity"
	"github.com/harperreed/hailtrack/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestCaptureLeadOffline(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, connectivity.NewMonitor(false))

	_, out, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{
		Name:        "Dana Ortiz",
		Address:     "14 Elm St",
		Lat:         ptr(32.78),
		Lng:         ptr(-96.80),
		DamageNotes: "dented hood",
	})
	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, "lead", out.Kind)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, 0, fx.api.createdCount())

	_, list, err := h.ListPending(context.Background(), nil, ListPendingInput{})
	require.NoError(t, err)
	assert.False(t, list.Online)
	require.Len(t, list.Records, 1)
	assert.Equal(t, out.ID, list.Records[0].ID)
}

func TestCaptureLeadOnline(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, connectivity.NewMonitor(true))

	_, out, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{Name: "Sam Reyes"})
	require.NoError(t, err)
	assert.False(t, out.Queued)
	assert.Equal(t, "remote-1", out.ID)

	counts, err := fx.queue.PendingCounts()
	require.NoError(t, err)
	assert.Zero(t, counts[models.KindLead])
}

func TestCaptureLeadNilMonitorQueues(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, nil)

	_, out, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{Name: "Sam Reyes"})
	require.NoError(t, err)
	assert.True(t, out.Queued)
}

func TestCaptureLeadRejectsHalfLocation(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, nil)

	_, _, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{Name: "Dana", Lat: ptr(10)})
	assert.Error(t, err)
}

func TestCaptureLeadInvalid(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, nil)

	_, _, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{Phone: "555-0101"})
	assert.Error(t, err)

	counts, err := fx.queue.PendingCounts()
	require.NoError(t, err)
	assert.Zero(t, counts[models.KindLead])
}

func TestCaptureFollowUpForQueuedLead(t *testing.T) {
	fx := newFixture(t)
	monitor := connectivity.NewMonitor(false)
	h := NewCaptureHandlers(fx.queue, fx.rec, monitor)

	_, lead, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{Name: "Dana Ortiz"})
	require.NoError(t, err)

	_, fu, err := h.CaptureFollowUp(context.Background(), nil, CaptureFollowUpInput{
		LeadID:      lead.ID,
		Type:        models.FollowUpVisit,
		ScheduledAt: "2026-05-04T15:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, fu.Queued)
	assert.Equal(t, "followup", fu.Kind)

	_, list, err := h.ListPending(context.Background(), nil, ListPendingInput{Kind: "followup"})
	require.NoError(t, err)
	require.Len(t, list.Records, 1)
	assert.Equal(t, lead.ID, list.Records[0].ParentID)
}

func TestCaptureFollowUpBadTime(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, nil)

	_, _, err := h.CaptureFollowUp(context.Background(), nil, CaptureFollowUpInput{
		LeadID:      "lead-1",
		Type:        models.FollowUpCall,
		ScheduledAt: "tomorrow",
	})
	assert.Error(t, err)
}

func TestListPendingInvalidKind(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, nil)

	_, _, err := h.ListPending(context.Background(), nil, ListPendingInput{Kind: "deal"})
	assert.Error(t, err)
}

func TestSyncNowOffline(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, connectivity.NewMonitor(false))

	_, _, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{Name: "Dana"})
	require.NoError(t, err)

	_, _, err = h.SyncNow(context.Background(), nil, SyncNowInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 leads")
}

func TestSyncNowDrainsQueue(t *testing.T) {
	fx := newFixture(t)
	monitor := connectivity.NewMonitor(false)
	h := NewCaptureHandlers(fx.queue, fx.rec, monitor)

	_, lead, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{Name: "Dana"})
	require.NoError(t, err)
	_, _, err = h.CaptureFollowUp(context.Background(), nil, CaptureFollowUpInput{
		LeadID:      lead.ID,
		Type:        models.FollowUpCall,
		ScheduledAt: "2026-05-04T15:00:00Z",
	})
	require.NoError(t, err)

	monitor.SetOnline(true)
	_, out, err := h.SyncNow(context.Background(), nil, SyncNowInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Report.Total)
	assert.Equal(t, 2, out.Report.Synced)

	_, list, err := h.ListPending(context.Background(), nil, ListPendingInput{})
	require.NoError(t, err)
	assert.Empty(t, list.Records)
	assert.Equal(t, []string{"lead:Dana", "followup:remote-1"}, fx.api.created)
}

func TestRequeueDeadLetter(t *testing.T) {
	fx := newFixture(t)
	h := NewCaptureHandlers(fx.queue, fx.rec, nil)

	_, _, err := h.RequeueDeadLetter(context.Background(), nil, RequeueInput{})
	assert.Error(t, err)

	id, err := fx.queue.Enqueue(&models.LeadPayload{Name: "Dana"}, "")
	require.NoError(t, err)
	require.NoError(t, fx.queue.DeadLetter(id))

	_, out, err := h.RequeueDeadLetter(context.Background(), nil, RequeueInput{ID: id})
	require.NoError(t, err)
	assert.True(t, out.Requeued)

	pending, err := fx.queue.ListPending(models.KindLead)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
}

func TestCaptureLeadQueuesWhenRemoteUnreachable(t *testing.T) {
	fx := newFixture(t)
	fx.api.createErr = errUnreachable
	h := NewCaptureHandlers(fx.queue, fx.rec, connectivity.NewMonitor(true))

	_, out, err := h.CaptureLead(context.Background(), nil, CaptureLeadInput{Name: "Dana"})
	require.NoError(t, err)
	assert.True(t, out.Queued)
}
