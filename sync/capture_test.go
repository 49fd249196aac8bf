// ABOUTME: Tests for the online/offline capture path and reconnect-triggered sync
// ABOUTME: Direct writes when online, queueing on offline or transient failure
package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/hailtrack/connectivity"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureOnlineWritesDirectly(t *testing.T) {
	q := newTestQueue(t)
	api := newFakeAPI()
	r := NewReconciler(q, api, Options{})

	res, err := r.Capture(context.Background(), &models.LeadPayload{Name: "Ana"}, true)
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Equal(t, api.remoteIDForLead("Ana"), res.ID)
	assert.Equal(t, 0, pendingCount(t, q))
}

func TestCaptureOfflineQueues(t *testing.T) {
	q := newTestQueue(t)
	api := newFakeAPI()
	r := NewReconciler(q, api, Options{})

	res, err := r.Capture(context.Background(), &models.LeadPayload{Name: "Ana"}, false)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Empty(t, api.callLog())
	assert.Equal(t, 1, pendingCount(t, q))
}

func TestCaptureTransientFailureQueues(t *testing.T) {
	q := newTestQueue(t)
	api := newFakeAPI()
	api.failLead["Ana"] = errors.New("dial tcp: i/o timeout")
	r := NewReconciler(q, api, Options{})

	res, err := r.Capture(context.Background(), &models.LeadPayload{Name: "Ana"}, true)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, 1, pendingCount(t, q))
}

func TestCapturePermanentFailureIsReturned(t *testing.T) {
	q := newTestQueue(t)
	api := newFakeAPI()
	api.failLead["Ana"] = &remote.APIError{StatusCode: 400, Message: "bad lead"}
	r := NewReconciler(q, api, Options{})

	_, err := r.Capture(context.Background(), &models.LeadPayload{Name: "Ana"}, true)
	require.Error(t, err)
	assert.True(t, remote.IsPermanent(err))
	assert.Equal(t, 0, pendingCount(t, q))

	_, err = r.Capture(context.Background(), &models.LeadPayload{}, true)
	assert.ErrorIs(t, err, queue.ErrInvalidPayload)

	_, err = r.Capture(context.Background(), nil, false)
	assert.ErrorIs(t, err, queue.ErrInvalidPayload)
}

func TestCaptureFollowUpForQueuedLeadWaitsInQueue(t *testing.T) {
	q := newTestQueue(t)
	api := newFakeAPI()
	r := NewReconciler(q, api, Options{})

	lead := enqueueLead(t, q, "Ana")
	res, err := r.Capture(context.Background(), &models.FollowUpPayload{
		LeadID:      lead,
		Type:        models.FollowUpCall,
		ScheduledAt: time.Date(2026, 7, 2, 9, 0, 0, 0, time.UTC),
		Notes:       "call back",
	}, true)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Empty(t, api.callLog())
}

func TestSyncOnReconnect(t *testing.T) {
	q := newTestQueue(t)
	api := newFakeAPI()
	r := NewReconciler(q, api, Options{})
	enqueueLead(t, q, "Ana")

	monitor := connectivity.NewMonitor(false)
	reports := make(chan *models.SyncReport, 1)
	dispose := r.SyncOnReconnect(context.Background(), monitor, func(rep *models.SyncReport, err error) {
		assert.NoError(t, err)
		reports <- rep
	})
	defer dispose()

	monitor.SetOnline(true)

	select {
	case rep := <-reports:
		assert.Equal(t, 1, rep.Synced)
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect did not trigger a sync pass")
	}

	dispose()
	assert.Equal(t, 0, monitor.ListenerCount())
}
