// ABOUTME: Tests for the local durable queue
// ABOUTME: Covers ordering, durability across reopen, idempotent removal, and dead letters
package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/hailtrack/kv"
	"github.com/harperreed/hailtrack/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	store, err := kv.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func lead(name string) *models.LeadPayload {
	return &models.LeadPayload{Name: name}
}

func followUp(leadID string) *models.FollowUpPayload {
	return &models.FollowUpPayload{
		LeadID:      leadID,
		Type:        models.FollowUpCall,
		ScheduledAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestEnqueueAndListPendingInInsertionOrder(t *testing.T) {
	q := newTestQueue(t)

	var ids []string
	for _, name := range []string{"Ana", "Ben", "Cal", "Dee"} {
		id, err := q.Enqueue(lead(name), "")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := q.Enqueue(followUp(ids[0]), "")
	require.NoError(t, err)

	pending, err := q.ListPending(models.KindLead)
	require.NoError(t, err)
	require.Len(t, pending, 4)
	for i, rec := range pending {
		assert.Equal(t, ids[i], rec.ID)
		assert.False(t, rec.Synced)
		assert.Equal(t, models.KindLead, rec.Kind)
	}

	followUps, err := q.ListPending(models.KindFollowUp)
	require.NoError(t, err)
	require.Len(t, followUps, 1)
	assert.Equal(t, ids[0], followUps[0].ParentID, "parent defaults to the payload lead id")
}

func TestEnqueueIDsAreUniqueWithinOneMillisecond(t *testing.T) {
	q := newTestQueue(t)
	fixed := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 50; i++ {
		id, err := q.Enqueue(lead("Same Instant"), "")
		require.NoError(t, err)
		assert.False(t, seen[id])
		assert.Greater(t, id, prev)
		seen[id] = true
		prev = id
	}
}

func TestEnqueueRejectsInvalidPayload(t *testing.T) {
	q := newTestQueue(t)

	_, err := q.Enqueue(&models.LeadPayload{}, "")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = q.Enqueue(nil, "")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	counts, err := q.PendingCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, counts[models.KindLead])
}

type failingStore struct {
	kv.Store
}

func (failingStore) Set(key, value []byte) error {
	return errors.New("No space left on device")
}

func TestEnqueueStorageFailureIsCaptureError(t *testing.T) {
	inner, err := kv.OpenBadgerInMemory()
	require.NoError(t, err)
	defer func() { _ = inner.Close() }()

	q := New(failingStore{Store: inner})
	_, err = q.Enqueue(lead("Quota"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapture)
}

func TestQueueSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	store, err := kv.OpenBadger(dir)
	require.NoError(t, err)
	q := New(store)

	var kept []string
	for i, name := range []string{"Ana", "Ben", "Cal", "Dee", "Eve"} {
		id, err := q.Enqueue(lead(name), "")
		require.NoError(t, err)
		if i%2 == 1 {
			require.NoError(t, q.Remove(id))
			continue
		}
		kept = append(kept, id)
	}
	require.NoError(t, store.Close())

	// Simulated restart
	store, err = kv.OpenBadger(dir)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	q = New(store)

	pending, err := q.ListPending(models.KindLead)
	require.NoError(t, err)
	require.Len(t, pending, len(kept))
	for i, rec := range pending {
		assert.Equal(t, kept[i], rec.ID)
	}
}

func TestMarkSyncedHidesRecordUntilRemoved(t *testing.T) {
	q := newTestQueue(t)

	id, err := q.Enqueue(lead("Ana"), "")
	require.NoError(t, err)
	require.NoError(t, q.MarkSynced(id))

	pending, err := q.ListPending(models.KindLead)
	require.NoError(t, err)
	assert.Empty(t, pending)

	rec, err := q.Get(id)
	require.NoError(t, err)
	assert.True(t, rec.Synced)

	require.NoError(t, q.Remove(id))
	_, err = q.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, q.MarkSynced("nope"), ErrNotFound)
}

func TestRemoveIsIdempotent(t *testing.T) {
	q := newTestQueue(t)

	id, err := q.Enqueue(lead("Ana"), "")
	require.NoError(t, err)

	require.NoError(t, q.Remove(id))
	require.NoError(t, q.Remove(id))
	require.NoError(t, q.Remove("never-existed"))
}

func TestRemoveRacingRecordFailureStaysRemoved(t *testing.T) {
	q := newTestQueue(t)

	var ids []string
	for i := 0; i < 50; i++ {
		id, err := q.Enqueue(lead("Ana"), "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			// Losing the race to Remove is fine; the record is simply gone.
			_, _ = q.RecordFailure(id, errors.New("timeout"))
		}(id)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, q.Remove(id))
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		_, err := q.Get(id)
		assert.ErrorIs(t, err, ErrNotFound, "removed record %s came back", id)
	}
	pending, err := q.ListPending(models.KindLead)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeadLetterAndRequeue(t *testing.T) {
	q := newTestQueue(t)

	id, err := q.Enqueue(lead("Bad Payload"), "")
	require.NoError(t, err)

	attempts, err := q.RecordFailure(id, errors.New("422 unprocessable"))
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	require.NoError(t, q.DeadLetter(id))

	pending, err := q.ListPending(models.KindLead)
	require.NoError(t, err)
	assert.Empty(t, pending)

	dead, err := q.ListDeadLetters()
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, id, dead[0].ID)
	assert.Equal(t, "422 unprocessable", dead[0].LastError)

	require.NoError(t, q.Requeue(id))
	pending, err = q.ListPending(models.KindLead)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 0, pending[0].Attempts)

	dead, err = q.ListDeadLetters()
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestRequeueLeadRevivesItsFollowUps(t *testing.T) {
	q := newTestQueue(t)

	leadID, err := q.Enqueue(lead("Bad"), "")
	require.NoError(t, err)
	childID, err := q.Enqueue(followUp(leadID), "")
	require.NoError(t, err)
	otherLead, err := q.Enqueue(lead("Other"), "")
	require.NoError(t, err)
	strangerID, err := q.Enqueue(followUp(otherLead), "")
	require.NoError(t, err)

	for _, id := range []string{leadID, childID, otherLead, strangerID} {
		_, err := q.RecordFailure(id, errors.New("422 unprocessable"))
		require.NoError(t, err)
		require.NoError(t, q.DeadLetter(id))
	}

	require.NoError(t, q.Requeue(leadID))

	pending, err := q.ListPending(models.KindFollowUp)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, childID, pending[0].ID)
	assert.Equal(t, 0, pending[0].Attempts)
	assert.Empty(t, pending[0].LastError)

	dead, err := q.ListDeadLetters()
	require.NoError(t, err)
	var deadIDs []string
	for _, rec := range dead {
		deadIDs = append(deadIDs, rec.ID)
	}
	assert.ElementsMatch(t, []string{otherLead, strangerID}, deadIDs)

	// Requeuing a follow-up on its own leaves its dead lead alone.
	require.NoError(t, q.Requeue(strangerID))
	_, err = q.GetDeadLetter(otherLead)
	assert.NoError(t, err)
}

func TestCorruptRecordIsSkippedNotDeleted(t *testing.T) {
	store, err := kv.OpenBadgerInMemory()
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	q := New(store)

	_, err = q.Enqueue(lead("Good"), "")
	require.NoError(t, err)
	require.NoError(t, store.Set([]byte("queue/00000000000000000000000000"), []byte("{not json")))

	pending, err := q.ListPending(models.KindLead)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	raw, err := store.Get([]byte("queue/00000000000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))
}

func TestDecodePayloads(t *testing.T) {
	q := newTestQueue(t)

	leadID, err := q.Enqueue(&models.LeadPayload{Name: "Ana", Phone: "555-0100"}, "")
	require.NoError(t, err)
	fuID, err := q.Enqueue(followUp(leadID), "")
	require.NoError(t, err)

	leadRec, err := q.Get(leadID)
	require.NoError(t, err)
	lp, err := DecodeLead(*leadRec)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", lp.Phone)
	assert.Equal(t, models.LeadStatusNew, lp.Status)

	fuRec, err := q.Get(fuID)
	require.NoError(t, err)
	fp, err := DecodeFollowUp(*fuRec)
	require.NoError(t, err)
	assert.Equal(t, leadID, fp.LeadID)

	_, err = DecodeFollowUp(*leadRec)
	assert.Error(t, err)
}
