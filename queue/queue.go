// ABOUTME: Local durable queue for records captured while offline
// ABOUTME: Persists leads and follow-ups by ULID until the remote API acknowledges them
package queue

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/harperreed/hailtrack/kv"
	"github.com/harperreed/hailtrack/models"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrCapture means the local store refused the write. The capture is lost
	// unless the caller reports it, so it is never retried silently.
	ErrCapture        = errors.New("failed to persist capture to local storage")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNotFound       = errors.New("queued record not found")
)

const (
	pendingPrefix    = "queue/"
	deadLetterPrefix = "deadletter/"
)

// Queue holds records that could not be written to the remote API at capture time.
type Queue struct {
	store kv.Store

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	lastMs  uint64
	now     func() time.Time
}

// New creates a queue over store. The store outlives the queue; closing it is the caller's job.
func New(store kv.Store) *Queue {
	return &Queue{
		store:   store,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Enqueue validates payload and stores it as an unsynced record.
// For follow-ups an empty parentID defaults to the payload's lead id.
func (q *Queue) Enqueue(payload models.Payload, parentID string) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if err := payload.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if fp, ok := payload.(*models.FollowUpPayload); ok && parentID == "" {
		parentID = fp.LeadID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	now := q.now().UTC()
	id, err := q.newID(now)
	if err != nil {
		return "", fmt.Errorf("failed to generate record id: %w", err)
	}

	rec := models.QueuedRecord{
		ID:         id,
		Kind:       payload.Kind(),
		ParentID:   parentID,
		Payload:    body,
		EnqueuedAt: now,
	}
	if err := q.put(pendingPrefix, &rec); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return id, nil
}

// newID returns a ULID that sorts after every id this queue handed out before,
// even if the wall clock steps backwards.
func (q *Queue) newID(now time.Time) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ms := ulid.Timestamp(now)
	if ms < q.lastMs {
		ms = q.lastMs
	}
	q.lastMs = ms

	id, err := ulid.New(ms, q.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ListPending returns unsynced records of kind in insertion order.
func (q *Queue) ListPending(kind models.RecordKind) ([]models.QueuedRecord, error) {
	all, err := q.list(pendingPrefix)
	if err != nil {
		return nil, err
	}

	var pending []models.QueuedRecord
	for _, rec := range all {
		if rec.Kind == kind && !rec.Synced {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}

// PendingCounts returns the number of unsynced records per kind.
func (q *Queue) PendingCounts() (map[models.RecordKind]int, error) {
	all, err := q.list(pendingPrefix)
	if err != nil {
		return nil, err
	}
	counts := make(map[models.RecordKind]int, len(models.SyncOrder))
	for _, kind := range models.SyncOrder {
		counts[kind] = 0
	}
	for _, rec := range all {
		if !rec.Synced {
			counts[rec.Kind]++
		}
	}
	return counts, nil
}

// Get returns a pending-area record by id.
func (q *Queue) Get(id string) (*models.QueuedRecord, error) {
	return q.get(pendingPrefix, id)
}

// MarkSynced flags a record as acknowledged. The record stays stored until Remove.
func (q *Queue) MarkSynced(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.get(pendingPrefix, id)
	if err != nil {
		return err
	}
	rec.Synced = true
	return q.put(pendingPrefix, rec)
}

// Remove deletes a record permanently. Removing an unknown id is a no-op.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.Delete(key(pendingPrefix, id)); err != nil {
		return fmt.Errorf("failed to remove queued record %s: %w", id, err)
	}
	return nil
}

// RecordFailure bumps the attempt counter after a failed remote call and
// returns the new count. The payload is untouched.
func (q *Queue) RecordFailure(id string, cause error) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.get(pendingPrefix, id)
	if err != nil {
		return 0, err
	}
	rec.Attempts++
	if cause != nil {
		rec.LastError = cause.Error()
	}
	if err := q.put(pendingPrefix, rec); err != nil {
		return rec.Attempts, fmt.Errorf("failed to record sync failure: %w", err)
	}
	return rec.Attempts, nil
}

// DeadLetter moves a record out of the pending area. The copy is written
// before the original is deleted so a crash in between never loses it.
func (q *Queue) DeadLetter(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.get(pendingPrefix, id)
	if err != nil {
		return err
	}
	if err := q.put(deadLetterPrefix, rec); err != nil {
		return fmt.Errorf("failed to dead-letter %s: %w", id, err)
	}
	return q.store.Delete(key(pendingPrefix, id))
}

// ListDeadLetters returns dead-lettered records in insertion order.
func (q *Queue) ListDeadLetters() ([]models.QueuedRecord, error) {
	return q.list(deadLetterPrefix)
}

// GetDeadLetter returns a dead-lettered record by id.
func (q *Queue) GetDeadLetter(id string) (*models.QueuedRecord, error) {
	return q.get(deadLetterPrefix, id)
}

// Requeue moves a dead-lettered record back to pending with a fresh attempt
// count. Requeuing a lead also requeues the dead-lettered follow-ups that
// point at it.
func (q *Queue) Requeue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.get(deadLetterPrefix, id)
	if err != nil {
		return err
	}
	if err := q.revive(rec); err != nil {
		return err
	}
	if rec.Kind != models.KindLead {
		return nil
	}

	dead, err := q.list(deadLetterPrefix)
	if err != nil {
		return err
	}
	for i := range dead {
		if dead[i].ParentID != id {
			continue
		}
		if err := q.revive(&dead[i]); err != nil {
			return err
		}
	}
	return nil
}

// revive writes rec back to pending before dropping its dead-letter copy.
// Callers hold q.mu.
func (q *Queue) revive(rec *models.QueuedRecord) error {
	rec.Attempts = 0
	rec.LastError = ""
	if err := q.put(pendingPrefix, rec); err != nil {
		return fmt.Errorf("failed to requeue %s: %w", rec.ID, err)
	}
	return q.store.Delete(key(deadLetterPrefix, rec.ID))
}

func (q *Queue) get(prefix, id string) (*models.QueuedRecord, error) {
	data, err := q.store.Get(key(prefix, id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queued record %s: %w", id, err)
	}

	var rec models.QueuedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt queued record %s: %w", id, err)
	}
	return &rec, nil
}

func (q *Queue) put(prefix string, rec *models.QueuedRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return q.store.Set(key(prefix, rec.ID), data)
}

func (q *Queue) list(prefix string) ([]models.QueuedRecord, error) {
	keys, err := q.store.KeysWithPrefix([]byte(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue: %w", err)
	}

	records := make([]models.QueuedRecord, 0, len(keys))
	for _, k := range keys {
		data, err := q.store.Get(k)
		if errors.Is(err, kv.ErrNotFound) {
			continue // removed between scan and read
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", k, err)
		}

		var rec models.QueuedRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			// Keep the bytes in place; someone may be able to recover them.
			log.Printf("queue: skipping corrupt record %s: %v", k, err)
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func key(prefix, id string) []byte {
	return []byte(prefix + id)
}
