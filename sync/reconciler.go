// ABOUTME: Reconciler that replays the local queue against the remote API
// ABOUTME: Leads before follow-ups, one record at a time, failures isolated per record
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/harperreed/hailtrack/db"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/remote"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrParentPending means a follow-up's lead has not reached the remote API yet.
	ErrParentPending = errors.New("parent lead has not been synced yet")

	// ErrParentDeadLettered means a follow-up's lead gave up syncing. The
	// follow-up is dead-lettered with it and comes back when the lead is requeued.
	ErrParentDeadLettered = errors.New("parent lead is dead-lettered")
)

// ProgressFunc is called after each acknowledged record.
type ProgressFunc func(synced, total int)

// Options tunes a Reconciler. The zero value replays everything with no
// ledger, no pacing, and no dead-lettering.
type Options struct {
	// Ledger maps acknowledged local ids to remote ids and keeps run history.
	Ledger *sql.DB

	// MaxAttempts moves a record to the dead-letter area once it has failed
	// this many times. Zero retries forever.
	MaxAttempts int

	// Limiter paces remote calls.
	Limiter *rate.Limiter
}

// Reconciler drains the queue into the remote API.
type Reconciler struct {
	queue       *queue.Queue
	api         remote.API
	ledger      *sql.DB
	maxAttempts int
	limiter     *rate.Limiter

	group singleflight.Group
	now   func() time.Time
}

func NewReconciler(q *queue.Queue, api remote.API, opts Options) *Reconciler {
	return &Reconciler{
		queue:       q,
		api:         api,
		ledger:      opts.Ledger,
		maxAttempts: opts.MaxAttempts,
		limiter:     opts.Limiter,
		now:         time.Now,
	}
}

// Sync runs one pass over the pending queue. A call made while a pass is in
// flight waits for that pass and returns its report; onProgress is only
// invoked for the caller that started the pass.
//
// The pass runs on the starting caller's ctx. If that ctx is cancelled the
// pass stops before the next record and the starter gets the partial report
// together with ctx.Err(). A caller that joined the pass is not bound by it:
// it starts a fresh pass instead, and cancelling its own ctx returns
// ctx.Err() without waiting.
func (r *Reconciler) Sync(ctx context.Context, onProgress ProgressFunc) (*models.SyncReport, error) {
	for {
		var started atomic.Bool
		ch := r.group.DoChan("sync", func() (any, error) {
			started.Store(true)
			return r.run(ctx, onProgress)
		})

		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			if !started.Load() {
				return nil, ctx.Err()
			}
			// run watches ctx, so the partial report is on its way.
			res = <-ch
		}

		if !started.Load() && ctx.Err() == nil && isCancellation(res.Err) {
			log.Printf("sync: joined pass was cancelled by its caller, starting another")
			continue
		}
		return copyReport(res.Val), res.Err
	}
}

func copyReport(v any) *models.SyncReport {
	report, _ := v.(*models.SyncReport)
	if report == nil {
		return nil
	}
	cp := *report
	cp.Errors = append([]models.SyncError(nil), report.Errors...)
	return &cp
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *Reconciler) run(ctx context.Context, onProgress ProgressFunc) (*models.SyncReport, error) {
	started := r.now()

	// Snapshot leads first so follow-ups referencing them resolve in the same pass.
	var records []models.QueuedRecord
	for _, kind := range models.SyncOrder {
		pending, err := r.queue.ListPending(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list pending %s records: %w", kind, err)
		}
		records = append(records, pending...)
	}

	report := &models.SyncReport{Total: len(records)}
	if len(records) == 0 {
		return report, nil
	}

	r.setStatus(models.SyncStatusSyncing, nil)

	acked := make(map[string]string)
	var stopErr error

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				stopErr = err
				break
			}
		}

		remoteID, err := r.replay(ctx, rec, acked)
		if err != nil {
			if ctx.Err() != nil {
				stopErr = ctx.Err()
				break
			}
			r.recordFailure(report, rec, err)
			continue
		}

		acked[rec.ID] = remoteID
		r.acknowledge(rec, remoteID)
		report.Synced++
		if onProgress != nil {
			onProgress(report.Synced, report.Total)
		}
	}

	r.finish(started, report, stopErr)
	return report, stopErr
}

// replay submits one record, or resolves it from the ledger when a previous
// pass was acknowledged but crashed before the local delete.
func (r *Reconciler) replay(ctx context.Context, rec models.QueuedRecord, acked map[string]string) (string, error) {
	if r.ledger != nil {
		remoteID, ok, err := db.LookupRemoteID(r.ledger, rec.ID)
		if err != nil {
			return "", err
		}
		if ok {
			log.Printf("sync: %s %s already acknowledged as %s, removing", rec.Kind, rec.ID, remoteID)
			return remoteID, nil
		}
	}

	switch rec.Kind {
	case models.KindLead:
		lead, err := queue.DecodeLead(rec)
		if err != nil {
			return "", err
		}
		return r.api.CreateLead(ctx, lead)

	case models.KindFollowUp:
		followUp, err := queue.DecodeFollowUp(rec)
		if err != nil {
			return "", err
		}
		leadID, err := r.resolveParent(rec, followUp.LeadID, acked)
		if err != nil {
			return "", err
		}
		followUp.LeadID = leadID
		return r.api.CreateFollowUp(ctx, followUp)

	default:
		return "", fmt.Errorf("unknown record kind %q", rec.Kind)
	}
}

// resolveParent maps a follow-up's lead reference to a remote id. A reference
// that is not a known local id is assumed to be a remote id already.
func (r *Reconciler) resolveParent(rec models.QueuedRecord, leadID string, acked map[string]string) (string, error) {
	parent := rec.ParentID
	if parent == "" {
		parent = leadID
	}

	if remoteID, ok := acked[parent]; ok {
		return remoteID, nil
	}
	if r.ledger != nil {
		remoteID, ok, err := db.LookupRemoteID(r.ledger, parent)
		if err != nil {
			return "", err
		}
		if ok {
			return remoteID, nil
		}
	}

	if queued, err := r.queue.Get(parent); err == nil && queued.Kind == models.KindLead && !queued.Synced {
		return "", fmt.Errorf("%w: %s", ErrParentPending, parent)
	}
	if dead, err := r.queue.GetDeadLetter(parent); err == nil && dead.Kind == models.KindLead {
		return "", fmt.Errorf("%w: %s", ErrParentDeadLettered, parent)
	}
	return leadID, nil
}

// acknowledge records the remote id and deletes the local copy. The ledger
// entry is written first so a crash before the delete cannot cause a resubmit.
func (r *Reconciler) acknowledge(rec models.QueuedRecord, remoteID string) {
	if r.ledger != nil {
		if err := db.RecordAck(r.ledger, rec.ID, rec.Kind, remoteID); err != nil {
			log.Printf("sync: failed to record acknowledgement for %s: %v", rec.ID, err)
		}
	}
	if err := r.queue.MarkSynced(rec.ID); err != nil {
		log.Printf("sync: failed to mark %s synced: %v", rec.ID, err)
	}
	if err := r.queue.Remove(rec.ID); err != nil {
		log.Printf("sync: failed to remove %s after acknowledgement: %v", rec.ID, err)
	}
}

func (r *Reconciler) recordFailure(report *models.SyncReport, rec models.QueuedRecord, cause error) {
	report.Failed++
	report.Errors = append(report.Errors, models.SyncError{
		Kind:  rec.Kind,
		ID:    rec.ID,
		Error: cause.Error(),
	})

	// Waiting on a parent is not the record's fault.
	if errors.Is(cause, ErrParentPending) {
		return
	}

	attempts, err := r.queue.RecordFailure(rec.ID, cause)
	if err != nil {
		log.Printf("sync: failed to record failure for %s: %v", rec.ID, err)
		return
	}
	// A follow-up can never land while its lead sits in the dead-letter area.
	orphaned := errors.Is(cause, ErrParentDeadLettered)
	if !orphaned && (r.maxAttempts <= 0 || attempts < r.maxAttempts) {
		return
	}

	if err := r.queue.DeadLetter(rec.ID); err != nil {
		log.Printf("sync: failed to dead-letter %s: %v", rec.ID, err)
		return
	}
	if orphaned {
		log.Printf("sync: dead-lettered %s %s with its parent: %v", rec.Kind, rec.ID, cause)
	} else {
		log.Printf("sync: dead-lettered %s %s after %d attempts: %v", rec.Kind, rec.ID, attempts, cause)
	}
	report.DeadLettered++
}

func (r *Reconciler) finish(started time.Time, report *models.SyncReport, stopErr error) {
	if r.ledger == nil {
		return
	}
	if _, err := db.RecordSyncRun(r.ledger, started, r.now(), *report); err != nil {
		log.Printf("sync: %v", err)
	}

	switch {
	case stopErr != nil:
		msg := fmt.Sprintf("interrupted: %v", stopErr)
		r.setStatus(models.SyncStatusError, &msg)
	case report.Failed > 0:
		msg := fmt.Sprintf("%d of %d records failed", report.Failed, report.Total)
		r.setStatus(models.SyncStatusError, &msg)
	default:
		r.setStatus(models.SyncStatusIdle, nil)
	}
}

func (r *Reconciler) setStatus(status string, msg *string) {
	if r.ledger == nil {
		return
	}
	if err := db.UpdateSyncStatus(r.ledger, db.ServiceRemoteAPI, status, msg); err != nil {
		log.Printf("sync: %v", err)
	}
}
