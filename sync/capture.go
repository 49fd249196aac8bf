// ABOUTME: Capture path that writes straight to the remote API when possible
// ABOUTME: Falls back to the local queue when offline or when the remote call fails transiently
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/remote"
)

// CaptureResult says where a captured record ended up.
type CaptureResult struct {
	// ID is the remote id when Queued is false, the local queue id otherwise.
	ID     string
	Queued bool
}

// Capture submits payload directly when online and queues it otherwise.
// Validation errors and permanent remote rejections are returned as errors;
// transient remote failures are queued for the next pass.
func (r *Reconciler) Capture(ctx context.Context, payload models.Payload, online bool) (*CaptureResult, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", queue.ErrInvalidPayload)
	}
	if online {
		remoteID, err := r.submitDirect(ctx, payload)
		if err == nil {
			return &CaptureResult{ID: remoteID}, nil
		}
		if isPermanent(err) {
			return nil, err
		}
		log.Printf("sync: direct %s capture failed, queueing: %v", payload.Kind(), err)
	}

	id, err := r.queue.Enqueue(payload, "")
	if err != nil {
		return nil, err
	}
	return &CaptureResult{ID: id, Queued: true}, nil
}

func (r *Reconciler) submitDirect(ctx context.Context, payload models.Payload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", queue.ErrInvalidPayload, err)
	}

	switch p := payload.(type) {
	case *models.LeadPayload:
		return r.api.CreateLead(ctx, p)
	case *models.FollowUpPayload:
		rec := models.QueuedRecord{Kind: models.KindFollowUp, ParentID: p.LeadID}
		leadID, err := r.resolveParent(rec, p.LeadID, nil)
		if err != nil {
			// The lead is still queued; the follow-up has to wait behind it.
			return "", err
		}
		cp := *p
		cp.LeadID = leadID
		return r.api.CreateFollowUp(ctx, &cp)
	default:
		return "", fmt.Errorf("%w: unsupported payload %T", queue.ErrInvalidPayload, payload)
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, queue.ErrInvalidPayload) || remote.IsPermanent(err)
}
