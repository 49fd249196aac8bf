// ABOUTME: Capture and sync MCP tool handlers
// ABOUTME: Implements capture_lead, capture_followup, list_pending, sync_now, and requeue_dead_letter tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/hailtrack/connectivity"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/sync"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CaptureHandlers struct {
	queue      *queue.Queue
	reconciler *sync.Reconciler
	monitor    *connectivity.Monitor
}

// NewCaptureHandlers wires the capture tools. A nil monitor means the
// remote API is treated as unreachable and every capture is queued.
func NewCaptureHandlers(q *queue.Queue, r *sync.Reconciler, m *connectivity.Monitor) *CaptureHandlers {
	return &CaptureHandlers{queue: q, reconciler: r, monitor: m}
}

func (h *CaptureHandlers) online() bool {
	return h.monitor != nil && h.monitor.IsOnline()
}

type CaptureLeadInput struct {
	Name         string   `json:"name" jsonschema:"Lead name (required)"`
	Phone        string   `json:"phone,omitempty" jsonschema:"Phone number"`
	Email        string   `json:"email,omitempty" jsonschema:"Email address"`
	Address      string   `json:"address,omitempty" jsonschema:"Street address"`
	Lat          *float64 `json:"lat,omitempty" jsonschema:"Latitude in degrees"`
	Lng          *float64 `json:"lng,omitempty" jsonschema:"Longitude in degrees"`
	VehicleMake  string   `json:"vehicle_make,omitempty" jsonschema:"Vehicle make"`
	VehicleModel string   `json:"vehicle_model,omitempty" jsonschema:"Vehicle model"`
	VehicleYear  int      `json:"vehicle_year,omitempty" jsonschema:"Vehicle model year"`
	DamageNotes  string   `json:"damage_notes,omitempty" jsonschema:"Description of the hail damage"`
	Source       string   `json:"source,omitempty" jsonschema:"Where the lead came from (door knock, referral, ...)"`
}

type CaptureOutput struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Queued bool   `json:"queued"`
}

func (h *CaptureHandlers) CaptureLead(ctx context.Context, request *mcp.CallToolRequest, input CaptureLeadInput) (*mcp.CallToolResult, CaptureOutput, error) {
	payload := &models.LeadPayload{
		Name:         input.Name,
		Phone:        input.Phone,
		Email:        input.Email,
		Address:      input.Address,
		VehicleMake:  input.VehicleMake,
		VehicleModel: input.VehicleModel,
		VehicleYear:  input.VehicleYear,
		DamageNotes:  input.DamageNotes,
		Source:       input.Source,
	}
	if input.Lat != nil || input.Lng != nil {
		if input.Lat == nil || input.Lng == nil {
			return nil, CaptureOutput{}, fmt.Errorf("lat and lng must be given together")
		}
		payload.Location = &models.Location{Lat: *input.Lat, Lng: *input.Lng}
	}

	res, err := h.reconciler.Capture(ctx, payload, h.online())
	if err != nil {
		return nil, CaptureOutput{}, fmt.Errorf("failed to capture lead: %w", err)
	}
	return nil, CaptureOutput{ID: res.ID, Kind: string(models.KindLead), Queued: res.Queued}, nil
}

type CaptureFollowUpInput struct {
	LeadID      string `json:"lead_id" jsonschema:"Remote lead id, or the local id of a queued lead (required)"`
	Type        string `json:"type" jsonschema:"Follow-up type: call, visit, text, email"`
	ScheduledAt string `json:"scheduled_at" jsonschema:"When the follow-up is due, RFC 3339"`
	Notes       string `json:"notes,omitempty" jsonschema:"Notes for the follow-up"`
}

func (h *CaptureHandlers) CaptureFollowUp(ctx context.Context, request *mcp.CallToolRequest, input CaptureFollowUpInput) (*mcp.CallToolResult, CaptureOutput, error) {
	scheduledAt, err := time.Parse(time.RFC3339, input.ScheduledAt)
	if err != nil {
		return nil, CaptureOutput{}, fmt.Errorf("invalid scheduled_at: %w", err)
	}

	payload := &models.FollowUpPayload{
		LeadID:      input.LeadID,
		Type:        input.Type,
		ScheduledAt: scheduledAt,
		Notes:       input.Notes,
	}

	res, err := h.reconciler.Capture(ctx, payload, h.online())
	if err != nil {
		return nil, CaptureOutput{}, fmt.Errorf("failed to capture follow-up: %w", err)
	}
	return nil, CaptureOutput{ID: res.ID, Kind: string(models.KindFollowUp), Queued: res.Queued}, nil
}

type ListPendingInput struct {
	Kind string `json:"kind,omitempty" jsonschema:"Only list this kind: lead or followup"`
}

type PendingRecord struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	ParentID   string `json:"parent_id,omitempty"`
	EnqueuedAt string `json:"enqueued_at"`
	Attempts   int    `json:"attempts,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

type ListPendingOutput struct {
	Online  bool            `json:"online"`
	Records []PendingRecord `json:"records"`
}

func (h *CaptureHandlers) ListPending(_ context.Context, request *mcp.CallToolRequest, input ListPendingInput) (*mcp.CallToolResult, ListPendingOutput, error) {
	kinds := models.SyncOrder
	if input.Kind != "" {
		kind := models.RecordKind(input.Kind)
		if kind != models.KindLead && kind != models.KindFollowUp {
			return nil, ListPendingOutput{}, fmt.Errorf("invalid kind: %s (valid: lead, followup)", input.Kind)
		}
		kinds = []models.RecordKind{kind}
	}

	out := ListPendingOutput{Online: h.online(), Records: []PendingRecord{}}
	for _, kind := range kinds {
		pending, err := h.queue.ListPending(kind)
		if err != nil {
			return nil, ListPendingOutput{}, fmt.Errorf("failed to list pending records: %w", err)
		}
		for _, rec := range pending {
			out.Records = append(out.Records, pendingRecordToOutput(rec))
		}
	}
	return nil, out, nil
}

type SyncNowInput struct{}

type SyncNowOutput struct {
	Report models.SyncReport `json:"report"`
}

func (h *CaptureHandlers) SyncNow(ctx context.Context, request *mcp.CallToolRequest, input SyncNowInput) (*mcp.CallToolResult, SyncNowOutput, error) {
	if !h.online() {
		counts, err := h.queue.PendingCounts()
		if err != nil {
			return nil, SyncNowOutput{}, fmt.Errorf("failed to count pending records: %w", err)
		}
		return nil, SyncNowOutput{}, fmt.Errorf("remote API is offline; %d leads and %d follow-ups remain queued",
			counts[models.KindLead], counts[models.KindFollowUp])
	}

	report, err := h.reconciler.Sync(ctx, nil)
	if err != nil {
		return nil, SyncNowOutput{}, fmt.Errorf("sync failed: %w", err)
	}
	return nil, SyncNowOutput{Report: *report}, nil
}

type RequeueInput struct {
	ID string `json:"id" jsonschema:"Id of the dead-lettered record (required)"`
}

type RequeueOutput struct {
	ID       string `json:"id"`
	Requeued bool   `json:"requeued"`
}

func (h *CaptureHandlers) RequeueDeadLetter(_ context.Context, request *mcp.CallToolRequest, input RequeueInput) (*mcp.CallToolResult, RequeueOutput, error) {
	if input.ID == "" {
		return nil, RequeueOutput{}, fmt.Errorf("id is required")
	}
	if err := h.queue.Requeue(input.ID); err != nil {
		return nil, RequeueOutput{}, fmt.Errorf("failed to requeue: %w", err)
	}
	return nil, RequeueOutput{ID: input.ID, Requeued: true}, nil
}

func pendingRecordToOutput(rec models.QueuedRecord) PendingRecord {
	return PendingRecord{
		ID:         rec.ID,
		Kind:       string(rec.Kind),
		ParentID:   rec.ParentID,
		EnqueuedAt: rec.EnqueuedAt.Format(time.RFC3339),
		Attempts:   rec.Attempts,
		LastError:  rec.LastError,
	}
}
