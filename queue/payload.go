// ABOUTME: Helpers to decode queued record payloads back into typed structs
// ABOUTME: Rejects records whose kind does not match the requested payload
package queue

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/harperreed/hailtrack/models"
)

// DecodeLead returns the lead payload of rec.
func DecodeLead(rec models.QueuedRecord) (*models.LeadPayload, error) {
	if rec.Kind != models.KindLead {
		return nil, fmt.Errorf("record %s is a %s, not a lead", rec.ID, rec.Kind)
	}
	var p models.LeadPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode lead payload %s: %w", rec.ID, err)
	}
	return &p, nil
}

// DecodeFollowUp returns the follow-up payload of rec.
func DecodeFollowUp(rec models.QueuedRecord) (*models.FollowUpPayload, error) {
	if rec.Kind != models.KindFollowUp {
		return nil, fmt.Errorf("record %s is a %s, not a follow-up", rec.ID, rec.Kind)
	}
	var p models.FollowUpPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode follow-up payload %s: %w", rec.ID, err)
	}
	return &p, nil
}
