// ABOUTME: Typed payloads for records captured while offline
// ABOUTME: Lead and follow-up field sets with boundary validation
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Payload is implemented by every queueable create operation.
type Payload interface {
	Kind() RecordKind
	Validate() error
}

// Lead statuses.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusScheduled = "scheduled"
	LeadStatusWon       = "won"
	LeadStatusLost      = "lost"
)

// Follow-up types.
const (
	FollowUpCall  = "call"
	FollowUpVisit = "visit"
	FollowUpText  = "text"
	FollowUpEmail = "email"
)

var validFollowUpTypes = map[string]bool{
	FollowUpCall:  true,
	FollowUpVisit: true,
	FollowUpText:  true,
	FollowUpEmail: true,
}

// LeadPayload is the field set for a lead captured in the field.
type LeadPayload struct {
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Address      string    `json:"address,omitempty"`
	Location     *Location `json:"location,omitempty"`
	VehicleMake  string    `json:"vehicle_make,omitempty"`
	VehicleModel string    `json:"vehicle_model,omitempty"`
	VehicleYear  int       `json:"vehicle_year,omitempty"`
	DamageNotes  string    `json:"damage_notes,omitempty"`
	Status       string    `json:"status,omitempty"`
	Source       string    `json:"source,omitempty"`
}

func (p *LeadPayload) Kind() RecordKind { return KindLead }

// Validate checks required fields and fills the default status.
func (p *LeadPayload) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("lead name is required")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return fmt.Errorf("invalid email: %s", p.Email)
	}
	if p.Location != nil {
		if err := p.Location.Validate(); err != nil {
			return err
		}
	}
	if p.Status == "" {
		p.Status = LeadStatusNew
	}
	return nil
}

// FollowUpPayload schedules a follow-up against a lead. LeadID may be the
// local id of a lead that is still queued.
type FollowUpPayload struct {
	LeadID      string    `json:"lead_id"`
	Type        string    `json:"type"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes,omitempty"`
}

func (p *FollowUpPayload) Kind() RecordKind { return KindFollowUp }

func (p *FollowUpPayload) Validate() error {
	if p.LeadID == "" {
		return errors.New("follow-up lead_id is required")
	}
	if !validFollowUpTypes[p.Type] {
		return fmt.Errorf("invalid follow-up type: %s", p.Type)
	}
	if p.ScheduledAt.IsZero() {
		return errors.New("follow-up scheduled_at is required")
	}
	return nil
}

// Validate checks that the coordinates are WGS84 degrees.
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude out of range: %f", l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("longitude out of range: %f", l.Lng)
	}
	return nil
}
