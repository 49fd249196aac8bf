// ABOUTME: Contract for the remote data API that queued records are replayed against
// ABOUTME: Defines the API interface and the typed error returned for rejected requests
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/hailtrack/models"
)

// API is the subset of the remote CRM the offline core talks to.
type API interface {
	// CreateLead creates a lead and returns its remote id.
	CreateLead(ctx context.Context, lead *models.LeadPayload) (string, error)
	// CreateFollowUp creates a follow-up. LeadID must already be a remote id.
	CreateFollowUp(ctx context.Context, followUp *models.FollowUpPayload) (string, error)
	ListLeads(ctx context.Context) ([]models.Lead, error)
	HailZones(ctx context.Context) ([]models.HailDamageZone, error)
}

// APIError is a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote api: status %d: %s", e.StatusCode, e.Message)
}

// Permanent reports whether retrying the same request cannot succeed.
func (e *APIError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 &&
		e.StatusCode != 408 && e.StatusCode != 429
}

// IsPermanent reports whether err is an APIError that will not succeed on retry.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Permanent()
}
