// ABOUTME: In-memory fake of the remote API used by reconciler tests
// ABOUTME: Records calls in order and can fail or block selected requests
package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/harperreed/hailtrack/models"
)

type fakeAPI struct {
	mu gosync.Mutex

	calls     []string
	leads     map[string]models.LeadPayload
	followUps map[string]models.FollowUpPayload
	nextID    int

	// failLead fails CreateLead for leads with these names.
	failLead map[string]error
	// failFollowUp fails CreateFollowUp for follow-ups with these notes.
	failFollowUp map[string]error

	// block, when set, holds the first call until released.
	block   chan struct{}
	started chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		leads:        make(map[string]models.LeadPayload),
		followUps:    make(map[string]models.FollowUpPayload),
		failLead:     make(map[string]error),
		failFollowUp: make(map[string]error),
	}
}

func (f *fakeAPI) wait(ctx context.Context) error {
	f.mu.Lock()
	block, started := f.block, f.started
	f.block = nil
	f.mu.Unlock()

	if block == nil {
		return nil
	}
	close(started)
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) CreateLead(ctx context.Context, lead *models.LeadPayload) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "lead:"+lead.Name)
	if err := f.failLead[lead.Name]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("remote-lead-%d", f.nextID)
	f.leads[id] = *lead
	return id, nil
}

func (f *fakeAPI) CreateFollowUp(ctx context.Context, followUp *models.FollowUpPayload) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "followup:"+followUp.Notes)
	if err := f.failFollowUp[followUp.Notes]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("remote-fu-%d", f.nextID)
	f.followUps[id] = *followUp
	return id, nil
}

func (f *fakeAPI) ListLeads(ctx context.Context) ([]models.Lead, error) {
	return nil, nil
}

func (f *fakeAPI) HailZones(ctx context.Context) ([]models.HailDamageZone, error) {
	return nil, nil
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) followUpFor(notes string) (models.FollowUpPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fu := range f.followUps {
		if fu.Notes == notes {
			return fu, true
		}
	}
	return models.FollowUpPayload{}, false
}

func (f *fakeAPI) remoteIDForLead(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, l := range f.leads {
		if l.Name == name {
			return id
		}
	}
	return ""
}
