// ABOUTME: Shared fixtures for MCP handler tests
// ABOUTME: In-memory badger queue, ledger, and a scripted remote API
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	gosync "sync"
	"testing"

	"github.com/harperreed/hailtrack/db"
	"github.com/harperreed/hailtrack/kv"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/offlinecache"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/sync"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	mu        gosync.Mutex
	next      int
	leads     []models.Lead
	zones     []models.HailDamageZone
	createErr error
	created   []string
}

func (s *stubAPI) CreateLead(_ context.Context, lead *models.LeadPayload) (string, error) {
	return s.create("lead", lead.Name)
}

func (s *stubAPI) CreateFollowUp(_ context.Context, f *models.FollowUpPayload) (string, error) {
	return s.create("followup", f.LeadID)
}

func (s *stubAPI) create(kind, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.next++
	s.created = append(s.created, kind+":"+label)
	return fmt.Sprintf("remote-%d", s.next), nil
}

func (s *stubAPI) ListLeads(context.Context) ([]models.Lead, error) {
	return s.leads, nil
}

func (s *stubAPI) HailZones(context.Context) ([]models.HailDamageZone, error) {
	return s.zones, nil
}

func (s *stubAPI) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

var errUnreachable = errors.New("dial tcp: connection refused")

type fixture struct {
	store  *kv.BadgerStore
	queue  *queue.Queue
	ledger *sql.DB
	api    *stubAPI
	rec    *sync.Reconciler
	cache  *offlinecache.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := kv.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ledger, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	worker := offlinecache.NewWorker(store)
	worker.Start(ctx)
	t.Cleanup(func() {
		cancel()
		worker.Wait()
	})

	q := queue.New(store)
	api := &stubAPI{}
	return &fixture{
		store:  store,
		queue:  q,
		ledger: ledger,
		api:    api,
		rec:    sync.NewReconciler(q, api, sync.Options{Ledger: ledger}),
		cache:  offlinecache.NewManager(store, worker, 0),
	}
}
