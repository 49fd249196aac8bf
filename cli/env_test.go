// ABOUTME: Tests for Env assembly and the queue-facing commands
// ABOUTME: Uses a badger store under a temp data dir with no remote configured
package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/harperreed/hailtrack/config"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	env, err := OpenEnv(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func TestOpenEnvWithoutRemote(t *testing.T) {
	env := newTestEnv(t)

	assert.Nil(t, env.Remote)
	assert.Nil(t, env.API())
	assert.Nil(t, env.Source())
	assert.False(t, env.Monitor.IsOnline())
	assert.False(t, env.Probe()(context.Background()))
	assert.NotNil(t, env.Cache)
}

func TestOpenEnvRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.KVBackend = "redis"

	_, err := OpenEnv(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kv_backend")
}

func TestCaptureLeadCommandQueuesWhileOffline(t *testing.T) {
	env := newTestEnv(t)

	err := CaptureLeadCommand(env, []string{"--name", "Dana", "--lat", "32.7", "--lng", "-96.8", "--make", "Ford"})
	require.NoError(t, err)

	pending, err := env.Queue.ListPending(models.KindLead)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	lead, err := queue.DecodeLead(pending[0])
	require.NoError(t, err)
	assert.Equal(t, "Dana", lead.Name)
	assert.Equal(t, "Ford", lead.VehicleMake)
	require.NotNil(t, lead.Location)
	assert.InDelta(t, 32.7, lead.Location.Lat, 0.0001)
}

func TestCaptureLeadCommandValidation(t *testing.T) {
	env := newTestEnv(t)

	err := CaptureLeadCommand(env, []string{"--phone", "555"})
	assert.Error(t, err)

	err = CaptureLeadCommand(env, []string{"--name", "Dana", "--lat", "32.7"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "together")

	counts, err := env.Queue.PendingCounts()
	require.NoError(t, err)
	assert.Zero(t, counts[models.KindLead])
}

func TestCaptureFollowUpCommandLinksQueuedLead(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, CaptureLeadCommand(env, []string{"--name", "Dana"}))
	leads, err := env.Queue.ListPending(models.KindLead)
	require.NoError(t, err)
	require.Len(t, leads, 1)

	err = CaptureFollowUpCommand(env, []string{"--lead", leads[0].ID, "--at", "2026-11-01T10:00:00Z", "--type", models.FollowUpCall})
	require.NoError(t, err)

	follows, err := env.Queue.ListPending(models.KindFollowUp)
	require.NoError(t, err)
	require.Len(t, follows, 1)
	assert.Equal(t, leads[0].ID, follows[0].ParentID)
}

func TestCaptureFollowUpCommandBadTime(t *testing.T) {
	env := newTestEnv(t)

	err := CaptureFollowUpCommand(env, []string{"--lead", "remote-1", "--at", "tomorrow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--at")
}

func TestPendingCommandInvalidKind(t *testing.T) {
	env := newTestEnv(t)

	err := PendingCommand(env, []string{"--kind", "invoice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --kind")

	assert.NoError(t, PendingCommand(env, []string{"--kind", "lead"}))
}

func TestRequeueCommand(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.Queue.Enqueue(&models.LeadPayload{Name: "Dana"}, "")
	require.NoError(t, err)
	_, err = env.Queue.RecordFailure(id, errors.New("boom"))
	require.NoError(t, err)
	require.NoError(t, env.Queue.DeadLetter(id))

	require.NoError(t, DeadLettersCommand(env, nil))
	require.NoError(t, RequeueCommand(env, []string{id}))

	dead, err := env.Queue.ListDeadLetters()
	require.NoError(t, err)
	assert.Empty(t, dead)

	rec, err := env.Queue.Get(id)
	require.NoError(t, err)
	assert.Zero(t, rec.Attempts)

	assert.Error(t, RequeueCommand(env, nil))
}

func TestSyncCommandWithoutRemote(t *testing.T) {
	env := newTestEnv(t)

	err := SyncCommand(env, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login")
}

func TestOfflineCommandsWithEmptyCache(t *testing.T) {
	env := newTestEnv(t)

	assert.NoError(t, OfflineListCommand(env, nil))
	assert.NoError(t, OfflineStatsCommand(env, nil))
	assert.NoError(t, OfflineClearCommand(env, nil))
	assert.Error(t, OfflineRemoveCommand(env, nil))
}

func TestRoutesSuggestCommandRequiresRemote(t *testing.T) {
	env := newTestEnv(t)

	err := RoutesSuggestCommand(env, []string{"--lat", "32.7", "--lng", "-96.8"})
	assert.Error(t, err)
}

func TestNewMCPServer(t *testing.T) {
	env := newTestEnv(t)
	assert.NotNil(t, NewMCPServer(env, "test"))
}

func TestDashboardCommand(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Queue.Enqueue(&models.LeadPayload{Name: "Dana"}, "")
	require.NoError(t, err)

	assert.NoError(t, DashboardCommand(env, nil))
}
