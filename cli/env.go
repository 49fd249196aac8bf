// ABOUTME: Wires config into the stores, clients, and workers every command needs
// ABOUTME: One Env per process; Close releases the ledger, the cache worker, and the KV store
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/harperreed/hailtrack/config"
	"github.com/harperreed/hailtrack/connectivity"
	"github.com/harperreed/hailtrack/db"
	"github.com/harperreed/hailtrack/kv"
	"github.com/harperreed/hailtrack/offlinecache"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/remote"
	"github.com/harperreed/hailtrack/routes"
	"github.com/harperreed/hailtrack/sync"
)

// Env holds the assembled client. Remote is nil when no remote_url is configured.
type Env struct {
	Config     *config.Config
	Store      kv.Store
	Queue      *queue.Queue
	Ledger     *sql.DB
	Remote     *remote.Client
	Monitor    *connectivity.Monitor
	Reconciler *sync.Reconciler
	Cache      *offlinecache.Manager

	worker *offlinecache.Worker
	cancel context.CancelFunc
}

// OpenEnv opens local storage and, when configured, probes the remote API once
// so the monitor starts in the right state.
func OpenEnv(ctx context.Context, cfg *config.Config) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	ledger, err := db.OpenDatabase(cfg.LedgerPath())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open sync ledger: %w", err)
	}

	env := &Env{
		Config: cfg,
		Store:  store,
		Queue:  queue.New(store),
		Ledger: ledger,
	}

	if cfg.RemoteURL != "" {
		env.Remote = remote.NewClient(cfg.RemoteURL, cfg.APIToken, cfg.RemoteTimeout)
	}

	env.Monitor = connectivity.NewMonitor(false)
	if env.Remote != nil {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		env.Monitor.SetOnline(env.Probe()(probeCtx))
		cancel()
	}

	env.Reconciler = sync.NewReconciler(env.Queue, env.API(), sync.Options{
		Ledger:      ledger,
		MaxAttempts: cfg.MaxSyncAttempts,
		Limiter:     cfg.Limiter(),
	})

	workerCtx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	env.worker = offlinecache.NewWorker(store)
	env.worker.Start(workerCtx)
	env.Cache = offlinecache.NewManager(store, env.worker, cfg.WorkerTimeout)

	return env, nil
}

func openStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.KVBackend {
	case config.BackendCharm:
		store, err := kv.OpenCharm(cfg.CharmHost, cfg.AutoSync)
		if err != nil {
			return nil, fmt.Errorf("failed to open charm store: %w", err)
		}
		return store, nil
	default:
		store, err := kv.OpenBadger(cfg.QueueDir())
		if err != nil {
			return nil, fmt.Errorf("failed to open local store: %w", err)
		}
		return store, nil
	}
}

// API returns the remote API, or a nil interface when none is configured.
func (e *Env) API() remote.API {
	if e.Remote == nil {
		return nil
	}
	return e.Remote
}

// Source returns the route snapshot source, or a nil interface when none is configured.
func (e *Env) Source() routes.Source {
	if e.Remote == nil {
		return nil
	}
	return e.Remote
}

// Probe checks the remote health endpoint.
func (e *Env) Probe() connectivity.Probe {
	if e.Remote == nil {
		return func(context.Context) bool { return false }
	}
	return connectivity.HTTPProbe(e.Remote.HTTPClient(), e.Remote.HealthURL())
}

func (e *Env) Close() {
	if e.cancel != nil {
		e.cancel()
		e.worker.Wait()
	}
	if err := e.Ledger.Close(); err != nil {
		log.Printf("failed to close sync ledger: %v", err)
	}
	if err := e.Store.Close(); err != nil {
		log.Printf("failed to close store: %v", err)
	}
}
