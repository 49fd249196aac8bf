// ABOUTME: Offline cache manager for routes downloaded for use without connectivity
// ABOUTME: Tracks downloaded route metadata and talks to the cache worker with bounded waits
package offlinecache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/harperreed/hailtrack/kv"
	"github.com/harperreed/hailtrack/models"
)

// ErrWorkerUnavailable means the cache worker is absent or did not answer in time.
var ErrWorkerUnavailable = errors.New("offline cache worker unavailable")

// DefaultTimeout bounds each worker round trip.
const DefaultTimeout = 5 * time.Second

// metadataKey holds the list of downloaded routes.
var metadataKey = []byte("offline/routes")

// Manager tracks routes downloaded for offline use.
type Manager struct {
	store   kv.Store
	worker  chan<- Request
	timeout time.Duration

	mu  sync.Mutex
	now func() time.Time
}

// NewManager builds a manager storing metadata in store. worker may be nil,
// in which case every cache operation reports failure.
func NewManager(store kv.Store, worker *Worker, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Manager{
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
	if worker != nil {
		m.worker = worker.Requests()
	}
	return m
}

// DownloadRouteForOffline caches the leads, then the route, and only then
// records the route as downloaded. Any failure leaves no metadata entry,
// including one left by an earlier download of the same id.
func (m *Manager) DownloadRouteForOffline(ctx context.Context, routeID string, route models.SuggestedRoute, leads []models.Lead) bool {
	if routeID == "" {
		return false
	}

	leadsBody, err := json.Marshal(leads)
	if err != nil {
		log.Printf("offline cache: failed to encode leads for %s: %v", routeID, err)
		return false
	}
	routeBody, err := json.Marshal(route)
	if err != nil {
		log.Printf("offline cache: failed to encode route %s: %v", routeID, err)
		return false
	}

	if err := m.send(ctx, Request{Type: CacheLeads, RouteID: routeID, Body: leadsBody}); err != nil {
		log.Printf("offline cache: failed to cache leads for %s: %v", routeID, err)
		m.discard(ctx, routeID)
		return false
	}
	if err := m.send(ctx, Request{Type: CacheRoute, RouteID: routeID, Body: routeBody}); err != nil {
		log.Printf("offline cache: failed to cache route %s: %v", routeID, err)
		m.discard(ctx, routeID)
		return false
	}

	cached := models.CachedRoute{
		ID:            routeID,
		Name:          route.Name,
		Stops:         route.Leads,
		TotalDistance: route.TotalDistance,
		EstimatedTime: route.EstimatedTime,
		CachedAt:      m.now().UTC(),
	}
	if err := m.upsertMetadata(cached); err != nil {
		log.Printf("offline cache: failed to record route %s: %v", routeID, err)
		m.discard(ctx, routeID)
		return false
	}
	return true
}

// GetOfflineRoutes lists downloaded routes. Missing or unreadable metadata
// yields an empty list.
func (m *Manager) GetOfflineRoutes() []models.CachedRoute {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadMetadata()
}

// RemoveOfflineRoute forgets a downloaded route. Unknown ids are a no-op.
func (m *Manager) RemoveOfflineRoute(ctx context.Context, routeID string) error {
	if err := m.forgetMetadata(routeID); err != nil {
		return fmt.Errorf("failed to remove offline route %s: %w", routeID, err)
	}
	m.evictBestEffort(ctx, routeID)
	return nil
}

// ClearCache empties the worker cache and forgets every downloaded route.
func (m *Manager) ClearCache(ctx context.Context) bool {
	if err := m.send(ctx, Request{Type: ClearCache}); err != nil {
		log.Printf("offline cache: failed to clear cache: %v", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(metadataKey); err != nil {
		log.Printf("offline cache: failed to clear route metadata: %v", err)
		return false
	}
	return true
}

// GetCacheStats reports cache size. ok is false when the worker could not answer.
func (m *Manager) GetCacheStats(ctx context.Context) (stats models.CacheStats, ok bool) {
	resp, err := m.call(ctx, Request{Type: GetCacheSize})
	if err != nil {
		log.Printf("offline cache: failed to get cache size: %v", err)
		return models.CacheStats{}, false
	}
	return models.CacheStats{
		Routes:    len(m.GetOfflineRoutes()),
		Entries:   resp.Entries,
		SizeBytes: resp.SizeBytes,
	}, true
}

// discard undoes a failed download. The metadata entry goes first so a
// listed route never points at evicted data.
func (m *Manager) discard(ctx context.Context, routeID string) {
	if err := m.forgetMetadata(routeID); err != nil {
		log.Printf("offline cache: failed to drop metadata for %s: %v", routeID, err)
	}
	m.evictBestEffort(ctx, routeID)
}

func (m *Manager) evictBestEffort(ctx context.Context, routeID string) {
	if err := m.send(ctx, Request{Type: EvictRoute, RouteID: routeID}); err != nil {
		log.Printf("offline cache: failed to evict %s: %v", routeID, err)
	}
}

// send is call for requests that only report success.
func (m *Manager) send(ctx context.Context, req Request) error {
	_, err := m.call(ctx, req)
	return err
}

// call posts req to the worker and waits for its reply, bounded by m.timeout.
func (m *Manager) call(ctx context.Context, req Request) (Response, error) {
	if m.worker == nil {
		return Response{}, ErrWorkerUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	reply := make(chan Response, 1)
	req.Reply = reply

	select {
	case m.worker <- req:
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%w: %s not accepted: %v", ErrWorkerUnavailable, req.Type, ctx.Err())
	}

	select {
	case resp := <-reply:
		if !resp.OK {
			return resp, fmt.Errorf("%s failed: %s", req.Type, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%w: no reply to %s: %v", ErrWorkerUnavailable, req.Type, ctx.Err())
	}
}

func (m *Manager) upsertMetadata(route models.CachedRoute) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := m.loadMetadata()
	replaced := false
	for i := range routes {
		if routes[i].ID == route.ID {
			routes[i] = route
			replaced = true
			break
		}
	}
	if !replaced {
		routes = append(routes, route)
	}
	return m.saveMetadata(routes)
}

func (m *Manager) forgetMetadata(routeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := m.loadMetadata()
	kept := routes[:0]
	for _, r := range routes {
		if r.ID != routeID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(routes) {
		return nil
	}
	return m.saveMetadata(kept)
}

// loadMetadata must be called with m.mu held.
func (m *Manager) loadMetadata() []models.CachedRoute {
	data, err := m.store.Get(metadataKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			log.Printf("offline cache: failed to read route metadata: %v", err)
		}
		return []models.CachedRoute{}
	}

	var routes []models.CachedRoute
	if err := json.Unmarshal(data, &routes); err != nil {
		log.Printf("offline cache: ignoring corrupt route metadata: %v", err)
		return []models.CachedRoute{}
	}
	if routes == nil {
		routes = []models.CachedRoute{}
	}
	return routes
}

// saveMetadata must be called with m.mu held.
func (m *Manager) saveMetadata(routes []models.CachedRoute) error {
	data, err := json.Marshal(routes)
	if err != nil {
		return err
	}
	return m.store.Set(metadataKey, data)
}
