// ABOUTME: Background cache worker that owns the cache/ key space
// ABOUTME: Answers CACHE_ROUTE, CACHE_LEADS, CLEAR_CACHE, GET_CACHE_SIZE, and EVICT_ROUTE messages
package offlinecache

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/harperreed/hailtrack/kv"
)

// RequestType names a message understood by the worker.
type RequestType string

const (
	CacheRoute   RequestType = "CACHE_ROUTE"
	CacheLeads   RequestType = "CACHE_LEADS"
	ClearCache   RequestType = "CLEAR_CACHE"
	GetCacheSize RequestType = "GET_CACHE_SIZE"
	EvictRoute   RequestType = "EVICT_ROUTE"
)

const (
	cachePrefix      = "cache/"
	routeCachePrefix = cachePrefix + "route/"
	leadsCachePrefix = cachePrefix + "leads/"
)

// Request is one message to the worker. Reply receives exactly one Response
// and should be buffered so the worker never blocks on a departed caller.
type Request struct {
	Type    RequestType
	RouteID string
	Body    []byte
	Reply   chan<- Response
}

// Response answers a Request. Entries and SizeBytes are set for GET_CACHE_SIZE.
type Response struct {
	OK        bool
	Error     string
	Entries   int
	SizeBytes int64
}

// Worker serves cache requests on its own goroutine.
type Worker struct {
	store    kv.Store
	requests chan Request

	wg sync.WaitGroup
}

func NewWorker(store kv.Store) *Worker {
	return &Worker{
		store:    store,
		requests: make(chan Request),
	}
}

// Start runs the worker loop until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Wait blocks until the loop started by Start has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Requests is the channel the manager posts messages on.
func (w *Worker) Requests() chan<- Request {
	return w.requests
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			resp := w.handle(req)
			if req.Reply == nil {
				continue
			}
			select {
			case req.Reply <- resp:
			default:
				log.Printf("offline cache: dropping %s reply, caller is gone", req.Type)
			}
		}
	}
}

func (w *Worker) handle(req Request) Response {
	var err error
	var resp Response

	switch req.Type {
	case CacheRoute:
		err = w.put(routeCachePrefix, req.RouteID, req.Body)
	case CacheLeads:
		err = w.put(leadsCachePrefix, req.RouteID, req.Body)
	case EvictRoute:
		err = w.evict(req.RouteID)
	case ClearCache:
		err = w.clear()
	case GetCacheSize:
		resp.Entries, resp.SizeBytes, err = w.size()
	default:
		err = fmt.Errorf("unknown request type %q", req.Type)
	}

	if err != nil {
		return Response{Error: err.Error()}
	}
	resp.OK = true
	return resp
}

func (w *Worker) put(prefix, routeID string, body []byte) error {
	if routeID == "" {
		return fmt.Errorf("route id is required")
	}
	return w.store.Set([]byte(prefix+routeID), body)
}

func (w *Worker) evict(routeID string) error {
	for _, prefix := range []string{routeCachePrefix, leadsCachePrefix} {
		if err := w.store.Delete([]byte(prefix + routeID)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) clear() error {
	keys, err := w.store.KeysWithPrefix([]byte(cachePrefix))
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := w.store.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) size() (int, int64, error) {
	keys, err := w.store.KeysWithPrefix([]byte(cachePrefix))
	if err != nil {
		return 0, 0, err
	}
	var total int64
	for _, k := range keys {
		v, err := w.store.Get(k)
		if err != nil {
			continue
		}
		total += int64(len(k) + len(v))
	}
	return len(keys), total, nil
}
