// ABOUTME: MCP resource handlers for exposing queue, sync, and offline route state
// ABOUTME: Provides read-only JSON views addressed by hailtrack:// URIs
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/harperreed/hailtrack/db"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/offlinecache"
	"github.com/harperreed/hailtrack/queue"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "hailtrack://"

// Resource URIs served by ResourceHandlers.
const (
	URIPendingQueue = resourceScheme + "queue/pending"
	URIDeadLetters  = resourceScheme + "queue/dead-letters"
	URIOfflineRoute = resourceScheme + "offline/routes"
	URISyncRuns     = resourceScheme + "sync/runs"
)

type ResourceHandlers struct {
	queue  *queue.Queue
	cache  *offlinecache.Manager
	ledger *sql.DB
}

// NewResourceHandlers wires the resources. ledger may be nil.
func NewResourceHandlers(q *queue.Queue, cache *offlinecache.Manager, ledger *sql.DB) *ResourceHandlers {
	return &ResourceHandlers{queue: q, cache: cache, ledger: ledger}
}

// Resources lists everything ReadResource can serve.
func (h *ResourceHandlers) Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: URIPendingQueue, Name: "pending-queue", Description: "Records captured offline that have not reached the remote API", MIMEType: "application/json"},
		{URI: URIDeadLetters, Name: "dead-letters", Description: "Records that exhausted their sync attempts", MIMEType: "application/json"},
		{URI: URIOfflineRoute, Name: "offline-routes", Description: "Routes downloaded for offline use", MIMEType: "application/json"},
		{URI: URISyncRuns, Name: "sync-runs", Description: "Recent sync passes", MIMEType: "application/json"},
	}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	var data any
	switch uri {
	case URIPendingQueue:
		var all []models.QueuedRecord
		for _, kind := range models.SyncOrder {
			pending, err := h.queue.ListPending(kind)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch pending records: %w", err)
			}
			all = append(all, pending...)
		}
		data = nonNil(all)

	case URIDeadLetters:
		dead, err := h.queue.ListDeadLetters()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch dead letters: %w", err)
		}
		data = nonNil(dead)

	case URIOfflineRoute:
		data = h.cache.GetOfflineRoutes()

	case URISyncRuns:
		if h.ledger == nil {
			data = []models.SyncRun{}
			break
		}
		runs, err := db.ListSyncRuns(h.ledger, 20)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch sync runs: %w", err)
		}
		if runs == nil {
			runs = []models.SyncRun{}
		}
		data = runs

	default:
		return nil, fmt.Errorf("unknown resource: %s", strings.TrimPrefix(uri, resourceScheme))
	}

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		},
	}}, nil
}

func nonNil(records []models.QueuedRecord) []models.QueuedRecord {
	if records == nil {
		return []models.QueuedRecord{}
	}
	return records
}
