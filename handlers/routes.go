// ABOUTME: Route planning and offline cache MCP tool handlers
// ABOUTME: Implements suggest_routes and the download/list/remove/clear/stats offline route tools
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/offlinecache"
	"github.com/harperreed/hailtrack/routes"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type RouteHandlers struct {
	source routes.Source
	cache  *offlinecache.Manager
}

// NewRouteHandlers wires the route tools. source may be nil when no remote
// API is configured; suggestions then fail while offline routes still work.
func NewRouteHandlers(source routes.Source, cache *offlinecache.Manager) *RouteHandlers {
	return &RouteHandlers{source: source, cache: cache}
}

type PositionInput struct {
	Lat float64 `json:"lat" jsonschema:"Current latitude in degrees"`
	Lng float64 `json:"lng" jsonschema:"Current longitude in degrees"`
}

type SuggestRoutesOutput struct {
	Routes []models.SuggestedRoute `json:"routes"`
}

func (h *RouteHandlers) SuggestRoutes(ctx context.Context, request *mcp.CallToolRequest, input PositionInput) (*mcp.CallToolResult, SuggestRoutesOutput, error) {
	suggestions, err := h.suggest(ctx, input)
	if err != nil {
		return nil, SuggestRoutesOutput{}, err
	}
	return nil, SuggestRoutesOutput{Routes: suggestions}, nil
}

type DownloadRouteInput struct {
	Lat     float64 `json:"lat" jsonschema:"Current latitude in degrees"`
	Lng     float64 `json:"lng" jsonschema:"Current longitude in degrees"`
	RouteID string  `json:"route_id" jsonschema:"Suggested route id: high-severity, medium-severity, or nearby"`
}

type DownloadRouteOutput struct {
	RouteID    string `json:"route_id"`
	Stops      int    `json:"stops"`
	Downloaded bool   `json:"downloaded"`
}

func (h *RouteHandlers) DownloadRouteOffline(ctx context.Context, request *mcp.CallToolRequest, input DownloadRouteInput) (*mcp.CallToolResult, DownloadRouteOutput, error) {
	if input.RouteID == "" {
		return nil, DownloadRouteOutput{}, fmt.Errorf("route_id is required")
	}

	suggestions, err := h.suggest(ctx, PositionInput{Lat: input.Lat, Lng: input.Lng})
	if err != nil {
		return nil, DownloadRouteOutput{}, err
	}

	for _, route := range suggestions {
		if route.ID != input.RouteID {
			continue
		}
		ok := h.cache.DownloadRouteForOffline(ctx, route.ID, route, route.Leads)
		if !ok {
			return nil, DownloadRouteOutput{}, fmt.Errorf("failed to download route %s for offline use", route.ID)
		}
		return nil, DownloadRouteOutput{RouteID: route.ID, Stops: len(route.Leads), Downloaded: true}, nil
	}
	return nil, DownloadRouteOutput{}, fmt.Errorf("no %s route is available from this position", input.RouteID)
}

type ListOfflineRoutesInput struct{}

type ListOfflineRoutesOutput struct {
	Routes []models.CachedRoute `json:"routes"`
}

func (h *RouteHandlers) ListOfflineRoutes(_ context.Context, request *mcp.CallToolRequest, input ListOfflineRoutesInput) (*mcp.CallToolResult, ListOfflineRoutesOutput, error) {
	return nil, ListOfflineRoutesOutput{Routes: h.cache.GetOfflineRoutes()}, nil
}

type RemoveOfflineRouteInput struct {
	RouteID string `json:"route_id" jsonschema:"Id of the downloaded route (required)"`
}

type RemoveOfflineRouteOutput struct {
	RouteID string `json:"route_id"`
	Removed bool   `json:"removed"`
}

func (h *RouteHandlers) RemoveOfflineRoute(ctx context.Context, request *mcp.CallToolRequest, input RemoveOfflineRouteInput) (*mcp.CallToolResult, RemoveOfflineRouteOutput, error) {
	if input.RouteID == "" {
		return nil, RemoveOfflineRouteOutput{}, fmt.Errorf("route_id is required")
	}
	if err := h.cache.RemoveOfflineRoute(ctx, input.RouteID); err != nil {
		return nil, RemoveOfflineRouteOutput{}, err
	}
	return nil, RemoveOfflineRouteOutput{RouteID: input.RouteID, Removed: true}, nil
}

type ClearOfflineCacheInput struct{}

type ClearOfflineCacheOutput struct {
	Cleared bool `json:"cleared"`
}

func (h *RouteHandlers) ClearOfflineCache(ctx context.Context, request *mcp.CallToolRequest, input ClearOfflineCacheInput) (*mcp.CallToolResult, ClearOfflineCacheOutput, error) {
	return nil, ClearOfflineCacheOutput{Cleared: h.cache.ClearCache(ctx)}, nil
}

type OfflineCacheStatsInput struct{}

type OfflineCacheStatsOutput struct {
	Available bool              `json:"available"`
	Stats     models.CacheStats `json:"stats"`
}

func (h *RouteHandlers) OfflineCacheStats(ctx context.Context, request *mcp.CallToolRequest, input OfflineCacheStatsInput) (*mcp.CallToolResult, OfflineCacheStatsOutput, error) {
	stats, ok := h.cache.GetCacheStats(ctx)
	return nil, OfflineCacheStatsOutput{Available: ok, Stats: stats}, nil
}

func (h *RouteHandlers) suggest(ctx context.Context, input PositionInput) ([]models.SuggestedRoute, error) {
	if h.source == nil {
		return nil, fmt.Errorf("no remote API configured; set remote_url to plan routes")
	}
	suggestions, err := routes.Suggest(ctx, h.source, positionOf(input))
	if err != nil {
		return nil, fmt.Errorf("failed to suggest routes: %w", err)
	}
	if suggestions == nil {
		suggestions = []models.SuggestedRoute{}
	}
	return suggestions, nil
}

func positionOf(input PositionInput) models.Location {
	return models.Location{Lat: input.Lat, Lng: input.Lng}
}
