// ABOUTME: GraphViz and dashboard MCP handlers
// ABOUTME: Provides route_graph and field_dashboard tools for agents
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/harperreed/hailtrack/connectivity"
	"github.com/harperreed/hailtrack/offlinecache"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	routes  *RouteHandlers
	queue   *queue.Queue
	ledger  *sql.DB
	cache   *offlinecache.Manager
	monitor *connectivity.Monitor
}

func NewVizHandlers(routes *RouteHandlers, q *queue.Queue, ledger *sql.DB, cache *offlinecache.Manager, monitor *connectivity.Monitor) *VizHandlers {
	return &VizHandlers{routes: routes, queue: q, ledger: ledger, cache: cache, monitor: monitor}
}

type RouteGraphInput struct {
	Lat    float64 `json:"lat" jsonschema:"Current latitude in degrees"`
	Lng    float64 `json:"lng" jsonschema:"Current longitude in degrees"`
	Format string  `json:"format,omitempty" jsonschema:"Output format: dot (default) or svg"`
}

type RouteGraphOutput struct {
	Format     string `json:"format"`
	Source     string `json:"source"`
	RouteCount int    `json:"route_count"`
	EdgeCount  int    `json:"edge_count"`
}

func (h *VizHandlers) RouteGraph(ctx context.Context, request *mcp.CallToolRequest, input RouteGraphInput) (*mcp.CallToolResult, RouteGraphOutput, error) {
	pos := PositionInput{Lat: input.Lat, Lng: input.Lng}
	suggestions, err := h.routes.suggest(ctx, pos)
	if err != nil {
		return nil, RouteGraphOutput{}, err
	}

	format := input.Format
	if format == "" {
		format = viz.FormatDOT
	}
	src, err := viz.GenerateRouteGraph(ctx, positionOf(pos), suggestions, format)
	if err != nil {
		return nil, RouteGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, RouteGraphOutput{
		Format:     format,
		Source:     src,
		RouteCount: len(suggestions),
		EdgeCount:  strings.Count(src, "->"),
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Dashboard string `json:"dashboard"`
}

func (h *VizHandlers) Dashboard(_ context.Context, request *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	online := h.monitor != nil && h.monitor.IsOnline()
	stats, err := viz.GenerateDashboardStats(h.queue, h.ledger, h.cache, online)
	if err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return nil, DashboardOutput{Dashboard: viz.RenderDashboard(stats)}, nil
}
