// ABOUTME: MCP server subcommand
// ABOUTME: Exposes capture, sync, route, and offline cache tools over stdio
package cli

import (
	"context"
	"log"

	"github.com/harperreed/hailtrack/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServer builds the server with every tool, resource, and prompt registered
func NewMCPServer(env *Env, version string) *mcp.Server {
	captureHandlers := handlers.NewCaptureHandlers(env.Queue, env.Reconciler, env.Monitor)
	routeHandlers := handlers.NewRouteHandlers(env.Source(), env.Cache)
	vizHandlers := handlers.NewVizHandlers(routeHandlers, env.Queue, env.Ledger, env.Cache, env.Monitor)
	resourceHandlers := handlers.NewResourceHandlers(env.Queue, env.Cache, env.Ledger)
	promptHandlers := handlers.NewPromptHandlers(env.Queue, env.Source())

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "hailtrack",
		Version: version,
	}, nil)

	// Capture and sync
	mcp.AddTool(server, &mcp.Tool{
		Name:        "capture_lead",
		Description: "Capture a hail damage lead. Submitted directly when online, queued for sync otherwise",
	}, captureHandlers.CaptureLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "capture_followup",
		Description: "Schedule a follow-up for a lead. The lead id may be the local id of a queued lead",
	}, captureHandlers.CaptureFollowUp)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pending",
		Description: "List captured records that have not reached the remote CRM yet",
	}, captureHandlers.ListPending)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_now",
		Description: "Replay the offline queue against the remote CRM, leads before follow-ups",
	}, captureHandlers.SyncNow)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "requeue_dead_letter",
		Description: "Move a dead-lettered record back into the pending queue with a fresh attempt count",
	}, captureHandlers.RequeueDeadLetter)

	// Routes and offline cache
	mcp.AddTool(server, &mcp.Tool{
		Name:        "suggest_routes",
		Description: "Suggest canvassing routes from a position, ranked by hail severity then proximity",
	}, routeHandlers.SuggestRoutes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "download_route_offline",
		Description: "Download one suggested route and its leads for offline use",
	}, routeHandlers.DownloadRouteOffline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_offline_routes",
		Description: "List routes downloaded for offline use",
	}, routeHandlers.ListOfflineRoutes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_offline_route",
		Description: "Forget a downloaded route and evict its cached data",
	}, routeHandlers.RemoveOfflineRoute)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_offline_cache",
		Description: "Delete every downloaded route",
	}, routeHandlers.ClearOfflineCache)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "offline_cache_stats",
		Description: "Report how many routes and bytes the offline cache holds",
	}, routeHandlers.OfflineCacheStats)

	// Visualization
	mcp.AddTool(server, &mcp.Tool{
		Name:        "route_graph",
		Description: "Render suggested routes as a GraphViz graph (dot or svg)",
	}, vizHandlers.RouteGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "field_dashboard",
		Description: "Text dashboard of queue depth, sync history, and offline routes",
	}, vizHandlers.Dashboard)

	for _, r := range resourceHandlers.Resources() {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	for _, p := range promptHandlers.Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}

	return server
}

// MCPCommand starts the MCP server on stdio, probing the remote API in the
// background and syncing whenever it comes back.
func MCPCommand(env *Env, version string) error {
	log.Println("Starting hailtrack MCP server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if env.Remote != nil {
		dispose := env.Reconciler.SyncOnReconnect(ctx, env.Monitor, nil)
		defer dispose()
		go func() {
			_ = env.Monitor.Run(ctx, env.Probe(), env.Config.ProbeInterval)
		}()
	}

	return NewMCPServer(env, version).Run(ctx, &mcp.StdioTransport{})
}
