// ABOUTME: MCP prompt handlers for field workflows
// ABOUTME: Provides sync-triage and canvass-plan prompt templates
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/routes"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	queue  *queue.Queue
	source routes.Source
}

func NewPromptHandlers(q *queue.Queue, source routes.Source) *PromptHandlers {
	return &PromptHandlers{queue: q, source: source}
}

// Prompts lists the templates GetPrompt can render.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "sync-triage",
			Description: "Review records that failed to sync and suggest fixes",
		},
		{
			Name:        "canvass-plan",
			Description: "Plan a canvassing day from the current position",
			Arguments: []*mcp.PromptArgument{
				{Name: "lat", Description: "Current latitude", Required: true},
				{Name: "lng", Description: "Current longitude", Required: true},
			},
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "sync-triage":
		return h.getSyncTriagePrompt()
	case "canvass-plan":
		return h.getCanvassPlanPrompt(ctx, request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getSyncTriagePrompt() (*mcp.GetPromptResult, error) {
	var failing []models.QueuedRecord
	for _, kind := range models.SyncOrder {
		pending, err := h.queue.ListPending(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch pending records: %w", err)
		}
		for _, rec := range pending {
			if rec.Attempts > 0 {
				failing = append(failing, rec)
			}
		}
	}
	dead, err := h.queue.ListDeadLetters()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dead letters: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString("These offline captures have not reached the CRM.\n\n")

	if len(failing) == 0 && len(dead) == 0 {
		promptText.WriteString("No failing or dead-lettered records. Confirm the queue is healthy.\n")
	}
	if len(failing) > 0 {
		promptText.WriteString(fmt.Sprintf("Retrying (%d):\n", len(failing)))
		for _, rec := range failing {
			promptText.WriteString(fmt.Sprintf("- %s %s, %d attempts, last error: %s\n", rec.Kind, rec.ID, rec.Attempts, rec.LastError))
		}
	}
	if len(dead) > 0 {
		promptText.WriteString(fmt.Sprintf("\nDead-lettered (%d):\n", len(dead)))
		for _, rec := range dead {
			promptText.WriteString(fmt.Sprintf("- %s %s: %s\n", rec.Kind, rec.ID, rec.LastError))
			promptText.WriteString(fmt.Sprintf("  payload: %s\n", string(rec.Payload)))
		}
	}

	promptText.WriteString("\nFor each record, say whether the error looks transient or a data problem,")
	promptText.WriteString(" and whether it should be requeued as-is or re-captured with corrected fields.")

	return &mcp.GetPromptResult{
		Description: "Sync failure triage",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: promptText.String()}},
		},
	}, nil
}

func (h *PromptHandlers) getCanvassPlanPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	lat, err := strconv.ParseFloat(args["lat"], 64)
	if err != nil {
		return nil, fmt.Errorf("lat is required: %w", err)
	}
	lng, err := strconv.ParseFloat(args["lng"], 64)
	if err != nil {
		return nil, fmt.Errorf("lng is required: %w", err)
	}
	if h.source == nil {
		return nil, fmt.Errorf("no remote API configured")
	}

	suggestions, err := routes.Suggest(ctx, h.source, models.Location{Lat: lat, Lng: lng})
	if err != nil {
		return nil, err
	}

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("I am at %.5f, %.5f and want to plan today's canvassing.\n\n", lat, lng))
	if len(suggestions) == 0 {
		promptText.WriteString("No open leads are inside a hail zone or nearby.\n")
	}
	for _, r := range suggestions {
		promptText.WriteString(fmt.Sprintf("%s (priority %d): %d stops, %.1f km, about %d minutes\n",
			r.Name, r.Priority, len(r.Leads), r.TotalDistance, r.EstimatedTime))
		for i, lead := range r.Leads {
			promptText.WriteString(fmt.Sprintf("  %d. %s %s\n", i+1, lead.Name, lead.Address))
		}
	}
	promptText.WriteString("\nRecommend which route to run first, which to download for offline use,")
	promptText.WriteString(" and how to split the day if there is not time for all of them.")

	return &mcp.GetPromptResult{
		Description: "Canvassing plan",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: promptText.String()}},
		},
	}, nil
}
