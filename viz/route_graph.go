// ABOUTME: GraphViz rendering of suggested canvassing routes
// ABOUTME: Draws the start position, each route's stop order, and the hail zones its stops fall in
package viz

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/routes"
)

// Output formats accepted by GenerateRouteGraph.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

var routeColors = map[string]string{
	routes.RouteIDHighSeverity:   "red",
	routes.RouteIDMediumSeverity: "orange",
	routes.RouteIDNearby:         "blue",
}

var severityColors = map[models.Severity]string{
	models.SeverityHigh:   "mistyrose",
	models.SeverityMedium: "moccasin",
	models.SeverityLow:    "lightyellow",
}

// GenerateRouteGraph renders suggestions as a directed graph starting at position.
// A lead that appears on several routes is drawn once.
func GenerateRouteGraph(ctx context.Context, position models.Location, suggestions []models.SuggestedRoute, format string) (string, error) {
	var gvFormat graphviz.Format
	switch format {
	case "", FormatDOT:
		gvFormat = graphviz.XDOT
	case FormatSVG:
		gvFormat = graphviz.SVG
	default:
		return "", fmt.Errorf("unknown graph format: %s (valid formats: dot, svg)", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			log.Printf("viz: failed to close graphviz: %v", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			log.Printf("viz: failed to close graph: %v", err)
		}
	}()

	graph.SetLabel("Suggested Routes")
	graph.SetRankDir(cgraph.LRRank)

	start, err := graph.CreateNodeByName("start")
	if err != nil {
		return "", fmt.Errorf("failed to create start node: %w", err)
	}
	start.SetLabel(fmt.Sprintf("You\n%.4f, %.4f", position.Lat, position.Lng))
	start.SetShape("doublecircle")

	leadNodes := make(map[string]*cgraph.Node)
	zoneNodes := make(map[string]*cgraph.Node)
	linked := make(map[string]bool)

	for _, route := range suggestions {
		for _, zone := range route.HailZones {
			if _, ok := zoneNodes[zone.ID]; ok {
				continue
			}
			node, err := graph.CreateNodeByName("zone_" + zone.ID)
			if err != nil {
				return "", fmt.Errorf("failed to create zone node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s hail\n%.1f km", zone.Severity, zone.RadiusMeters/1000))
			node.SetShape("octagon")
			node.SetStyle("filled")
			node.SetFillColor(severityColors[zone.Severity])
			zoneNodes[zone.ID] = node
		}

		for _, lead := range route.Leads {
			if _, ok := leadNodes[lead.ID]; ok {
				continue
			}
			node, err := graph.CreateNodeByName("lead_" + lead.ID)
			if err != nil {
				return "", fmt.Errorf("failed to create lead node: %w", err)
			}
			label := lead.Name
			if lead.Address != "" {
				label += "\n" + lead.Address
			}
			node.SetLabel(label)
			node.SetShape("box")
			leadNodes[lead.ID] = node
		}
	}

	for _, route := range suggestions {
		color := routeColors[route.ID]
		if color == "" {
			color = "black"
		}
		prev := start
		for i, lead := range route.Leads {
			node := leadNodes[lead.ID]
			edge, err := graph.CreateEdgeByName(fmt.Sprintf("%s_%d", route.ID, i), prev, node)
			if err != nil {
				return "", fmt.Errorf("failed to create route edge: %w", err)
			}
			edge.SetColor(color)
			edge.SetLabel(fmt.Sprintf("%d", i+1))
			prev = node
		}

		for _, lead := range route.Leads {
			for _, zone := range route.HailZones {
				key := lead.ID + "/" + zone.ID
				if linked[key] || !routes.InZone(lead.Location, zone) {
					continue
				}
				linked[key] = true
				edge, err := graph.CreateEdgeByName("in_"+zone.ID, leadNodes[lead.ID], zoneNodes[zone.ID])
				if err != nil {
					return "", fmt.Errorf("failed to create zone edge: %w", err)
				}
				edge.SetStyle("dashed")
				edge.SetDir("none")
			}
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}
