// ABOUTME: Nearest-neighbor route construction and ranked route suggestions
// ABOUTME: Builds high-severity, medium-severity, and nearby candidates from a lead snapshot
package routes

import (
	"math"
	"sort"

	"github.com/harperreed/hailtrack/models"
)

const (
	// ProximityRadiusKm bounds the nearby-leads strategy.
	ProximityRadiusKm = 5.0

	minutesPerKm   = 3.0
	minutesPerStop = 15.0
)

// Route ids are fixed per strategy so repeated calls produce identical output.
const (
	RouteIDHighSeverity   = "high-severity"
	RouteIDMediumSeverity = "medium-severity"
	RouteIDNearby         = "nearby"
)

type strategy struct {
	id       string
	name     string
	priority int
	severity models.Severity // empty for proximity
}

// Declaration order breaks priority ties.
var strategies = []strategy{
	{id: RouteIDHighSeverity, name: "High Severity Hail Zones", priority: 10, severity: models.SeverityHigh},
	{id: RouteIDMediumSeverity, name: "Medium Severity Hail Zones", priority: 7, severity: models.SeverityMedium},
	{id: RouteIDNearby, name: "Nearby Leads", priority: 5},
}

// NearestNeighbor orders leads greedily: from start, always visit the closest
// unvisited lead next. Ties go to the lead that appears first in the input.
func NearestNeighbor(start models.Location, leads []models.Lead) []models.Lead {
	remaining := make([]models.Lead, len(leads))
	copy(remaining, leads)

	ordered := make([]models.Lead, 0, len(leads))
	current := start

	for len(remaining) > 0 {
		bestIdx := 0
		bestDistance := math.MaxFloat64

		for i, lead := range remaining {
			if d := Haversine(current, lead.Location); d < bestDistance {
				bestDistance = d
				bestIdx = i
			}
		}

		best := remaining[bestIdx]
		ordered = append(ordered, best)
		current = best.Location
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return ordered
}

// RouteDistance sums the legs of [start, stops...] in kilometers.
func RouteDistance(start models.Location, stops []models.Lead) float64 {
	total := 0.0
	current := start
	for _, stop := range stops {
		total += Haversine(current, stop.Location)
		current = stop.Location
	}
	return total
}

// EstimateMinutes is 3 minutes per km of travel plus 15 minutes per stop.
func EstimateMinutes(distanceKm float64, stops int) int {
	return int(math.Round(distanceKm*minutesPerKm + float64(stops)*minutesPerStop))
}

// GenerateRouteSuggestions returns at most one route per strategy, highest
// priority first. Strategies with no matching leads, or severity strategies
// with no zones of that severity, produce nothing.
func GenerateRouteSuggestions(position models.Location, leads []models.Lead, zones []models.HailDamageZone) []models.SuggestedRoute {
	var open []models.Lead
	for _, lead := range leads {
		if !lead.Canvassed {
			open = append(open, lead)
		}
	}

	var suggestions []models.SuggestedRoute
	for _, s := range strategies {
		var candidates []models.Lead
		var candidateZones []models.HailDamageZone

		if s.severity != "" {
			candidateZones = zonesWithSeverity(zones, s.severity)
			if len(candidateZones) == 0 {
				continue
			}
			candidates = leadsInAnyZone(open, candidateZones)
		} else {
			candidateZones = zones
			for _, lead := range open {
				if Haversine(position, lead.Location) <= ProximityRadiusKm {
					candidates = append(candidates, lead)
				}
			}
		}

		if len(candidates) == 0 {
			continue
		}

		ordered := NearestNeighbor(position, candidates)
		distance := RouteDistance(position, ordered)

		suggestions = append(suggestions, models.SuggestedRoute{
			ID:             s.id,
			Name:           s.name,
			Leads:          ordered,
			HailZones:      zonesTouched(candidateZones, ordered),
			TotalDistance:  distance,
			EstimatedTime:  EstimateMinutes(distance, len(ordered)),
			Priority:       s.priority,
			PotentialLeads: len(ordered),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority > suggestions[j].Priority
	})
	return suggestions
}

func zonesWithSeverity(zones []models.HailDamageZone, severity models.Severity) []models.HailDamageZone {
	var out []models.HailDamageZone
	for _, z := range zones {
		if z.Severity == severity {
			out = append(out, z)
		}
	}
	return out
}

func leadsInAnyZone(leads []models.Lead, zones []models.HailDamageZone) []models.Lead {
	var out []models.Lead
	for _, lead := range leads {
		for _, z := range zones {
			if InZone(lead.Location, z) {
				out = append(out, lead)
				break
			}
		}
	}
	return out
}

// zonesTouched keeps the zones that contain at least one routed lead, in input order.
func zonesTouched(zones []models.HailDamageZone, leads []models.Lead) []models.HailDamageZone {
	out := []models.HailDamageZone{}
	for _, z := range zones {
		for _, lead := range leads {
			if InZone(lead.Location, z) {
				out = append(out, z)
				break
			}
		}
	}
	return out
}
