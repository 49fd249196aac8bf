// ABOUTME: Fetches a fresh lead and hail zone snapshot and builds route suggestions
// ABOUTME: Both remote lists are requested concurrently
package routes

import (
	"context"
	"fmt"
	"log"

	"github.com/harperreed/hailtrack/models"
	"golang.org/x/sync/errgroup"
)

// Source supplies the snapshot the optimizer works on.
type Source interface {
	ListLeads(ctx context.Context) ([]models.Lead, error)
	HailZones(ctx context.Context) ([]models.HailDamageZone, error)
}

// Suggest loads leads and zones from src and returns ranked suggestions for position.
func Suggest(ctx context.Context, src Source, position models.Location) ([]models.SuggestedRoute, error) {
	if err := position.Validate(); err != nil {
		return nil, fmt.Errorf("invalid position: %w", err)
	}

	var leads []models.Lead
	var zones []models.HailDamageZone

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = src.ListLeads(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		zones, err = src.HailZones(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load route snapshot: %w", err)
	}

	suggestions := GenerateRouteSuggestions(position, leads, zones)
	log.Printf("routes: %d suggestions from %d leads and %d zones", len(suggestions), len(leads), len(zones))
	return suggestions, nil
}
