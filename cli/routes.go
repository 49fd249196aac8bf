// ABOUTME: Route planning and offline route CLI commands
// ABOUTME: Suggests canvassing routes, renders them with graphviz, and manages downloaded routes
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/routes"
	"github.com/harperreed/hailtrack/viz"
)

func positionFlags(fs *flag.FlagSet) (lat, lng *float64) {
	return fs.Float64("lat", 0, "Current latitude (required)"), fs.Float64("lng", 0, "Current longitude (required)")
}

func suggest(env *Env, fs *flag.FlagSet, lat, lng float64) ([]models.SuggestedRoute, models.Location, error) {
	set := flagsSet(fs)
	if !set["lat"] || !set["lng"] {
		return nil, models.Location{}, fmt.Errorf("--lat and --lng are required")
	}
	src := env.Source()
	if src == nil {
		return nil, models.Location{}, fmt.Errorf("no remote API configured. Run 'hailtrack login' first")
	}
	pos := models.Location{Lat: lat, Lng: lng}
	suggestions, err := routes.Suggest(context.Background(), src, pos)
	if err != nil {
		return nil, pos, fmt.Errorf("failed to suggest routes: %w", err)
	}
	return suggestions, pos, nil
}

// RoutesSuggestCommand prints ranked route suggestions from the given position
func RoutesSuggestCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("routes suggest", flag.ExitOnError)
	lat, lng := positionFlags(fs)
	graphPath := fs.String("graph", "", "Also write a graph of the routes to this file")
	format := fs.String("format", viz.FormatDOT, "Graph format: dot or svg")
	_ = fs.Parse(args)

	suggestions, pos, err := suggest(env, fs, *lat, *lng)
	if err != nil {
		return err
	}

	if len(suggestions) == 0 {
		fmt.Println("No open leads inside a hail zone or nearby")
	}
	for _, r := range suggestions {
		fmt.Printf("%s [%s]  priority %d  %d stops  %.1f km  ~%d min\n",
			r.Name, r.ID, r.Priority, len(r.Leads), r.TotalDistance, r.EstimatedTime)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for i, lead := range r.Leads {
			_, _ = fmt.Fprintf(w, "  %d.\t%s\t%s\t%s\n", i+1, lead.Name, lead.Address, lead.ID)
		}
		_ = w.Flush()
		fmt.Println()
	}

	if *graphPath == "" {
		return nil
	}
	out, err := viz.GenerateRouteGraph(context.Background(), pos, suggestions, *format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*graphPath, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	fmt.Printf("✓ Graph written to %s\n", *graphPath)
	return nil
}

// OfflineDownloadCommand caches one suggested route for offline use
func OfflineDownloadCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("offline download", flag.ExitOnError)
	lat, lng := positionFlags(fs)
	routeID := fs.String("route", "", "Route id: high-severity, medium-severity, or nearby (required)")
	_ = fs.Parse(args)

	if *routeID == "" {
		return fmt.Errorf("--route is required")
	}
	suggestions, _, err := suggest(env, fs, *lat, *lng)
	if err != nil {
		return err
	}

	for _, r := range suggestions {
		if r.ID != *routeID {
			continue
		}
		if !env.Cache.DownloadRouteForOffline(context.Background(), r.ID, r, r.Leads) {
			return fmt.Errorf("failed to download route %s", r.ID)
		}
		fmt.Printf("✓ Downloaded %s (%d stops)\n", r.Name, len(r.Leads))
		return nil
	}
	return fmt.Errorf("no %s route is available from this position", *routeID)
}

// OfflineListCommand lists downloaded routes
func OfflineListCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("offline list", flag.ExitOnError)
	_ = fs.Parse(args)

	cached := env.Cache.GetOfflineRoutes()
	if len(cached) == 0 {
		fmt.Println("No routes downloaded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTOPS\tDISTANCE\tCACHED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t--------\t------")
	for _, r := range cached {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.1f km\t%s\n",
			r.ID, r.Name, len(r.Stops), r.TotalDistance, formatTimeSince(r.CachedAt))
	}
	_ = w.Flush()
	return nil
}

// OfflineRemoveCommand forgets a downloaded route
func OfflineRemoveCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("offline remove", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: hailtrack offline remove <route-id>")
	}
	if err := env.Cache.RemoveOfflineRoute(context.Background(), fs.Arg(0)); err != nil {
		return err
	}
	fmt.Printf("✓ Removed %s\n", fs.Arg(0))
	return nil
}

// OfflineClearCommand deletes every downloaded route
func OfflineClearCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("offline clear", flag.ExitOnError)
	_ = fs.Parse(args)

	if !env.Cache.ClearCache(context.Background()) {
		return fmt.Errorf("failed to clear offline cache")
	}
	fmt.Println("✓ Offline cache cleared")
	return nil
}

// OfflineStatsCommand reports offline cache usage
func OfflineStatsCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("offline stats", flag.ExitOnError)
	_ = fs.Parse(args)

	stats, ok := env.Cache.GetCacheStats(context.Background())
	if !ok {
		return fmt.Errorf("offline cache worker is unavailable")
	}
	fmt.Println("Offline Cache:")
	fmt.Printf("  Routes:   %d\n", stats.Routes)
	fmt.Printf("  Entries:  %d\n", stats.Entries)
	fmt.Printf("  Size:     %.1f KB\n", float64(stats.SizeBytes)/1024)
	return nil
}
