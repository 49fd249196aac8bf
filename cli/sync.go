// ABOUTME: Sync CLI commands
// ABOUTME: Manual sync, ledger status, and the reconnect-driven sync daemon
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/harperreed/hailtrack/db"
	"github.com/harperreed/hailtrack/models"
)

// minDaemonInterval bounds how often the daemon forces a pass while already online.
const minDaemonInterval = time.Minute

// SyncCommand replays the offline queue against the remote API
func SyncCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show per-record progress")
	_ = fs.Parse(args)

	if env.Remote == nil {
		return fmt.Errorf("no remote API configured. Run 'hailtrack login' first")
	}
	if !env.Monitor.IsOnline() {
		counts, err := env.Queue.PendingCounts()
		if err != nil {
			return fmt.Errorf("failed to count pending records: %w", err)
		}
		return fmt.Errorf("remote API is unreachable; %d leads and %d follow-ups remain queued",
			counts[models.KindLead], counts[models.KindFollowUp])
	}

	var progress func(synced, total int)
	if *verbose {
		progress = func(synced, total int) {
			fmt.Printf("⬆ %d/%d synced\n", synced, total)
		}
	}

	startTime := time.Now()
	report, err := env.Reconciler.Sync(context.Background(), progress)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	printReport(report)
	fmt.Printf("\n✓ Sync completed in %.2fs\n", time.Since(startTime).Seconds())
	return nil
}

func printReport(report *models.SyncReport) {
	if report.Total == 0 {
		fmt.Println("Nothing to sync")
		return
	}
	fmt.Printf("Synced %d of %d records", report.Synced, report.Total)
	if report.Failed > 0 {
		fmt.Printf(", %d failed", report.Failed)
	}
	if report.DeadLettered > 0 {
		fmt.Printf(", %d dead-lettered", report.DeadLettered)
	}
	fmt.Println()

	for _, e := range report.Errors {
		fmt.Printf("  ✗ %s %s: %s\n", e.Kind, e.ID, e.Error)
	}
}

// StatusCommand shows connectivity, queue depth, and recent sync history
func StatusCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	limit := fs.Int("runs", 5, "Number of recent sync runs to show")
	_ = fs.Parse(args)

	remoteURL := env.Config.RemoteURL
	if remoteURL == "" {
		remoteURL = "(not configured)"
	}
	online := "✗ unreachable"
	if env.Monitor.IsOnline() {
		online = "✓ reachable"
	}

	counts, err := env.Queue.PendingCounts()
	if err != nil {
		return fmt.Errorf("failed to count pending records: %w", err)
	}
	dead, err := env.Queue.ListDeadLetters()
	if err != nil {
		return fmt.Errorf("failed to list dead letters: %w", err)
	}

	fmt.Println("Sync Status:")
	fmt.Printf("  Remote:       %s\n", remoteURL)
	fmt.Printf("  Connection:   %s\n", online)
	fmt.Printf("  Storage:      %s\n", env.Config.KVBackend)
	fmt.Printf("  Pending:      %d leads, %d follow-ups\n", counts[models.KindLead], counts[models.KindFollowUp])
	fmt.Printf("  Dead letters: %d\n", len(dead))

	state, err := db.GetSyncState(env.Ledger, db.ServiceRemoteAPI)
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}
	if state == nil {
		fmt.Println("  Last sync:    never")
		return nil
	}
	if state.LastSyncTime != nil {
		fmt.Printf("  Last sync:    %s\n", formatTimeSince(*state.LastSyncTime))
	}
	fmt.Printf("  State:        %s\n", state.Status)
	if state.ErrorMessage != "" {
		fmt.Printf("  Last error:   %s\n", state.ErrorMessage)
	}

	runs, err := db.ListSyncRuns(env.Ledger, *limit)
	if err != nil {
		return fmt.Errorf("failed to list sync runs: %w", err)
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FINISHED\tTOTAL\tSYNCED\tFAILED\tDEAD")
	for _, run := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			formatTimeSince(run.FinishedAt), run.Total, run.Synced, run.Failed, run.DeadLettered)
	}
	_ = w.Flush()
	return nil
}

// DaemonCommand probes the remote API and syncs every time it comes back online.
// With --interval it also syncs periodically while online.
func DaemonCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	intervalStr := fs.String("interval", "", "Also sync on this interval while online (minimum 1m)")
	_ = fs.Parse(args)

	if env.Remote == nil {
		return fmt.Errorf("no remote API configured. Run 'hailtrack login' first")
	}

	var interval time.Duration
	if *intervalStr != "" {
		d, err := parseDaemonInterval(*intervalStr)
		if err != nil {
			return err
		}
		interval = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispose := env.Reconciler.SyncOnReconnect(ctx, env.Monitor, nil)
	defer dispose()

	fmt.Printf("Watching %s (probe every %s). Press Ctrl+C to stop.\n", env.Config.RemoteURL, env.Config.ProbeInterval)

	// A queue left over from an earlier session drains right away.
	if env.Monitor.IsOnline() {
		runDaemonPass(ctx, env)
	}

	if interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if env.Monitor.IsOnline() {
						runDaemonPass(ctx, env)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	err := env.Monitor.Run(ctx, env.Probe(), env.Config.ProbeInterval)
	if ctx.Err() != nil {
		fmt.Println("\nShutting down")
		return nil
	}
	return err
}

func runDaemonPass(ctx context.Context, env *Env) {
	report, err := env.Reconciler.Sync(ctx, nil)
	if err != nil {
		log.Printf("sync: pass failed: %v", err)
		return
	}
	if report.Total > 0 {
		log.Printf("sync: synced %d/%d (%d failed)", report.Synced, report.Total, report.Failed)
	}
}

func parseDaemonInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --interval: %w", err)
	}
	if d < minDaemonInterval {
		return 0, fmt.Errorf("--interval must be at least %s", minDaemonInterval)
	}
	return d, nil
}

func formatTimeSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	default:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
