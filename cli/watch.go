// ABOUTME: Interactive watch and dashboard commands
// ABOUTME: Runs the bubbletea field view with a live connectivity probe, or prints a one-shot dashboard
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/harperreed/hailtrack/tui"
	"github.com/harperreed/hailtrack/viz"
)

// WatchCommand opens the live field view
func WatchCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	autoSync := fs.Bool("auto-sync", true, "Sync automatically when the remote API comes back")
	_ = fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Log lines would tear the alternate screen.
	log.SetOutput(nullWriter{})
	defer log.SetOutput(os.Stderr)

	if env.Remote != nil {
		if *autoSync {
			dispose := env.Reconciler.SyncOnReconnect(ctx, env.Monitor, nil)
			defer dispose()
		}
		go func() {
			_ = env.Monitor.Run(ctx, env.Probe(), env.Config.ProbeInterval)
		}()
	}

	return tui.Run(tui.Deps{
		Queue:      env.Queue,
		Reconciler: env.Reconciler,
		Monitor:    env.Monitor,
		Ledger:     env.Ledger,
		Cache:      env.Cache,
	})
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

// DashboardCommand prints a one-shot summary of queue, sync, and offline routes
func DashboardCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	_ = fs.Parse(args)

	stats, err := viz.GenerateDashboardStats(env.Queue, env.Ledger, env.Cache, env.Monitor.IsOnline())
	if err != nil {
		return err
	}
	fmt.Print(viz.RenderDashboard(stats))
	return nil
}
