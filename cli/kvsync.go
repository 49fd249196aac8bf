// ABOUTME: CLI commands for Charm KV replication of the local store
// ABOUTME: SSH key auth is handled by charm itself, so there is no login step
package cli

import (
	"flag"
	"fmt"

	"github.com/charmbracelet/charm/client"
	"github.com/harperreed/hailtrack/config"
	"github.com/harperreed/hailtrack/kv"
)

func charmStore(env *Env) (*kv.CharmStore, error) {
	cs, ok := env.Store.(*kv.CharmStore)
	if !ok {
		return nil, fmt.Errorf("kv-sync needs kv_backend: %s (current: %s)", config.BackendCharm, env.Config.KVBackend)
	}
	return cs, nil
}

// KVSyncNowCommand performs an immediate sync with the charm server.
func KVSyncNowCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("kv-sync now", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show verbose output")
	_ = fs.Parse(args)

	cs, err := charmStore(env)
	if err != nil {
		return err
	}

	if *verbose {
		fmt.Println("Syncing with server...")
	}
	if err := cs.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Println("✓ Synced")
	return nil
}

// KVSyncStatusCommand shows charm replication settings and connection state.
func KVSyncStatusCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("kv-sync status", flag.ExitOnError)
	_ = fs.Parse(args)

	host := env.Config.CharmHost
	if host == "" {
		host = kv.DefaultCharmHost
	}

	fmt.Println("Charm Sync Status")
	fmt.Println("─────────────────")
	fmt.Printf("Backend:   %s\n", env.Config.KVBackend)
	fmt.Printf("Server:    %s\n", host)
	fmt.Printf("Auto-sync: %v\n", env.Config.AutoSync)

	cs, err := charmStore(env)
	if err != nil {
		fmt.Println("\nStatus: Local only (badger)")
		return nil //nolint:nilerr // a badger backend is a valid state, not an error
	}

	cc, err := client.NewClientWithDefaults()
	if err != nil {
		fmt.Println("\nStatus: Not connected")
		return nil //nolint:nilerr // not connected is a valid state, not an error
	}

	id, err := cc.ID()
	if err != nil {
		fmt.Println("\nStatus: Connected (ID unavailable)")
	} else {
		fmt.Println("\nStatus: Connected")
		fmt.Printf("ID:        %s\n", id)
	}

	if n, err := cs.KeyCount(); err == nil {
		fmt.Printf("Keys:      %d\n", n)
	}
	return nil
}

// KVSyncAutoCommand enables or disables sync after every write.
func KVSyncAutoCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("kv-sync auto", flag.ExitOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	_ = fs.Parse(args)

	if *enable == *disable {
		fmt.Println("Usage: hailtrack kv-sync auto --enable|--disable")
		return nil
	}

	env.Config.AutoSync = *enable
	if err := env.Config.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if *enable {
		fmt.Println("✓ Auto-sync enabled")
	} else {
		fmt.Println("✓ Auto-sync disabled")
	}
	return nil
}

// KVSyncWipeCommand resets the local charm replica.
func KVSyncWipeCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("kv-sync wipe", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	_ = fs.Parse(args)

	if !*confirm {
		fmt.Println("WARNING: This will delete the local replica, including unsynced captures!")
		fmt.Println()
		fmt.Println("To confirm, run:")
		fmt.Println("  hailtrack kv-sync wipe --confirm")
		return nil
	}

	cs, err := charmStore(env)
	if err != nil {
		return err
	}
	if err := cs.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}
	fmt.Println("✓ Local replica wiped")
	return nil
}
