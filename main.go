// ABOUTME: Entry point for the hailtrack field client and MCP server
// ABOUTME: Routes to capture, sync, route, offline cache, and UI commands based on arguments
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/harperreed/hailtrack/cli"
	"github.com/harperreed/hailtrack/config"
)

const version = "0.1.0"

// usageError is printed with the usage text instead of log.Fatalf.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file path (default: ~/.config/hailtrack/config.yaml)")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("hailtrack version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	config.LoadDotEnv()
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "help":
		printUsage()
		return
	case "login":
		// login writes the config and needs no local stores
		if err := cli.LoginCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	env, err := cli.OpenEnv(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open hailtrack: %v", err)
	}

	err = runCommand(env, command, commandArgs)
	env.Close()

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Printf("%s\n\n", usageErr.msg)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func runCommand(env *cli.Env, command string, args []string) error {
	switch command {
	case "mcp":
		return cli.MCPCommand(env, version)

	case "capture":
		if len(args) == 0 {
			return newUsageError("Error: capture requires a subcommand (lead or followup)")
		}
		switch args[0] {
		case "lead":
			return cli.CaptureLeadCommand(env, args[1:])
		case "followup":
			return cli.CaptureFollowUpCommand(env, args[1:])
		default:
			return newUsageError("Unknown capture command: %s", args[0])
		}

	case "pending":
		return cli.PendingCommand(env, args)
	case "dead-letters":
		return cli.DeadLettersCommand(env, args)
	case "requeue":
		return cli.RequeueCommand(env, args)

	case "sync":
		return cli.SyncCommand(env, args)
	case "status":
		return cli.StatusCommand(env, args)
	case "daemon":
		return cli.DaemonCommand(env, args)

	case "routes":
		if len(args) == 0 || args[0] != "suggest" {
			return newUsageError("Error: routes requires a subcommand (suggest)")
		}
		return cli.RoutesSuggestCommand(env, args[1:])

	case "offline":
		if len(args) == 0 {
			return newUsageError("Error: offline requires a subcommand")
		}
		switch args[0] {
		case "download":
			return cli.OfflineDownloadCommand(env, args[1:])
		case "list":
			return cli.OfflineListCommand(env, args[1:])
		case "remove":
			return cli.OfflineRemoveCommand(env, args[1:])
		case "clear":
			return cli.OfflineClearCommand(env, args[1:])
		case "stats":
			return cli.OfflineStatsCommand(env, args[1:])
		default:
			return newUsageError("Unknown offline command: %s", args[0])
		}

	case "kv-sync":
		if len(args) == 0 {
			return newUsageError("Error: kv-sync requires a subcommand")
		}
		switch args[0] {
		case "now":
			return cli.KVSyncNowCommand(env, args[1:])
		case "status":
			return cli.KVSyncStatusCommand(env, args[1:])
		case "auto":
			return cli.KVSyncAutoCommand(env, args[1:])
		case "wipe":
			return cli.KVSyncWipeCommand(env, args[1:])
		default:
			return newUsageError("Unknown kv-sync command: %s", args[0])
		}

	case "dashboard":
		return cli.DashboardCommand(env, args)
	case "watch":
		return cli.WatchCommand(env, args)

	default:
		return newUsageError("Unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Printf(`hailtrack v%s - Offline-first hail damage field client

USAGE:
  hailtrack [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/hailtrack/config.yaml)

SETUP:
  login                  Save the remote CRM URL and API token
    --url <url>          Remote API base URL
    --skip-check         Don't call the health endpoint before saving

CAPTURE:
  capture lead           Capture a lead (queued when offline)
    --name <name>        Lead name (required)
    --phone, --email, --address
    --lat, --lng         Position, given together
    --make, --model, --year, --damage, --source
  capture followup       Schedule a follow-up
    --lead <id>          Remote or queued lead id (required)
    --at <rfc3339>       Due time (required)
    --type <type>        call, visit, text, email (default: visit)
    --notes <text>

QUEUE:
  pending [--kind lead|followup]   List records waiting to sync
  dead-letters                     List records that gave up syncing
  requeue <id>                     Retry a dead-lettered record

SYNC:
  sync [--verbose]       Replay the queue now
  status [--runs N]      Connection, queue, and sync history
  daemon [--interval 15m]
                         Probe the remote API and sync on reconnect

ROUTES:
  routes suggest --lat <lat> --lng <lng> [--graph out.svg --format svg|dot]
  offline download --lat <lat> --lng <lng> --route <id>
  offline list | remove <id> | clear | stats

KV SYNC (charm backend):
  kv-sync now | status | auto --enable|--disable | wipe --confirm

UI:
  dashboard              One-shot text dashboard
  watch [--auto-sync]    Interactive terminal view
  mcp                    Start the MCP server on stdio

ENVIRONMENT:
  HAILTRACK_REMOTE_URL, HAILTRACK_API_TOKEN, HAILTRACK_DATA_DIR, HAILTRACK_KV_BACKEND

EXAMPLES:
  hailtrack login --url https://crm.example.com
  hailtrack capture lead --name "Dana Ruiz" --lat 32.78 --lng -96.80 --make Ford
  hailtrack routes suggest --lat 32.78 --lng -96.80
  hailtrack daemon --interval 15m
`, version)
}
