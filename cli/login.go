// ABOUTME: Remote API login command
// ABOUTME: Prompts for the API token without echo and saves it to the config file
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harperreed/hailtrack/config"
	"github.com/harperreed/hailtrack/remote"
	"golang.org/x/term"
)

// LoginCommand stores the remote URL and API token after checking them against /api/health
func LoginCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	url := fs.String("url", cfg.RemoteURL, "Remote API base URL")
	skipCheck := fs.Bool("skip-check", false, "Save without contacting the remote API")
	_ = fs.Parse(args)

	if *url == "" {
		fmt.Print("Remote URL: ")
		var entered string
		if _, err := fmt.Scanln(&entered); err != nil {
			return fmt.Errorf("failed to read remote URL: %w", err)
		}
		*url = strings.TrimSpace(entered)
	}

	fmt.Print("API token: ")
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	fmt.Println()

	cfg.RemoteURL = strings.TrimRight(*url, "/")
	cfg.APIToken = strings.TrimSpace(string(tokenBytes))
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !*skipCheck {
		client := remote.NewClient(cfg.RemoteURL, cfg.APIToken, cfg.RemoteTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			return fmt.Errorf("remote check failed (use --skip-check to save anyway): %w", err)
		}
		fmt.Println("✓ Remote API reachable")
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("✓ Configuration saved to %s\n", config.Path())
	return nil
}
