package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okvist/sessync/internal/archive"
	"github.com/okvist/sessync/internal/cli"
	"github.com/okvist/sessync/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Load existing config or defaults
	cfg, _ := config.Load()
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}

	sessions, _ := archive.NewScanner(cfg.General.DataDir).Sessions()

	fmt.Println()
	fmt.Println("  Welcome to sessync!")
	fmt.Println()
	if len(sessions) > 0 {
		fmt.Printf("  Found %s sessions in %s\n\n",
			cli.FormatCount(len(sessions)), cfg.General.DataDir)
	}

	// 1. Server URL
	fmt.Println("  1. Remote store URL")
	fmt.Println("     Where sessions are sent, e.g. https://confab.example.com")
	if cfg.Server.URL != "" {
		fmt.Printf("     Current: %s\n", cfg.Server.URL)
	}
	fmt.Print("     > ")
	serverURL, _ := reader.ReadString('\n')
	serverURL = strings.TrimSpace(serverURL)
	if serverURL != "" {
		cfg.Server.URL = strings.TrimRight(serverURL, "/")
	}
	fmt.Println()

	// 2. API key
	fmt.Println("  2. API key")
	fmt.Println("     Issued by the remote store for this machine.")
	if existing := config.GetAPIKey(cfg); existing != "" {
		fmt.Printf("     Current: %s\n", maskAPIKey(existing))
	}
	fmt.Print("     > ")
	apiKey, _ := reader.ReadString('\n')
	apiKey = strings.TrimSpace(apiKey)
	if apiKey != "" {
		cfg.Server.APIKey = apiKey
	}
	fmt.Println()

	// 3. Archive location
	fmt.Println("  3. Session archive directory")
	fmt.Printf("     Current: %s\n", cfg.General.DataDir)
	fmt.Print("     > ")
	dataDir, _ := reader.ReadString('\n')
	dataDir = strings.TrimSpace(dataDir)
	if dataDir != "" {
		cfg.General.DataDir = dataDir
	}

	// Save
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `sessync sync` to backfill, or `sessync setup` to reconfigure.")
	fmt.Println()

	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
