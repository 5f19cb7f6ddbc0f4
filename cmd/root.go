// Package cmd wires the sessync commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/okvist/sessync/internal/config"
	"github.com/okvist/sessync/internal/syncer"
)

var (
	flagDataDir string
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "sessync",
	Short: "Sync coding agent sessions to a remote store",
	Long: "sessync reconstructs sessions and messages from the local agent\n" +
		"archive or its live event stream and forwards them to a remote store.",
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Session archive root (default: opencode storage dir)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// loadConfig reads the config file and applies pricing overrides and the
// data-dir flag. All commands go through here.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	config.ApplyOverrides(cfg.Pricing.Overrides)
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	return cfg, nil
}

// newClient builds the remote store client from config and environment.
// Returns nil when the server is not configured.
func newClient(cfg config.Config) *syncer.Client {
	return syncer.NewClient(config.GetServerURL(cfg), config.GetAPIKey(cfg))
}
