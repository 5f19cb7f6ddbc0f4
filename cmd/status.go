package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okvist/sessync/internal/archive"
	"github.com/okvist/sessync/internal/cli"
	"github.com/okvist/sessync/internal/config"
	"github.com/okvist/sessync/internal/track"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and sync state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	server := config.GetServerURL(cfg)
	if server == "" {
		server = "(not configured)"
	}
	key := "(not set)"
	if config.GetAPIKey(cfg) != "" {
		key = "configured"
	}

	sessions, err := archive.NewScanner(cfg.General.DataDir).Sessions()
	if err != nil {
		return fmt.Errorf("scanning archive: %w", err)
	}

	tracker := track.Open(track.DefaultPath())
	defer tracker.Close()

	fmt.Println(cli.RenderTitle("sessync status"))
	fmt.Println()
	fmt.Println(cli.RenderStatusLine("Config", config.ConfigPath()))
	fmt.Println(cli.RenderStatusLine("Server", server))
	fmt.Println(cli.RenderStatusLine("API key", key))
	fmt.Println(cli.RenderStatusLine("Archive", cfg.General.DataDir))
	fmt.Println(cli.RenderStatusLine("Sessions found", cli.FormatCount(len(sessions))))
	fmt.Println(cli.RenderStatusLine("Sessions synced", cli.FormatCount(tracker.Count())))
	if last := tracker.LastUpdated(); !last.IsZero() {
		fmt.Println(cli.RenderStatusLine("Last sync", last.Local().Format("2006-01-02 15:04")))
	}
	fmt.Println()

	return nil
}
