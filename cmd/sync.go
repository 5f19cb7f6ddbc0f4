package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okvist/sessync/internal/archive"
	"github.com/okvist/sessync/internal/cli"
	"github.com/okvist/sessync/internal/syncer"
	"github.com/okvist/sessync/internal/track"
)

var flagMode string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scan the local archive and sync sessions to the remote store",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&flagMode, "mode", "new",
		"Which sessions to send: new (skip locally tracked), all (ask the server), force (resend everything)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	mode, err := syncer.ParseMode(flagMode)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newClient(cfg)
	if client == nil {
		return errors.New("remote store not configured, run `sessync setup` first")
	}

	tracker := track.Open(track.DefaultPath())
	defer tracker.Close()

	opts := syncer.Options{Mode: mode}
	if !flagQuiet {
		opts.Progress = func(done, total int) {
			fmt.Fprint(os.Stderr, cli.RenderProgress(done, total, 30))
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	sum, err := syncer.Run(cmd.Context(), archive.NewScanner(cfg.General.DataDir), client, tracker, opts)
	if err != nil {
		if errors.Is(err, syncer.ErrUnauthorized) {
			return errors.New("the server rejected the API key, run `sessync setup` to update it")
		}
		return err
	}

	if !flagQuiet {
		fmt.Println(cli.RenderSummary(sum))
	}
	if sum.SessionsFailed > 0 {
		return fmt.Errorf("%d sessions failed to sync", sum.SessionsFailed)
	}
	return nil
}
