package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okvist/sessync/internal/archive"
	"github.com/okvist/sessync/internal/daemon"
	"github.com/okvist/sessync/internal/pipeline"
	"github.com/okvist/sessync/internal/track"
)

var flagStatusAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the local archive and sync sessions as they are written",
	Long: "Watches the archive directory for record writes and feeds them\n" +
		"through the same assembly pipeline as the live event stream. Useful\n" +
		"when the host offers no event hook.",
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagStatusAddr, "status-addr", "",
		"Serve a local status API on this address (e.g. 127.0.0.1:8787)")
	rootCmd.AddCommand(watchCmd)
}

// archiveCounter adapts the scanner to the status service.
type archiveCounter struct {
	scanner *archive.Scanner
}

func (a archiveCounter) SessionCount() (int, error) {
	sessions, err := a.scanner.Sessions()
	return len(sessions), err
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newClient(cfg)
	if client == nil {
		return errors.New("remote store not configured, run `sessync setup` first")
	}

	p := pipeline.New(client, pipeline.Options{})
	defer p.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagStatusAddr != "" {
		tracker := track.Open(track.DefaultPath())
		defer tracker.Close()

		svc := daemon.New(
			daemon.Config{Addr: flagStatusAddr, DataDir: cfg.General.DataDir},
			p,
			archiveCounter{scanner: archive.NewScanner(cfg.General.DataDir)},
			tracker,
		)
		go func() {
			if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("status server stopped: %v", err)
			}
		}()
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Watching %s\n", cfg.General.DataDir)
	}

	w := archive.NewWatcher(cfg.General.DataDir, p.Handle)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	p.Drain()
	return nil
}
