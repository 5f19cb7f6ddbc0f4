package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okvist/sessync/internal/cli"
	"github.com/okvist/sessync/internal/event"
	"github.com/okvist/sessync/internal/model"
	"github.com/okvist/sessync/internal/pipeline"
)

// maxLineSize bounds a single streamed event; large tool outputs can
// push lines well past bufio's default.
const maxLineSize = 4 << 20

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Read the host's event stream from stdin and sync live",
	Long: "Reads newline-delimited JSON events from stdin, assembles sessions\n" +
		"and messages, and forwards them as they settle. Intended to be fed\n" +
		"by the host agent's event hook.",
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

// discardSubmitter swallows records when no server is configured, so a
// host feeding us events is never blocked by missing config.
type discardSubmitter struct{}

func (discardSubmitter) SubmitSession(context.Context, model.SessionRecord) error { return nil }
func (discardSubmitter) SubmitMessage(context.Context, model.MessageRecord) error { return nil }

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var sub pipeline.Submitter
	if client := newClient(cfg); client == nil {
		if !flagQuiet {
			fmt.Fprintln(os.Stderr, cli.Warn("remote store not configured, events will be discarded"))
		}
		sub = discardSubmitter{}
	} else {
		sub = client
	}

	p := pipeline.New(sub, pipeline.Options{})
	defer p.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.Drain()
			return nil
		case line, ok := <-lines:
			if !ok {
				// Stream ended; flush whatever is still buffered.
				p.Drain()
				return nil
			}
			if len(line) == 0 {
				continue
			}
			p.HandleEnvelope(event.Decode(line))
		}
	}
}
