package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/notify"
	"github.com/muurk/wifiprov/internal/remote"
	"github.com/muurk/wifiprov/internal/ui"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running daemon's state changes",
	Long: `Connect to the daemon's status endpoint and show each state change.

On a terminal this is a live view; otherwise each event is printed as one
JSON line, which is handy for scripts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, maxRetries, err := watchTarget()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		events, err := notify.Subscribe(ctx, url)
		if err != nil {
			return err
		}

		if !ui.IsTerminal() {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		}

		final, err := ui.RunWatch(events, maxRetries)
		if err != nil {
			return err
		}
		if final.Closed() && ctx.Err() == nil {
			return fmt.Errorf("status stream closed by %s", url)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a running daemon's current state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Status.Listen == "" {
			return fmt.Errorf("status endpoint is disabled (status.listen is empty)")
		}

		c := remote.NewClientWithURL("http://" + cfg.Status.Listen)
		c.SetRetry(0, 0)
		st, err := c.Status(context.Background())
		if err != nil {
			return fmt.Errorf("daemon not reachable at %s: %w", cfg.Status.Listen, err)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintStatus(*st)
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "Status stream URL (default: ws://<status.listen>/events)")
	rootCmd.AddCommand(watchCmd, statusCmd)
}

// watchTarget picks the stream URL and the reconnect limit for the progress bar
func watchTarget() (string, int, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", 0, err
	}
	if watchURL != "" {
		return watchURL, cfg.Supervisor.ReconnectAttempts, nil
	}
	if cfg.Status.Listen == "" {
		return "", 0, fmt.Errorf("status endpoint is disabled; pass --url")
	}
	return "ws://" + cfg.Status.Listen + "/events", cfg.Supervisor.ReconnectAttempts, nil
}
