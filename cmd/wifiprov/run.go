package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/logging"
)

// Run command flags
var (
	runSimulate  bool
	runInterface string
	runHTTP      string
	runStatus    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the connectivity supervisor",
	Long: `Run the connectivity supervisor in the foreground.

The supervisor tries each saved network in priority order. Once connected it
checks the link periodically and, if it drops, runs up to reconnect_attempts
reconnect cycles before opening the setup portal. With no saved networks the
portal opens immediately.

While the portal is open the device serves a soft access point, a captive
DNS responder, the configuration form and an mDNS advertisement.

A local status endpoint (status.listen) serves:
  /events   websocket stream of state changes (used by 'wifiprov watch')
  /status   JSON snapshot
  /metrics  Prometheus metrics`,
	Example: `  # Run on the device (needs NetworkManager and root for :80/:53)
  sudo wifiprov run

  # Try it on a laptop with a simulated radio and unprivileged ports
  wifiprov run --simulate --http :8080 --log-level debug

  # Use a different wireless interface
  wifiprov run --interface wlp2s0`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "Use the in-process radio simulator")
	runCmd.Flags().StringVar(&runInterface, "interface", "", "Wireless interface (overrides radio.interface)")
	runCmd.Flags().StringVar(&runHTTP, "http", "", "Portal listen address (overrides portal.http_listen)")
	runCmd.Flags().StringVar(&runStatus, "status", "", "Status listen address (overrides status.listen)")

	rootCmd.AddCommand(runCmd)
}

// applyRunFlags folds command-line overrides into cfg
func applyRunFlags(cfg *config.Config) error {
	if runSimulate {
		cfg.Simulator.Enabled = true
		if cfg.Portal.DNSListen == ":53" {
			cfg.Portal.DNSListen = ""
		}
	}
	if runInterface != "" {
		cfg.Radio.Interface = runInterface
	}
	if runHTTP != "" {
		cfg.Portal.HTTPListen = runHTTP
	}
	if runStatus != "" {
		cfg.Status.Listen = runStatus
	}
	return cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}

	// The daemon logs at the configured level unless told otherwise
	if logLevel == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return err
		}
	}

	d, err := newDaemon(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.run(ctx)
}
