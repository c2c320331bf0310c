package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/discovery"
	"github.com/muurk/wifiprov/internal/ui"
)

var scanTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:     "discover",
	Aliases: []string{"scan"},
	Short:   "Find devices with an open setup portal",
	Long: `Browse mDNS for wifiprov setup portals.

A device advertises its portal only while it is in setup mode, so this lists
the devices that are currently waiting for configuration.`,
	Example: `  # Scan for 10 seconds (default)
  wifiprov discover

  # Quick scan
  wifiprov discover --timeout 3s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.Println(ui.MutedStyle.Render(fmt.Sprintf("Scanning for setup portals (timeout: %s)...", scanTimeout)))
		p.Newline()

		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout
		devices, err := scanner.ScanForDevices(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if len(devices) == 0 {
			p.PrintWarning("No portals found", map[string]string{
				"Hint": "devices only advertise while in setup mode",
			})
			return nil
		}

		for _, d := range devices {
			p.PrintSuccess(d.Instance, map[string]string{
				"Address":      d.BaseURL(),
				"Host":         d.Hostname,
				"Access point": d.AccessPoint(),
				"Session":      d.Session(),
				"Version":      d.GetMetadata(discovery.TxtVersion),
			})
		}
		p.Println("Use 'wifiprov remote list --device <ip>' to see a device's networks")
		return nil
	},
}

func init() {
	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Scan timeout")
	rootCmd.AddCommand(discoverCmd)
}
