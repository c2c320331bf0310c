package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/discovery"
	"github.com/muurk/wifiprov/internal/remote"
	"github.com/muurk/wifiprov/internal/ui"
)

// Remote command flags
var (
	remoteDevice   string
	remoteInstance string
	remotePort     int
	remoteTimeout  time.Duration
	remotePassword string
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Configure a device through its setup portal",
	Long: `Talk to a device whose setup portal is open.

Join the device's setup access point first. Without --device the portal is
found over mDNS; with several portals in range, pick one with --instance
(the name shown by 'wifiprov discover') or --device.`,
	Example: `  # List networks on the only portal in range
  wifiprov remote list

  # Add a network on a specific device
  wifiprov remote add HomeNet --device 192.168.4.1

  # Pick a portal by its advertised name
  wifiprov remote list --instance wifiprov-kitchen

  # Show the device's supervisor state
  wifiprov remote status`,
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the device's saved networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, func(ctx context.Context, c *remote.Client, p *ui.Printer) error {
			list, err := c.Networks(ctx)
			if err != nil {
				return err
			}
			p.PrintNetworks(list.Networks, list.Capacity)
			if !list.Active {
				p.Println(ui.MutedStyle.Render("  The portal is closing; changes will be refused."))
			}
			return nil
		})
	},
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <ssid>",
	Short: "Save a network on the device and let it connect",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ssid := args[0]
		secret := remotePassword
		if !cmd.Flags().Changed("password") {
			var err error
			if secret, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Pass-phrase for "+ssid+": "); err != nil {
				return err
			}
		}

		return withRemote(cmd, func(ctx context.Context, c *remote.Client, p *ui.Printer) error {
			msg, err := c.Save(ctx, ssid, secret)
			if err != nil {
				return err
			}
			p.PrintSuccess("Network sent to device", map[string]string{"SSID": ssid, "Device": msg})
			return nil
		})
	},
}

var remoteDeleteCmd = &cobra.Command{
	Use:     "delete <ssid>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved network on the device",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, func(ctx context.Context, c *remote.Client, p *ui.Printer) error {
			msg, err := c.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			p.PrintSuccess("Network deleted", map[string]string{"SSID": args[0], "Device": msg})
			return nil
		})
	},
}

var remoteStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the device's connectivity state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, func(ctx context.Context, c *remote.Client, p *ui.Printer) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			p.PrintStatus(*st)
			return nil
		})
	},
}

func init() {
	remoteCmd.PersistentFlags().StringVar(&remoteDevice, "device", "", "Device IP address (skips discovery)")
	remoteCmd.PersistentFlags().StringVar(&remoteInstance, "instance", "", "Advertised portal name to wait for")
	remoteCmd.PersistentFlags().IntVar(&remotePort, "port", remote.DefaultPort, "Portal HTTP port")
	remoteCmd.PersistentFlags().DurationVar(&remoteTimeout, "timeout", 30*time.Second, "Overall timeout, including discovery")
	remoteAddCmd.Flags().StringVar(&remotePassword, "password", "", "Pass-phrase (prompted when omitted)")

	remoteCmd.AddCommand(remoteListCmd, remoteAddCmd, remoteDeleteCmd, remoteStatusCmd)
	rootCmd.AddCommand(remoteCmd)
}

// withRemote resolves the device and runs fn, printing failures with hints
func withRemote(cmd *cobra.Command, fn func(ctx context.Context, c *remote.Client, p *ui.Printer) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
	defer cancel()

	p := ui.NewPrinter(cmd.OutOrStdout())

	c, err := resolveDevice(ctx)
	if err != nil {
		p.PrintError("No device", err, []string{
			"Join the device's setup access point",
			"Or pass --device with the portal address (usually 192.168.4.1)",
		})
		return err
	}

	if err := fn(ctx, c, p); err != nil {
		p.PrintError(remote.ShortMessage(err), err, remote.Troubleshooting(err))
		return err
	}
	return nil
}

// resolveDevice uses --device, waits for the --instance portal, or finds
// exactly one portal over mDNS
func resolveDevice(ctx context.Context) (*remote.Client, error) {
	if remoteDevice != "" {
		return remote.NewClient(remoteDevice, remotePort), nil
	}

	if remoteInstance != "" {
		device, err := discovery.NewScanner().WaitForDevice(ctx, remoteInstance)
		if err != nil {
			return nil, err
		}
		return remote.NewClientWithURL(device.BaseURL()), nil
	}

	devices, err := discovery.QuickScan(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("no setup portal found over mDNS")
	case 1:
		return remote.NewClientWithURL(devices[0].BaseURL()), nil
	default:
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			names = append(names, d.String())
		}
		return nil, fmt.Errorf("%d portals found, choose one with --instance or --device:\n  %s", len(devices), strings.Join(names, "\n  "))
	}
}
