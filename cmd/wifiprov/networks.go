package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/wifiprov/internal/credentials"
	"github.com/muurk/wifiprov/internal/ui"
)

// Networks command flags
var (
	netPassword string
	netYes      bool
)

var networksCmd = &cobra.Command{
	Use:     "networks",
	Aliases: []string{"net"},
	Short:   "Manage the saved networks on this device",
	Long: `List, add and delete the saved WiFi networks in the local credential store.

The store is locked while 'wifiprov run' is active; stop the daemon first, or
use 'wifiprov remote' against the setup portal instead.`,
}

var networksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved networks in priority order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(path string, store *credentials.Store) error {
			p := ui.NewPrinter(cmd.OutOrStdout())
			p.PrintHeader("Saved networks", "wifiprov networks list", map[string]string{
				"Store":  path,
				"Policy": store.Policy().String(),
			})
			p.PrintNetworks(store.List().SSIDs(), store.Capacity())
			return nil
		})
	},
}

var networksAddCmd = &cobra.Command{
	Use:   "add <ssid>",
	Short: "Save a network (replaces an existing one with the same SSID)",
	Example: `  # Prompt for the pass-phrase
  wifiprov networks add HomeNet

  # Non-interactive
  echo "correct horse" | wifiprov networks add HomeNet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ssid := args[0]
		secret := netPassword
		if !cmd.Flags().Changed("password") {
			var err error
			if secret, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Pass-phrase for "+ssid+": "); err != nil {
				return err
			}
		}

		return withStore(func(path string, store *credentials.Store) error {
			p := ui.NewPrinter(cmd.OutOrStdout())
			if err := store.Save(context.Background(), ssid, secret); err != nil {
				p.PrintError("Could not save "+ssid, err, storeHints(err))
				return err
			}
			p.PrintSuccess("Network saved", map[string]string{
				"SSID":     ssid,
				"Priority": fmt.Sprintf("%d of %d", store.List().IndexOf(ssid)+1, store.Len()),
			})
			return nil
		})
	},
}

var networksDeleteCmd = &cobra.Command{
	Use:     "delete <ssid>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved network",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ssid := args[0]
		return withStore(func(path string, store *credentials.Store) error {
			p := ui.NewPrinter(cmd.OutOrStdout())
			if !store.Contains(ssid) {
				err := credentials.NewNotFoundError(ssid)
				p.PrintError("Could not delete "+ssid, err, nil)
				return err
			}

			if !netYes && store.Len() == 1 {
				ok := ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete the last saved network",
					[]string{"The device will open its setup portal on next start"}, ssid)
				if !ok {
					return nil
				}
			}

			if err := store.Delete(context.Background(), ssid); err != nil {
				p.PrintError("Could not delete "+ssid, err, storeHints(err))
				return err
			}
			p.PrintSuccess("Network deleted", map[string]string{
				"SSID":      ssid,
				"Remaining": fmt.Sprintf("%d", store.Len()),
			})
			return nil
		})
	},
}

func init() {
	networksAddCmd.Flags().StringVar(&netPassword, "password", "", "Pass-phrase (prompted when omitted)")
	networksDeleteCmd.Flags().BoolVarP(&netYes, "yes", "y", false, "Do not ask for confirmation")

	networksCmd.AddCommand(networksListCmd, networksAddCmd, networksDeleteCmd)
	rootCmd.AddCommand(networksCmd)
}

// withStore opens the configured store for the duration of fn
func withStore(fn func(path string, store *credentials.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := cfg.StorePath()
	if err != nil {
		return err
	}

	store, err := credentials.OpenLevelDB(path, credentials.WithPolicy(cfg.CapacityPolicy()))
	if err != nil {
		return fmt.Errorf("%w (is 'wifiprov run' holding the store?)", err)
	}
	defer store.Close()

	store.Load(context.Background())
	return fn(path, store)
}

// readSecret prompts without echo on a terminal, or reads one line otherwise
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read pass-phrase: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read pass-phrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func storeHints(err error) []string {
	switch {
	case credentials.IsCapacityExceeded(err):
		return []string{
			"Delete a network with 'wifiprov networks delete'",
			"Or set store.capacity_policy: evict-oldest",
		}
	case credentials.IsValidationError(err):
		return []string{
			fmt.Sprintf("SSIDs are 1-%d bytes", credentials.MaxIdentifierLength),
			fmt.Sprintf("Pass-phrases are %d-%d characters, or a %d-digit hex key",
				credentials.MinSecretLength, credentials.MaxPassphraseLength, credentials.MaxSecretLength),
		}
	case credentials.IsStorageError(err):
		return []string{"Check permissions on the store directory"}
	default:
		return nil
	}
}
