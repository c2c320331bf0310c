// Wifiprov keeps an embedded Linux device connected to WiFi.
//
// It tries the saved networks in priority order, reconnects when the link
// drops, and falls back to a captive configuration portal on a soft access
// point when nothing saved works. The same binary manages the saved
// networks, discovers devices in setup mode, and watches a running daemon.
//
// Usage:
//
//	wifiprov [command] [flags]
//
// See 'wifiprov --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "wifiprov",
	Short: "WiFi connectivity manager with a captive setup portal",
	Long: `Keeps a device connected to one of up to four saved WiFi networks.

When no saved network can be reached, wifiprov opens a soft access point
with a captive portal where a phone or laptop can enter new credentials.
After the configuration timeout the saved networks are tried again.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flag wins over WIFIPROV_LOG_LEVEL; both unset keeps logging silent
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config, or the default location
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("wifiprov %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
	},
}
