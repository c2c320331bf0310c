// Package config provides the wifiprov configuration file.
//
// The configuration is a YAML file holding the soft-AP identity, portal
// listeners, supervisor timings, the credential store location and the
// simulator setup. Every field has a default, so a missing file is valid.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/wifiprov/config.yaml or $HOME/.config/wifiprov/config.yaml
//   - macOS: $HOME/.config/wifiprov/config.yaml
//   - Windows: %LOCALAPPDATA%\wifiprov\config.yaml
//
// # Security
//
// Saved network pass-phrases are never written here. They live in the
// credential store (see package credentials).
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	sup := supervisor.New(station, store, portal,
//	    supervisor.WithAttemptTimeout(cfg.Supervisor.AttemptTimeout.D()))
//
// Durations are written as strings ("120s", "2m"); a bare integer is read
// as seconds.
package config
