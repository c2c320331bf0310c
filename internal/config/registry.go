package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/wifiprov/internal/credentials"
)

const (
	appName    = "wifiprov"
	configFile = "config.yaml"
	storeDir   = "networks"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/wifiprov or $HOME/.config/wifiprov
//   - macOS: $HOME/.config/wifiprov (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\wifiprov
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// resolvePath turns "" into the default config path
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return GetConfigPath()
}

// Load reads the configuration at path ("" for the default location).
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	configPath, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that YAML decoding cannot.
func (c *Config) Validate() error {
	if c.AccessPoint.SSID == "" {
		return fmt.Errorf("access_point.ssid is required")
	}
	if err := credentials.ValidateSSID(c.AccessPoint.SSID); err != nil {
		return fmt.Errorf("access_point.ssid: %w", err)
	}
	if n := len(c.AccessPoint.Password); n != 0 && (n < 8 || n > 63) {
		return fmt.Errorf("access_point.password must be 8-63 characters or empty for an open network")
	}
	if ip := net.ParseIP(c.AccessPoint.Address); ip == nil || ip.To4() == nil {
		return fmt.Errorf("access_point.address %q is not an IPv4 address", c.AccessPoint.Address)
	}

	if c.Supervisor.AttemptTimeout <= 0 {
		return fmt.Errorf("supervisor.attempt_timeout must be positive")
	}
	if c.Supervisor.StatusInterval <= 0 {
		return fmt.Errorf("supervisor.status_interval must be positive")
	}
	if c.Supervisor.TickInterval <= 0 {
		return fmt.Errorf("supervisor.tick_interval must be positive")
	}
	if c.Supervisor.ReconnectAttempts <= 0 {
		return fmt.Errorf("supervisor.reconnect_attempts must be positive")
	}
	if c.Portal.ConfigTimeout <= 0 {
		return fmt.Errorf("portal.config_timeout must be positive")
	}
	if c.Portal.HTTPListen == "" {
		return fmt.Errorf("portal.http_listen is required")
	}

	if _, err := credentials.ParsePolicy(c.Store.CapacityPolicy); err != nil {
		return fmt.Errorf("store.capacity_policy: %w", err)
	}

	if c.Simulator.ConnectPolls < 0 {
		return fmt.Errorf("simulator.connect_polls must not be negative")
	}
	return nil
}

// CapacityPolicy returns the parsed store policy. Validate has already
// rejected unknown names, so this never fails on a loaded config.
func (c *Config) CapacityPolicy() credentials.CapacityPolicy {
	p, _ := credentials.ParsePolicy(c.Store.CapacityPolicy)
	return p
}

// StorePath returns the leveldb directory, defaulting to one beside the config file.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, storeDir), nil
}

// Save writes the configuration to path ("" for the default location).
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	configPath, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# wifiprov configuration file
#
# Saved WiFi networks are not kept here; they live in the credential
# store under store.path and are managed with "wifiprov networks".
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	// The file may hold the soft-AP password
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig writes the defaults to path unless a file is already there.
func CreateDefaultConfig(path string) (string, error) {
	configPath, err := resolvePath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(configPath); err == nil {
		return configPath, fmt.Errorf("config file already exists: %s", configPath)
	}
	return configPath, Default().Save(configPath)
}
