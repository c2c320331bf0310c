package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/wifiprov/internal/credentials"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "wifiprov") {
		t.Errorf("GetConfigDir() = %v, should contain 'wifiprov'", configDir)
	}

	if runtime.GOOS == "linux" && configDir != filepath.Join("/tmp/xdg-test", "wifiprov") {
		t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME/wifiprov", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"version", cfg.Version, 1},
		{"config timeout", cfg.Portal.ConfigTimeout.D(), 120 * time.Second},
		{"reconnect attempts", cfg.Supervisor.ReconnectAttempts, 10},
		{"attempt timeout", cfg.Supervisor.AttemptTimeout.D(), 10 * time.Second},
		{"tick interval", cfg.Supervisor.TickInterval.D(), 100 * time.Millisecond},
		{"http listen", cfg.Portal.HTTPListen, ":80"},
		{"dns listen", cfg.Portal.DNSListen, ":53"},
		{"capacity policy", cfg.CapacityPolicy(), credentials.PolicyReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AccessPoint.SSID != "wifiprov-setup" {
		t.Errorf("AccessPoint.SSID = %v, want wifiprov-setup", cfg.AccessPoint.SSID)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
access_point:
  ssid: kitchen-setup
portal:
  config_timeout: 2m
supervisor:
  attempt_timeout: 15
  reconnect_attempts: 3
store:
  capacity_policy: evict-oldest
simulator:
  enabled: true
  networks:
    - ssid: HomeNet
      secret: pass123
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.AccessPoint.SSID != "kitchen-setup" {
		t.Errorf("AccessPoint.SSID = %v", cfg.AccessPoint.SSID)
	}
	if cfg.AccessPoint.Password != "configureme" {
		t.Errorf("AccessPoint.Password = %v, want default kept", cfg.AccessPoint.Password)
	}
	if cfg.Portal.ConfigTimeout.D() != 2*time.Minute {
		t.Errorf("ConfigTimeout = %v, want 2m", cfg.Portal.ConfigTimeout)
	}
	if cfg.Supervisor.AttemptTimeout.D() != 15*time.Second {
		t.Errorf("AttemptTimeout = %v, want 15s", cfg.Supervisor.AttemptTimeout)
	}
	if cfg.Supervisor.ReconnectAttempts != 3 {
		t.Errorf("ReconnectAttempts = %v, want 3", cfg.Supervisor.ReconnectAttempts)
	}
	if cfg.CapacityPolicy() != credentials.PolicyEvictOldest {
		t.Errorf("CapacityPolicy() = %v, want evict-oldest", cfg.CapacityPolicy())
	}
	if !cfg.Simulator.Enabled || len(cfg.Simulator.Networks) != 1 || cfg.Simulator.Networks[0].SSID != "HomeNet" {
		t.Errorf("Simulator = %+v", cfg.Simulator)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad version", "version: 2\n", "unsupported config version"},
		{"bad duration", "portal:\n  config_timeout: soon\n", "invalid duration"},
		{"zero attempts", "supervisor:\n  reconnect_attempts: 0\n", "reconnect_attempts"},
		{"short ap password", "access_point:\n  password: short\n", "8-63"},
		{"ipv6 address", "access_point:\n  address: fe80::1\n", "IPv4"},
		{"unknown policy", "store:\n  capacity_policy: lru\n", "capacity_policy"},
		{"negative duration", "supervisor:\n  attempt_timeout: -1s\n", "attempt_timeout"},
		{"not yaml", "version: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestOpenAccessPointAllowed(t *testing.T) {
	if _, err := Parse([]byte("access_point:\n  password: \"\"\n")); err != nil {
		t.Errorf("Parse() open AP error = %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.AccessPoint.SSID = "garage-setup"
	cfg.Supervisor.StatusInterval = Duration(3 * time.Second)

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be gone after Save")
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `status_interval: 3s`) {
		t.Errorf("durations should be written as strings, got:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.AccessPoint.SSID != "garage-setup" {
		t.Errorf("AccessPoint.SSID = %v, want garage-setup", loaded.AccessPoint.SSID)
	}
	if loaded.Supervisor.StatusInterval.D() != 3*time.Second {
		t.Errorf("StatusInterval = %v, want 3s", loaded.Supervisor.StatusInterval)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	got, err := CreateDefaultConfig(path)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if got != path {
		t.Errorf("CreateDefaultConfig() path = %v, want %v", got, path)
	}

	if _, err := CreateDefaultConfig(path); err == nil {
		t.Error("CreateDefaultConfig() should refuse to overwrite")
	}
}

func TestStorePath(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = "/var/lib/wifiprov"
	if p, _ := cfg.StorePath(); p != "/var/lib/wifiprov" {
		t.Errorf("StorePath() = %v, want /var/lib/wifiprov", p)
	}

	cfg.Store.Path = ""
	p, err := cfg.StorePath()
	if err != nil {
		t.Fatalf("StorePath() error = %v", err)
	}
	if filepath.Base(p) != "networks" {
		t.Errorf("StorePath() = %v, want .../networks", p)
	}
}
