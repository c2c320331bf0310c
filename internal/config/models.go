package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Config represents the entire wifiprov configuration file.
type Config struct {
	Version     int              `yaml:"version"`
	LogLevel    string           `yaml:"log_level,omitempty"`
	AccessPoint AccessPoint      `yaml:"access_point"`
	Radio       Radio            `yaml:"radio"`
	Portal      PortalConfig     `yaml:"portal"`
	Supervisor  SupervisorConfig `yaml:"supervisor"`
	Store       StoreConfig      `yaml:"store"`
	Status      StatusConfig     `yaml:"status"`
	Simulator   Simulator        `yaml:"simulator"`
}

// AccessPoint is the soft AP the portal runs on.
type AccessPoint struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	Address  string `yaml:"address"` // gateway address the captive DNS hands out
}

// Radio selects the wireless interface driven through nmcli.
type Radio struct {
	Interface string `yaml:"interface"`
}

// PortalConfig controls the configuration portal.
type PortalConfig struct {
	HTTPListen    string   `yaml:"http_listen"`
	DNSListen     string   `yaml:"dns_listen"` // empty disables captive DNS
	ConfigTimeout Duration `yaml:"config_timeout"`
	Advertise     bool     `yaml:"advertise"` // mDNS registration while active
	Instance      string   `yaml:"instance,omitempty"`
}

// SupervisorConfig holds the connection state machine timings.
type SupervisorConfig struct {
	AttemptTimeout    Duration `yaml:"attempt_timeout"`
	StatusInterval    Duration `yaml:"status_interval"`
	TickInterval      Duration `yaml:"tick_interval"`
	ReconnectAttempts int      `yaml:"reconnect_attempts"`
}

// StoreConfig locates the credential store.
type StoreConfig struct {
	Path           string `yaml:"path"` // leveldb directory; empty uses the config dir
	CapacityPolicy string `yaml:"capacity_policy"`
}

// StatusConfig is the local status endpoint (websocket feed, JSON, metrics).
type StatusConfig struct {
	Listen string `yaml:"listen"` // empty disables it
}

// Simulator replaces the radio with an in-process simulation.
type Simulator struct {
	Enabled      bool               `yaml:"enabled"`
	ConnectPolls int                `yaml:"connect_polls"`
	Networks     []SimulatedNetwork `yaml:"networks,omitempty"`
}

// SimulatedNetwork is a network the simulator can reach.
type SimulatedNetwork struct {
	SSID   string `yaml:"ssid"`
	Secret string `yaml:"secret"`
}

// Duration is a time.Duration written as a string ("120s") in YAML.
type Duration time.Duration

// D returns the value as a time.Duration
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// String formats the duration the way time.Duration does
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Bare integers are seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string like \"30s\"", value.Line)
	}

	if value.Tag == "!!int" {
		var secs int
		if err := value.Decode(&secs); err != nil {
			return fmt.Errorf("line %d: invalid duration: %w", value.Line, err)
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	return &Config{
		Version:  CurrentVersion,
		LogLevel: "info",
		AccessPoint: AccessPoint{
			SSID:     "wifiprov-setup",
			Password: "configureme",
			Address:  "192.168.4.1",
		},
		Radio: Radio{
			Interface: "wlan0",
		},
		Portal: PortalConfig{
			HTTPListen:    ":80",
			DNSListen:     ":53",
			ConfigTimeout: Duration(120 * time.Second),
			Advertise:     true,
		},
		Supervisor: SupervisorConfig{
			AttemptTimeout:    Duration(10 * time.Second),
			StatusInterval:    Duration(time.Second),
			TickInterval:      Duration(100 * time.Millisecond),
			ReconnectAttempts: 10,
		},
		Store: StoreConfig{
			CapacityPolicy: "reject",
		},
		Status: StatusConfig{
			Listen: "127.0.0.1:8787",
		},
		Simulator: Simulator{
			ConnectPolls: 5,
		},
	}
}
