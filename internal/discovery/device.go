package discovery

import (
	"fmt"
	"time"
)

// Device represents a wifiprov portal found on the network
type Device struct {
	// Instance is the advertised service instance name (e.g., "wifiprov-a1b2c3")
	Instance string

	// Hostname is the mDNS hostname (e.g., "kitchen-sensor.local.")
	Hostname string

	// IP is the IPv4 address when one was advertised, otherwise IPv6
	IP string

	// Port is the portal HTTP port (typically 80)
	Port int

	// Metadata contains the TXT record data
	// Common fields: "ap", "session", "version"
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", d.Instance, d.Hostname, d.IP, d.Port)
}

// BaseURL returns the portal URL for the device
func (d *Device) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", d.IP, d.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// AccessPoint returns the soft-AP name the device advertised
func (d *Device) AccessPoint() string {
	return d.GetMetadata(TxtAccessPoint)
}

// Session returns the advertised portal session ID
func (d *Device) Session() string {
	return d.GetMetadata(TxtSession)
}
