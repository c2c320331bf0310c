package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

const (
	// ServiceType is the mDNS service type portals advertise
	ServiceType = "_wifiprov._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for portal discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the default portal HTTP port
	DefaultPort = 80

	// TXT record keys
	TxtAccessPoint = "ap"
	TxtSession     = "session"
	TxtVersion     = "version"
)

// Advertiser registers the portal over mDNS while it is active.
// It implements the portal's Component interface.
type Advertiser struct {
	Instance string
	Port     int

	// Text returns the TXT record at Start time
	Text func() []string

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser for instance on port
func NewAdvertiser(instance string, port int, text func() []string) *Advertiser {
	if port == 0 {
		port = DefaultPort
	}
	return &Advertiser{Instance: instance, Port: port, Text: text}
}

// Start registers the service. Starting twice is a no-op.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}

	var txt []string
	if a.Text != nil {
		txt = a.Text()
	}

	server, err := zeroconf.Register(a.Instance, ServiceType, ServiceDomain, a.Port, txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.server = server
	logging.Info("Advertising portal", zap.String("instance", a.Instance), zap.Int("port", a.Port))
	return nil
}

// Stop withdraws the advertisement
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return nil
	}
	a.server.Shutdown()
	a.server = nil
	return nil
}

// Scanner handles mDNS portal discovery
type Scanner struct {
	// Timeout is the maximum time to wait for portal discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all active portals on the local network
func (s *Scanner) ScanForDevices(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var mu sync.Mutex
	devices := make([]*Device, 0)
	seen := make(map[string]bool)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if !seen[device.Instance] {
				seen[device.Instance] = true
				devices = append(devices, device)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	out := make([]*Device, len(devices))
	copy(out, devices)
	return out, nil
}

// WaitForDevice waits for a specific portal instance
func (s *Scanner) WaitForDevice(ctx context.Context, instance string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	deviceChan := make(chan *Device, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		if device := s.awaitInstance(entries, instance); device != nil {
			deviceChan <- device
			cancel()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case device := <-deviceChan:
		return device, nil
	case <-ctx.Done():
		select {
		case device := <-deviceChan:
			return device, nil
		default:
		}
		return nil, fmt.Errorf("portal %s not found within timeout", instance)
	}
}

// awaitInstance reads entries until one resolves to instance. It returns
// nil if the channel closes first.
func (s *Scanner) awaitInstance(entries <-chan *zeroconf.ServiceEntry, instance string) *Device {
	for entry := range entries {
		device := s.parseServiceEntry(entry)
		if device != nil && device.Instance == instance {
			return device
		}
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Device
// Returns nil if the entry has no instance name or address
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Device{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     ParseText(entry.Text),
		DiscoveredAt: time.Now(),
	}
}

// ParseText turns "key=value" TXT strings into a map. A key without "="
// maps to the empty string.
func ParseText(txt []string) map[string]string {
	metadata := make(map[string]string, len(txt))
	for _, t := range txt {
		parts := strings.SplitN(t, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// Text builds a TXT record from key/value pairs in a stable order
func Text(pairs ...string) []string {
	out := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, pairs[i]+"="+pairs[i+1])
	}
	return out
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan(ctx context.Context) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.ScanForDevices(ctx)
}
