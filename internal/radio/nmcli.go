package radio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

const (
	// DefaultInterface is the wireless interface NetworkManager drives
	DefaultInterface = "wlan0"

	// DefaultCommandTimeout bounds the synchronous nmcli calls (status, disconnect, hotspot)
	DefaultCommandTimeout = 3 * time.Second

	// hotspotConnection is the connection name nmcli gives a hotspot
	hotspotConnection = "Hotspot"
)

// Runner executes nmcli with args and returns combined output
type Runner func(ctx context.Context, args ...string) ([]byte, error)

func execRunner(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "nmcli", args...).CombinedOutput()
}

// NMCLI drives a NetworkManager-managed interface through the nmcli tool.
//
// Connect runs `nmcli device wifi connect` in the background and returns at
// once; Status reports LinkConnecting until that command finishes. Every
// other call is a synchronous nmcli invocation bounded by CommandTimeout.
type NMCLI struct {
	Interface      string
	CommandTimeout time.Duration

	run Runner

	mu      sync.Mutex
	status  LinkStatus
	ssid    string
	cancel  context.CancelFunc
	attempt int
}

// NewNMCLI creates a backend for iface. An empty iface selects DefaultInterface.
func NewNMCLI(iface string) *NMCLI {
	if iface == "" {
		iface = DefaultInterface
	}
	return &NMCLI{
		Interface:      iface,
		CommandTimeout: DefaultCommandTimeout,
		run:            execRunner,
	}
}

// WithRunner replaces the nmcli executor
func (n *NMCLI) WithRunner(r Runner) *NMCLI {
	n.run = r
	return n
}

// CheckAvailable verifies nmcli can be executed
func (n *NMCLI) CheckAvailable() error {
	ctx, cancel := context.WithTimeout(context.Background(), n.CommandTimeout)
	defer cancel()
	if _, err := n.run(ctx, "--version"); err != nil {
		return fmt.Errorf("'nmcli' is not installed or not found in PATH: %w", err)
	}
	return nil
}

func (n *NMCLI) runSync(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), n.CommandTimeout)
	defer cancel()
	out, err := n.run(ctx, args...)
	return strings.TrimSpace(string(out)), err
}

// Connect implements Station
func (n *NMCLI) Connect(ssid, secret string) error {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.attempt++
	attempt := n.attempt
	n.status = LinkConnecting
	n.ssid = ssid
	n.mu.Unlock()

	go func() {
		out, err := n.run(ctx, "--wait", "30", "device", "wifi", "connect", ssid,
			"password", secret, "ifname", n.Interface)

		n.mu.Lock()
		defer n.mu.Unlock()
		if attempt != n.attempt || ctx.Err() != nil {
			return
		}
		if err != nil {
			logging.Debug("nmcli connect failed",
				zap.String("ssid", ssid),
				zap.String("output", strings.TrimSpace(string(out))),
				zap.Error(err),
			)
			n.status = LinkFailed
			return
		}
		n.status = LinkUp
	}()

	return nil
}

// Disconnect implements Station
func (n *NMCLI) Disconnect() error {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.attempt++
	n.status = LinkIdle
	n.ssid = ""
	n.mu.Unlock()

	if out, err := n.runSync("device", "disconnect", n.Interface); err != nil {
		// "not active": the device was already idle
		if !strings.Contains(out, "not active") {
			return fmt.Errorf("nmcli disconnect failed: %s: %w", out, err)
		}
	}
	return nil
}

// Status implements Station. An established link is re-checked against
// the device state so a dropped association is noticed.
func (n *NMCLI) Status() LinkStatus {
	n.mu.Lock()
	status := n.status
	n.mu.Unlock()

	if status != LinkUp {
		return status
	}

	out, err := n.runSync("-t", "-g", "GENERAL.STATE", "device", "show", n.Interface)
	if err == nil && strings.HasPrefix(out, "100") {
		return LinkUp
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status == LinkUp {
		n.status = LinkIdle
	}
	return n.status
}

// StartAccessPoint implements AccessPoint
func (n *NMCLI) StartAccessPoint(ssid, secret string) error {
	args := []string{"device", "wifi", "hotspot", "ifname", n.Interface, "ssid", ssid}
	if secret != "" {
		args = append(args, "password", secret)
	}
	if out, err := n.runSync(args...); err != nil {
		return fmt.Errorf("nmcli hotspot failed: %s: %w", out, err)
	}
	return nil
}

// StopAccessPoint implements AccessPoint
func (n *NMCLI) StopAccessPoint() error {
	if out, err := n.runSync("connection", "down", hotspotConnection); err != nil {
		return fmt.Errorf("nmcli hotspot stop failed: %s: %w", out, err)
	}
	return nil
}
