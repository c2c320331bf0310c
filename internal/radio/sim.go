package radio

import (
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// Sim is a deterministic in-process radio.
//
// Networks added with AddNetwork are in range. Associating to an in-range
// network with the right secret goes up after ConnectPolls status polls; a
// wrong secret fails after the same number of polls; an out-of-range
// network stays connecting forever so the caller's timeout decides.
type Sim struct {
	mu sync.Mutex

	// ConnectPolls is how many Status calls report LinkConnecting before resolving
	ConnectPolls int

	networks map[string]string
	status   LinkStatus
	target   string
	secret   string
	pending  int
	failNext error

	apActive bool
	apSSID   string

	connects []string
}

// NewSim creates a simulated radio with no networks in range
func NewSim(connectPolls int) *Sim {
	return &Sim{
		ConnectPolls: connectPolls,
		networks:     make(map[string]string),
	}
}

// AddNetwork puts ssid in range with the given secret
func (s *Sim) AddNetwork(ssid, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks[ssid] = secret
}

// RemoveNetwork takes ssid out of range. An established link to it drops.
func (s *Sim) RemoveNetwork(ssid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.networks, ssid)
	if s.target == ssid && s.status == LinkUp {
		s.status = LinkIdle
	}
}

// DropLink drops an established link without changing what is in range
func (s *Sim) DropLink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == LinkUp {
		s.status = LinkIdle
		logging.Debug("Simulated link dropped", zap.String("ssid", s.target))
	}
}

// FailNextConnect makes the next Connect call return err
func (s *Sim) FailNextConnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Connect implements Station
func (s *Sim) Connect(ssid, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connects = append(s.connects, ssid)

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		s.status = LinkIdle
		return err
	}

	s.target = ssid
	s.secret = secret
	s.pending = s.ConnectPolls
	s.status = LinkConnecting
	return nil
}

// Disconnect implements Station
func (s *Sim) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = LinkIdle
	s.target = ""
	s.secret = ""
	return nil
}

// Status implements Station
func (s *Sim) Status() LinkStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != LinkConnecting {
		return s.status
	}

	want, inRange := s.networks[s.target]
	if !inRange {
		return LinkConnecting
	}
	if s.pending > 0 {
		s.pending--
		return LinkConnecting
	}

	if want == s.secret {
		s.status = LinkUp
	} else {
		s.status = LinkFailed
	}
	return s.status
}

// Associated returns the SSID the link is up on, or ""
func (s *Sim) Associated() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != LinkUp {
		return ""
	}
	return s.target
}

// Connects returns every SSID passed to Connect, in order
func (s *Sim) Connects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.connects))
	copy(out, s.connects)
	return out
}

// StartAccessPoint implements AccessPoint
func (s *Sim) StartAccessPoint(ssid, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apActive = true
	s.apSSID = ssid
	return nil
}

// StopAccessPoint implements AccessPoint
func (s *Sim) StopAccessPoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apActive = false
	return nil
}

// AccessPointActive reports whether the soft-AP is on, and its SSID
func (s *Sim) AccessPointActive() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apActive, s.apSSID
}
