package supervisor

import (
	"fmt"
	"time"
)

// State is the supervisor's connectivity state
type State int

const (
	// Idle is the state before Setup
	Idle State = iota
	// AttemptingSaved walks the saved networks in priority order
	AttemptingSaved
	// Connected means the station link is up
	Connected
	// Recovering runs bounded reconnect cycles after a link loss
	Recovering
	// PortalActive means the configuration portal is serving
	PortalActive
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AttemptingSaved:
		return "AttemptingSaved"
	case Connected:
		return "Connected"
	case Recovering:
		return "Recovering"
	case PortalActive:
		return "PortalActive"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// MarshalText lets states appear by name in JSON and YAML
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *State) UnmarshalText(b []byte) error {
	for st := Idle; st <= PortalActive; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown supervisor state %q", b)
}

// PortalSession exists only while the supervisor is in PortalActive
type PortalSession struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Active    bool      `json:"active"`
}

// Status is a point-in-time view of the supervisor, safe to read from any goroutine
type Status struct {
	State      State          `json:"state"`
	Since      time.Time      `json:"since"`
	SSID       string         `json:"ssid,omitempty"`
	Attempting string         `json:"attempting,omitempty"`
	RetryCount int            `json:"retry_count"`
	Session    *PortalSession `json:"session,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
}

// Transition is one state change, as delivered to a Notifier
type Transition struct {
	From State
	To   State
}
