package credentials

import "fmt"

// MaxNetworks is the number of credential slots a store holds by default
const MaxNetworks = 4

// NetworkCredential is one saved (identifier, pass-phrase) pair.
// Two credentials are the same network when their SSIDs match.
type NetworkCredential struct {
	SSID   string `json:"ssid"`
	Secret string `json:"-"`
}

// String never includes the secret
func (c NetworkCredential) String() string {
	return fmt.Sprintf("%s (%d-byte secret)", c.SSID, len(c.Secret))
}

// Set is an ordered list of credentials; index 0 is tried first
type Set []NetworkCredential

// IndexOf returns the position of ssid, or -1
func (s Set) IndexOf(ssid string) int {
	for i, c := range s {
		if c.SSID == ssid {
			return i
		}
	}
	return -1
}

// Contains reports whether ssid is in the set
func (s Set) Contains(ssid string) bool {
	return s.IndexOf(ssid) >= 0
}

// SSIDs returns the identifiers in priority order
func (s Set) SSIDs() []string {
	ids := make([]string, len(s))
	for i, c := range s {
		ids[i] = c.SSID
	}
	return ids
}

// Clone returns a copy that shares nothing with s
func (s Set) Clone() Set {
	if s == nil {
		return Set{}
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Without returns a copy of s with ssid removed
func (s Set) Without(ssid string) Set {
	out := make(Set, 0, len(s))
	for _, c := range s {
		if c.SSID != ssid {
			out = append(out, c)
		}
	}
	return out
}

// Prioritize returns a copy of s with ssid moved to the front.
// The relative order of the other entries is kept.
func (s Set) Prioritize(ssid string) Set {
	i := s.IndexOf(ssid)
	if i < 0 {
		return s.Clone()
	}
	out := make(Set, 0, len(s))
	out = append(out, s[i])
	return append(out, s.Without(ssid)...)
}

// CapacityPolicy decides what a save of a new identifier does on a full store
type CapacityPolicy int

const (
	// PolicyReject fails the save with a capacity error
	PolicyReject CapacityPolicy = iota
	// PolicyEvictOldest drops the oldest entry (slot 0) to make room
	PolicyEvictOldest
)

// String returns the configuration name of the policy
func (p CapacityPolicy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicyEvictOldest:
		return "evict-oldest"
	default:
		return fmt.Sprintf("CapacityPolicy(%d)", p)
	}
}

// ParsePolicy converts a configuration string to a CapacityPolicy.
// An empty string selects PolicyReject.
func ParsePolicy(s string) (CapacityPolicy, error) {
	switch s {
	case "", "reject":
		return PolicyReject, nil
	case "evict-oldest", "evict":
		return PolicyEvictOldest, nil
	default:
		return PolicyReject, fmt.Errorf("unknown capacity policy %q (expected reject or evict-oldest)", s)
	}
}
