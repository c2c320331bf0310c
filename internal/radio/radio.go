package radio

import (
	"errors"
	"fmt"
)

// LinkStatus is the station-side association state as reported by the radio
type LinkStatus int

const (
	// LinkIdle means no association is in progress or established
	LinkIdle LinkStatus = iota
	// LinkConnecting means an association was requested and has not resolved
	LinkConnecting
	// LinkUp means the station is associated and has an address
	LinkUp
	// LinkFailed means the last association was refused (wrong secret, radio fault)
	LinkFailed
)

// String returns a human-readable name for the link status
func (s LinkStatus) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkConnecting:
		return "connecting"
	case LinkUp:
		return "up"
	case LinkFailed:
		return "failed"
	default:
		return fmt.Sprintf("LinkStatus(%d)", s)
	}
}

// Station is the client-mode half of a wireless radio.
//
// Connect only starts an association; callers poll Status on later ticks.
// None of the methods may block for longer than a bounded command round-trip.
type Station interface {
	Connect(ssid, secret string) error
	Disconnect() error
	Status() LinkStatus
}

// AccessPoint is the soft-AP half of a wireless radio
type AccessPoint interface {
	StartAccessPoint(ssid, secret string) error
	StopAccessPoint() error
}

// Radio is a device that can act as both station and access point
type Radio interface {
	Station
	AccessPoint
}

// FailureReason classifies a transient connection failure
type FailureReason int

const (
	// ReasonTimeout means the association did not resolve within the attempt window
	ReasonTimeout FailureReason = iota
	// ReasonRejected means the radio reported the association as failed
	ReasonRejected
	// ReasonRadio means the radio refused the connect request itself
	ReasonRadio
	// ReasonLinkLost means an established link went down
	ReasonLinkLost
)

// String returns a human-readable name for the failure reason
func (r FailureReason) String() string {
	switch r {
	case ReasonTimeout:
		return "timeout"
	case ReasonRejected:
		return "rejected"
	case ReasonRadio:
		return "radio error"
	case ReasonLinkLost:
		return "link lost"
	default:
		return fmt.Sprintf("FailureReason(%d)", r)
	}
}

// LinkError is a transient connection failure. It is always recoverable:
// the supervisor turns it into a retry or a portal fallback.
type LinkError struct {
	Reason FailureReason
	SSID   string
	Err    error
}

// Error implements the error interface
func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.SSID, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.SSID, e.Reason)
}

// Unwrap returns the underlying error for error chain inspection
func (e *LinkError) Unwrap() error {
	return e.Err
}

// NewLinkError creates a LinkError
func NewLinkError(reason FailureReason, ssid string, err error) *LinkError {
	return &LinkError{Reason: reason, SSID: ssid, Err: err}
}

// IsLinkError checks if err is (or wraps) a LinkError
func IsLinkError(err error) bool {
	var linkErr *LinkError
	return errors.As(err, &linkErr)
}
