package remote

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the portal port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates an unexpected status code
	ErrTypeHTTP
	// ErrTypeRejected indicates the device refused the request (bad input, store full, unknown network)
	ErrTypeRejected
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeRejected:
		return "Rejected"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError is an error talking to a device's portal
type DeviceError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError turns a transport error into a DeviceError
func ClassifyNetworkError(message string, err error) *DeviceError {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	if os.IsTimeout(err) {
		return &DeviceError{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{Type: ErrTypeDNS, Message: message, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &DeviceError{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}

	return &DeviceError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// NewHTTPError classifies a non-2xx response. msg is the device's error text, if any.
func NewHTTPError(statusCode int, msg string) *DeviceError {
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	switch {
	case statusCode == http.StatusBadRequest,
		statusCode == http.StatusNotFound,
		statusCode == http.StatusConflict:
		return &DeviceError{Type: ErrTypeRejected, Message: msg, StatusCode: statusCode}
	case statusCode >= 500:
		return &DeviceError{Type: ErrTypeHTTP, Message: msg, StatusCode: statusCode, Retryable: true}
	default:
		return &DeviceError{Type: ErrTypeHTTP, Message: msg, StatusCode: statusCode}
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{Type: ErrTypeParse, Message: message, Err: err}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Retryable
	}
	return false
}

// notDelivered reports whether a failed request certainly did not reach
// the device, so a form post can be repeated
func notDelivered(err error) bool {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return false
	}
	return devErr.Type == ErrTypeConnectionRefused ||
		devErr.StatusCode == http.StatusServiceUnavailable
}

// IsRejected reports whether the device refused the request itself
func IsRejected(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Type == ErrTypeRejected
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection - is the setup portal open?"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeRejected:
		return devErr.Message
	case ErrTypeHTTP:
		if devErr.StatusCode == http.StatusServiceUnavailable {
			return devErr.Message
		}
		return fmt.Sprintf("Device error (HTTP %d)", devErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse device response"
	default:
		return devErr.Message
	}
}

// Troubleshooting returns hints for err, or nil when there are none
func Troubleshooting(err error) []string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return nil
	}

	switch devErr.Type {
	case ErrTypeTimeout, ErrTypeNetwork:
		return []string{
			"Check that you are joined to the device's setup network",
			"Move closer to the device",
			"Run 'wifiprov discover' to confirm the device address",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"The portal only listens while the device is in setup mode",
			"Wait for the saved networks to fail, or delete them on the device",
			"Verify the port with --port (default 80)",
		}
	case ErrTypeDNS:
		return []string{"Use the device IP address instead of a hostname"}
	case ErrTypeHTTP:
		if devErr.StatusCode == http.StatusServiceUnavailable {
			return []string{"The portal closed or is busy; retry in a few seconds"}
		}
		return nil
	default:
		return nil
	}
}
