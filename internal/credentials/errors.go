package credentials

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a credential store failure
type ErrorType int

const (
	// ErrTypeCapacityExceeded indicates a save was rejected because every slot is in use
	ErrTypeCapacityExceeded ErrorType = iota
	// ErrTypeNotFound indicates a delete named an identifier that is not stored
	ErrTypeNotFound
	// ErrTypeCorrupt indicates the persisted layout could not be decoded
	ErrTypeCorrupt
	// ErrTypeValidation indicates the identifier or secret was rejected before storage
	ErrTypeValidation
	// ErrTypeStorage indicates the underlying key-value engine failed
	ErrTypeStorage
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeCapacityExceeded:
		return "Capacity Exceeded"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeCorrupt:
		return "Corrupt Store"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeStorage:
		return "Storage Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// StoreError is returned by every failing Store operation
type StoreError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	SSID    string    // Identifier involved (if any)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewCapacityError creates a capacity-exceeded error for ssid
func NewCapacityError(ssid string, capacity int) *StoreError {
	return &StoreError{
		Type:    ErrTypeCapacityExceeded,
		Message: fmt.Sprintf("all %d network slots are in use", capacity),
		SSID:    ssid,
	}
}

// NewNotFoundError creates a not-found error for ssid
func NewNotFoundError(ssid string) *StoreError {
	return &StoreError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("network %q is not saved", ssid),
		SSID:    ssid,
	}
}

// NewCorruptError creates a corrupt-store error
func NewCorruptError(message string, err error) *StoreError {
	return &StoreError{
		Type:    ErrTypeCorrupt,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *StoreError {
	return &StoreError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

// NewStorageError wraps a failure of the key-value engine
func NewStorageError(message string, err error) *StoreError {
	return &StoreError{
		Type:    ErrTypeStorage,
		Message: message,
		Err:     err,
	}
}

func errorType(err error) (ErrorType, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Type, true
	}
	return 0, false
}

func isType(err error, want ErrorType) bool {
	got, ok := errorType(err)
	return ok && got == want
}

// IsCapacityExceeded checks if an error is a rejected save on a full store
func IsCapacityExceeded(err error) bool {
	return isType(err, ErrTypeCapacityExceeded)
}

// IsNotFound checks if an error is a delete of an unknown identifier
func IsNotFound(err error) bool {
	return isType(err, ErrTypeNotFound)
}

// IsCorrupt checks if an error reports an undecodable store
func IsCorrupt(err error) bool {
	return isType(err, ErrTypeCorrupt)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation)
}

// IsStorageError checks if an error came from the key-value engine
func IsStorageError(err error) bool {
	return isType(err, ErrTypeStorage)
}

// ShortMessage returns a concise, user-visible message for a store error.
// The portal uses it as the body of a rejected form submission.
func ShortMessage(err error) string {
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		return err.Error()
	}

	switch storeErr.Type {
	case ErrTypeCapacityExceeded:
		return "No free network slots - delete a saved network first"
	case ErrTypeNotFound:
		return "That network is not saved"
	case ErrTypeValidation:
		return storeErr.Message
	case ErrTypeStorage:
		return "Could not write to device storage - try again"
	case ErrTypeCorrupt:
		return "Saved networks could not be read"
	default:
		return storeErr.Message
	}
}
