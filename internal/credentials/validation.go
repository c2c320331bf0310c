package credentials

import (
	"fmt"
	"unicode"
)

const (
	// MaxIdentifierLength is the 802.11 SSID limit in bytes
	MaxIdentifierLength = 32

	// MinSecretLength is the shortest WPA2 pass-phrase
	MinSecretLength = 8

	// MaxPassphraseLength is the longest WPA2 pass-phrase
	MaxPassphraseLength = 63

	// MaxSecretLength allows a 63-character pass-phrase or a 64-digit hex PSK
	MaxSecretLength = 64
)

// ValidateSSID validates a network identifier.
// SSIDs must be non-empty, at most 32 bytes and free of control characters.
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return NewValidationError("network name cannot be empty")
	}
	if len(ssid) > MaxIdentifierLength {
		return NewValidationError(fmt.Sprintf("network name too long (max %d bytes): %d bytes", MaxIdentifierLength, len(ssid)))
	}
	for _, r := range ssid {
		if unicode.IsControl(r) {
			return NewValidationError("network name contains control characters")
		}
	}
	return nil
}

// ValidateSecret validates a network pass-phrase.
// WPA2 accepts 8-63 characters, or a raw PSK of exactly 64 hex digits.
func ValidateSecret(secret string) error {
	switch n := len(secret); {
	case n == 0:
		return NewValidationError("password cannot be empty")
	case n < MinSecretLength:
		return NewValidationError(fmt.Sprintf("password too short (min %d chars): %d chars", MinSecretLength, n))
	case n == MaxSecretLength:
		if !isHex(secret) {
			return NewValidationError(fmt.Sprintf("a %d-character password must be a hex PSK", MaxSecretLength))
		}
	case n > MaxSecretLength:
		return NewValidationError(fmt.Sprintf("password too long (max %d chars): %d chars", MaxPassphraseLength, n))
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// ValidateCredential validates both halves of a credential, identifier first.
func ValidateCredential(ssid, secret string) error {
	if err := ValidateSSID(ssid); err != nil {
		return err
	}
	return ValidateSecret(secret)
}
