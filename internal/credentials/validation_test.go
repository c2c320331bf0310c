package credentials

import (
	"strings"
	"testing"
)

func TestValidateSSID(t *testing.T) {
	tests := []struct {
		name    string
		ssid    string
		wantErr bool
	}{
		{"simple", "HomeNet", false},
		{"spaces allowed", "My Home Net", false},
		{"max length", strings.Repeat("a", 32), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 33), true},
		{"control character", "Home\nNet", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSSID(tt.ssid)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSSID(%q) error = %v, wantErr %v", tt.ssid, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("ValidateSSID(%q) should return a validation error, got %T", tt.ssid, err)
			}
		})
	}
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"pass-phrase", "pass12345", false},
		{"minimum length", "12345678", false},
		{"maximum pass-phrase", strings.Repeat("x", 63), false},
		{"hex psk", strings.Repeat("f", 64), false},
		{"mixed case hex psk", strings.Repeat("aB3", 21) + "c", false},
		{"empty", "", true},
		{"too short", "abc", true},
		{"seven characters", "pass123", true},
		{"64 characters not hex", strings.Repeat("x", 64), true},
		{"too long", strings.Repeat("f", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSecret(tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("ValidateSecret() should return a validation error, got %T", err)
			}
		})
	}
}

func TestValidateCredentialChecksSSIDFirst(t *testing.T) {
	err := ValidateCredential("", "")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "network name") {
		t.Errorf("error = %v, want the network name complaint first", err)
	}
}

func TestSetHelpers(t *testing.T) {
	set := Set{{SSID: "A"}, {SSID: "B"}, {SSID: "C"}}

	if got := set.Prioritize("C").SSIDs(); strings.Join(got, ",") != "C,A,B" {
		t.Errorf("Prioritize(C) = %v, want [C A B]", got)
	}
	if got := set.Prioritize("Z").SSIDs(); strings.Join(got, ",") != "A,B,C" {
		t.Errorf("Prioritize(Z) = %v, want unchanged", got)
	}
	if got := set.Without("B").SSIDs(); strings.Join(got, ",") != "A,C" {
		t.Errorf("Without(B) = %v, want [A C]", got)
	}
	if set.IndexOf("B") != 1 {
		t.Errorf("IndexOf(B) = %d, want 1", set.IndexOf("B"))
	}
	if len(Set(nil).Clone()) != 0 {
		t.Error("Clone of nil should be empty")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    CapacityPolicy
		wantErr bool
	}{
		{"", PolicyReject, false},
		{"reject", PolicyReject, false},
		{"evict-oldest", PolicyEvictOldest, false},
		{"evict", PolicyEvictOldest, false},
		{"random", PolicyReject, true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCredentialStringHidesSecret(t *testing.T) {
	c := NetworkCredential{SSID: "HomeNet", Secret: "pass12345"}
	if strings.Contains(c.String(), "pass12345") {
		t.Errorf("String() = %s, must not contain the secret", c.String())
	}
}
