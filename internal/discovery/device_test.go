package discovery

import (
	"testing"
)

func TestDevice_String(t *testing.T) {
	device := &Device{
		Instance: "wifiprov-a1b2c3",
		Hostname: "kitchen-sensor.local.",
		IP:       "192.168.4.1",
		Port:     80,
	}

	expected := "wifiprov-a1b2c3 (kitchen-sensor.local.) at 192.168.4.1:80"
	if device.String() != expected {
		t.Errorf("Device.String() = %v, want %v", device.String(), expected)
	}
}

func TestDevice_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		expected string
	}{
		{
			name: "standard HTTP port",
			device: &Device{
				IP:   "192.168.4.1",
				Port: 80,
			},
			expected: "http://192.168.4.1:80",
		},
		{
			name: "custom port",
			device: &Device{
				IP:   "10.0.0.5",
				Port: 8080,
			},
			expected: "http://10.0.0.5:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.BaseURL(); got != tt.expected {
				t.Errorf("Device.BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_Metadata(t *testing.T) {
	device := &Device{
		Metadata: map[string]string{
			TxtAccessPoint: "wifiprov-setup",
			TxtSession:     "5f0c7a2e",
		},
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"access point", device.AccessPoint(), "wifiprov-setup"},
		{"session", device.Session(), "5f0c7a2e"},
		{"non-existent key", device.GetMetadata("missing"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestDevice_GetMetadata_NilMap(t *testing.T) {
	device := &Device{
		Metadata: nil,
	}

	if got := device.GetMetadata("anything"); got != "" {
		t.Errorf("Device.GetMetadata() with nil map = %v, want empty string", got)
	}
	if got := device.AccessPoint(); got != "" {
		t.Errorf("Device.AccessPoint() with nil map = %v, want empty string", got)
	}
}
