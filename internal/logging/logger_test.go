package logging

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a no-op when no level is configured")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}

	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDomainHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogStateChange("Connected", "Recovering", "HomeNet", 0)
	LogConnectAttempt("HomeNet", "timeout", errors.New("no beacon"))
	LogConnectAttempt("HomeNet", "begin", nil)
	LogPortalEvent("started", zap.String("ap_ssid", "wifiprov-setup"))
	LogDNSQuery("192.168.4.2:5353", "example.com.", "A", "192.168.4.1")

	if logs.Len() != 5 {
		t.Fatalf("logged %d entries, want 5", logs.Len())
	}

	entries := logs.All()
	if entries[0].ContextMap()["to"] != "Recovering" {
		t.Errorf("state change 'to' = %v, want Recovering", entries[0].ContextMap()["to"])
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("failed attempt level = %v, want warn", entries[1].Level)
	}
	if entries[2].Level != zapcore.InfoLevel {
		t.Errorf("begin attempt level = %v, want info", entries[2].Level)
	}
	if entries[3].ContextMap()["event"] != "started" {
		t.Errorf("portal event = %v, want started", entries[3].ContextMap()["event"])
	}
	if entries[4].Level != zapcore.DebugLevel {
		t.Errorf("dns query level = %v, want debug", entries[4].Level)
	}
}

func TestConcurrentUse(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	defer SetLogger(nil)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i == 0 {
				SetLogger(zap.New(core))
			}
			Info("worker", zap.Int("id", i))
			_ = GetLogger()
		}(i)
	}
	wg.Wait()

	SetLogger(zap.New(core))
	Info("after")
	if logs.FilterMessage("after").Len() != 1 {
		t.Errorf("logged %d 'after' entries, want 1", logs.FilterMessage("after").Len())
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	SetLogger(nil)
	if GetLogger() == nil {
		t.Fatal("GetLogger() = nil after SetLogger(nil)")
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("SetLogger(nil) should restore the no-op logger")
	}
}
