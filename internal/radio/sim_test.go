package radio

import (
	"errors"
	"testing"
)

func TestSimConnectInRange(t *testing.T) {
	sim := NewSim(2)
	sim.AddNetwork("HomeNet", "pass12345")

	if err := sim.Connect("HomeNet", "pass12345"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	want := []LinkStatus{LinkConnecting, LinkConnecting, LinkUp, LinkUp}
	for i, w := range want {
		if got := sim.Status(); got != w {
			t.Errorf("poll %d: Status() = %v, want %v", i, got, w)
		}
	}

	if sim.Associated() != "HomeNet" {
		t.Errorf("Associated() = %q, want HomeNet", sim.Associated())
	}
}

func TestSimWrongSecretFails(t *testing.T) {
	sim := NewSim(0)
	sim.AddNetwork("HomeNet", "pass12345")

	_ = sim.Connect("HomeNet", "wrong")
	if got := sim.Status(); got != LinkFailed {
		t.Errorf("Status() = %v, want failed", got)
	}
}

func TestSimOutOfRangeNeverResolves(t *testing.T) {
	sim := NewSim(0)

	_ = sim.Connect("Nowhere", "pass12345")
	for i := 0; i < 10; i++ {
		if got := sim.Status(); got != LinkConnecting {
			t.Fatalf("poll %d: Status() = %v, want connecting", i, got)
		}
	}
}

func TestSimDropAndRemove(t *testing.T) {
	sim := NewSim(0)
	sim.AddNetwork("HomeNet", "pass12345")
	_ = sim.Connect("HomeNet", "pass12345")
	sim.Status()

	sim.DropLink()
	if got := sim.Status(); got != LinkIdle {
		t.Errorf("after DropLink Status() = %v, want idle", got)
	}

	_ = sim.Connect("HomeNet", "pass12345")
	sim.Status()
	sim.RemoveNetwork("HomeNet")
	if got := sim.Status(); got != LinkIdle {
		t.Errorf("after RemoveNetwork Status() = %v, want idle", got)
	}
}

func TestSimFailNextConnect(t *testing.T) {
	sim := NewSim(0)
	sim.AddNetwork("HomeNet", "pass12345")
	radioErr := errors.New("radio busy")
	sim.FailNextConnect(radioErr)

	if err := sim.Connect("HomeNet", "pass12345"); !errors.Is(err, radioErr) {
		t.Errorf("Connect() error = %v, want %v", err, radioErr)
	}
	if err := sim.Connect("HomeNet", "pass12345"); err != nil {
		t.Errorf("second Connect() error = %v, want nil", err)
	}

	if got := sim.Connects(); len(got) != 2 {
		t.Errorf("Connects() = %v, want 2 entries", got)
	}
}

func TestSimAccessPoint(t *testing.T) {
	sim := NewSim(0)

	_ = sim.StartAccessPoint("wifiprov-setup", "configureme")
	if active, ssid := sim.AccessPointActive(); !active || ssid != "wifiprov-setup" {
		t.Errorf("AccessPointActive() = %v, %q", active, ssid)
	}

	_ = sim.StopAccessPoint()
	if active, _ := sim.AccessPointActive(); active {
		t.Error("access point should be off after StopAccessPoint")
	}
}

func TestLinkError(t *testing.T) {
	cause := errors.New("no beacon")
	err := NewLinkError(ReasonTimeout, "HomeNet", cause)

	if err.Error() != "HomeNet: timeout (caused by: no beacon)" {
		t.Errorf("Error() = %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !IsLinkError(err) {
		t.Error("IsLinkError should be true")
	}
	if IsLinkError(cause) {
		t.Error("IsLinkError should be false for a plain error")
	}
}

func TestStatusStrings(t *testing.T) {
	if LinkUp.String() != "up" || LinkStatus(9).String() != "LinkStatus(9)" {
		t.Errorf("unexpected LinkStatus strings: %s %s", LinkUp, LinkStatus(9))
	}
	if ReasonLinkLost.String() != "link lost" {
		t.Errorf("ReasonLinkLost.String() = %s", ReasonLinkLost)
	}
}
