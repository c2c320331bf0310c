package captive

import (
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func TestNewRejectsIPv6(t *testing.T) {
	if _, err := New(":0", net.ParseIP("fe80::1")); err == nil {
		t.Error("New() with IPv6 address should fail")
	}
}

func TestAnswer(t *testing.T) {
	s, err := New(":0", net.ParseIP("192.168.4.1"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name    string
		qtype   uint16
		answers int
	}{
		{"A record is redirected", dns.TypeA, 1},
		{"AAAA gets empty answer", dns.TypeAAAA, 0},
		{"MX gets empty answer", dns.TypeMX, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := new(dns.Msg)
			q.SetQuestion("connectivitycheck.gstatic.com.", tt.qtype)

			m := s.Answer(q)
			if m.Rcode != dns.RcodeSuccess {
				t.Errorf("Rcode = %v, want NOERROR", dns.RcodeToString[m.Rcode])
			}
			if m.Id != q.Id {
				t.Errorf("reply Id = %d, want %d", m.Id, q.Id)
			}
			if len(m.Answer) != tt.answers {
				t.Fatalf("len(Answer) = %d, want %d", len(m.Answer), tt.answers)
			}
			if tt.answers == 0 {
				return
			}

			a, ok := m.Answer[0].(*dns.A)
			if !ok {
				t.Fatalf("Answer[0] = %T, want *dns.A", m.Answer[0])
			}
			if !a.A.Equal(net.ParseIP("192.168.4.1")) {
				t.Errorf("A = %v, want 192.168.4.1", a.A)
			}
			if a.Hdr.Ttl != DefaultTTL {
				t.Errorf("TTL = %d, want %d", a.Hdr.Ttl, DefaultTTL)
			}
			if a.Hdr.Name != "connectivitycheck.gstatic.com." {
				t.Errorf("Name = %q", a.Hdr.Name)
			}
		})
	}
}

func TestServeOverUDP(t *testing.T) {
	s, err := New("127.0.0.1:0", net.ParseIP("10.0.0.1"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if err := s.Start(); err != nil {
		t.Errorf("second Start() error = %v", err)
	}

	c := &dns.Client{Net: "udp", Timeout: 2 * time.Second}
	q := new(dns.Msg)
	q.SetQuestion("example.com.", dns.TypeA)

	r, _, err := c.Exchange(q, s.LocalAddr())
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if len(r.Answer) != 1 {
		t.Fatalf("len(Answer) = %d, want 1", len(r.Answer))
	}
	if a := r.Answer[0].(*dns.A); !a.A.Equal(net.ParseIP("10.0.0.1")) {
		t.Errorf("A = %v, want 10.0.0.1", a.A)
	}

	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if s.LocalAddr() != "" {
		t.Error("LocalAddr() should be empty after Stop")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
