// Package captive implements the DNS half of a captive portal: every
// A query is answered with the portal's own address.
package captive

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

const (
	// DefaultTTL is the TTL on redirected answers
	DefaultTTL = 60

	// DefaultAddress is the soft-AP gateway address
	DefaultAddress = "192.168.4.1"

	startTimeout = 2 * time.Second
)

// Server answers DNS queries with a single fixed IPv4 address
type Server struct {
	Addr string
	IP   net.IP
	TTL  uint32

	mu  sync.Mutex
	srv *dns.Server
	pc  net.PacketConn
}

// New creates a redirecting DNS server listening on addr (":53" on a device)
func New(addr string, ip net.IP) (*Server, error) {
	v4 := ip.To4()
	if v4 == nil {
		return nil, fmt.Errorf("captive DNS needs an IPv4 address, got %v", ip)
	}
	return &Server{Addr: addr, IP: v4, TTL: DefaultTTL}, nil
}

// Answer builds the reply for r. A/IN questions get the portal address;
// everything else gets an empty NOERROR reply.
func (s *Server) Answer(r *dns.Msg) *dns.Msg {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	for _, q := range r.Question {
		if q.Qtype != dns.TypeA || q.Qclass != dns.ClassINET {
			continue
		}
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{
				Name:   q.Name,
				Rrtype: dns.TypeA,
				Class:  dns.ClassINET,
				Ttl:    s.TTL,
			},
			A: s.IP,
		})
	}
	return m
}

// ServeDNS implements dns.Handler
func (s *Server) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	m := s.Answer(r)
	for _, q := range r.Question {
		answer := ""
		if q.Qtype == dns.TypeA {
			answer = s.IP.String()
		}
		logging.LogDNSQuery(w.RemoteAddr().String(), q.Name, dns.TypeToString[q.Qtype], answer)
	}
	if err := w.WriteMsg(m); err != nil {
		logging.Debug("DNS reply failed", zap.Error(err))
	}
}

// Start binds the UDP socket and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	pc, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for DNS on %s: %w", s.Addr, err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           s,
		NotifyStartedFunc: func() { close(started) },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ActivateAndServe()
	}()

	select {
	case <-started:
	case err := <-errc:
		pc.Close()
		return fmt.Errorf("captive DNS stopped during start: %w", err)
	case <-time.After(startTimeout):
		pc.Close()
		return errors.New("captive DNS did not start in time")
	}

	s.srv = srv
	s.pc = pc
	logging.Info("Captive DNS listening", zap.String("addr", pc.LocalAddr().String()), zap.Stringer("answer", s.IP))
	return nil
}

// Stop shuts the server down. Stopping a stopped server is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown()
	s.srv = nil
	s.pc = nil
	return err
}

// LocalAddr returns the bound address, or "" when stopped
func (s *Server) LocalAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pc == nil {
		return ""
	}
	return s.pc.LocalAddr().String()
}
