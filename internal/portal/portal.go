package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/credentials"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/radio"
)

const (
	// DefaultAPSSID is the soft-AP identifier used when none is configured
	DefaultAPSSID = "wifiprov-setup"

	// DefaultAPPassword is the soft-AP secret used when none is configured
	DefaultAPPassword = "configureme"

	// DefaultMailboxSize bounds the requests waiting for the next tick
	DefaultMailboxSize = 8

	// DefaultStoreTimeout bounds one store call made from Poll
	DefaultStoreTimeout = 2 * time.Second
)

var (
	// ErrPortalInactive is returned to submissions that arrive while the portal is stopped
	ErrPortalInactive = errors.New("configuration portal is not active")

	// ErrPortalClosed answers requests still queued when the portal stops
	ErrPortalClosed = errors.New("configuration portal closed before the request was handled")

	// ErrPortalBusy is returned when the mailbox is full
	ErrPortalBusy = errors.New("configuration portal is busy, try again")
)

// Store is the credential store as used by the portal
type Store interface {
	Save(ctx context.Context, ssid, secret string) error
	Delete(ctx context.Context, ssid string) error
	List() credentials.Set
	Capacity() int
}

// Requester receives the portal's requests. The supervisor implements it.
type Requester interface {
	RequestAttempt(ssid string)
	CredentialRemoved(ssid string)
}

// Component is infrastructure that only runs while the portal is active
type Component interface {
	Start() error
	Stop() error
}

// Backend is what the form server calls into. *Portal implements it.
type Backend interface {
	Save(ctx context.Context, ssid, secret string) error
	Delete(ctx context.Context, ssid string) error
	Networks() []string
	Capacity() int
	Active() bool
}

// FormServer serves the configuration form against a Backend
type FormServer interface {
	Start(b Backend) error
	Stop() error
}

type requestKind int

const (
	requestSave requestKind = iota
	requestDelete
)

type request struct {
	kind   requestKind
	ssid   string
	secret string
	reply  chan error
}

// Portal is the configuration portal. Start, Stop and Poll run on the
// supervisor's tick; Save and Delete are safe to call from HTTP handlers.
type Portal struct {
	ap        radio.AccessPoint
	store     Store
	requester Requester

	apSSID       string
	apPassword   string
	dns          Component
	form         FormServer
	advertiser   Component
	storeTimeout time.Duration

	mu      sync.RWMutex
	active  bool
	mailbox chan request
}

// Option configures a Portal
type Option func(*Portal)

// WithAPCredentials sets the soft-AP identifier and secret
func WithAPCredentials(ssid, password string) Option {
	return func(p *Portal) {
		p.apSSID = ssid
		p.apPassword = password
	}
}

// WithCaptiveDNS sets the DNS redirector started with the portal
func WithCaptiveDNS(c Component) Option {
	return func(p *Portal) {
		p.dns = c
	}
}

// WithFormServer sets the HTTP form server
func WithFormServer(f FormServer) Option {
	return func(p *Portal) {
		p.form = f
	}
}

// WithAdvertiser sets the mDNS advertisement started with the portal
func WithAdvertiser(a Component) Option {
	return func(p *Portal) {
		p.advertiser = a
	}
}

// WithRequester sets the receiver of attempt and removal requests
func WithRequester(r Requester) Option {
	return func(p *Portal) {
		p.requester = r
	}
}

// WithMailboxSize sets how many requests may wait for the next tick
func WithMailboxSize(n int) Option {
	return func(p *Portal) {
		if n > 0 {
			p.mailbox = make(chan request, n)
		}
	}
}

// New creates an inactive portal
func New(ap radio.AccessPoint, store Store, opts ...Option) *Portal {
	p := &Portal{
		ap:           ap,
		store:        store,
		apSSID:       DefaultAPSSID,
		apPassword:   DefaultAPPassword,
		storeTimeout: DefaultStoreTimeout,
		mailbox:      make(chan request, DefaultMailboxSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Attach sets the requester after construction. The supervisor and the
// portal each need the other, so one side is wired late.
func (p *Portal) Attach(r Requester) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requester = r
}

// APSSID returns the soft-AP identifier
func (p *Portal) APSSID() string {
	return p.apSSID
}

// Start brings up the soft AP and the form server, then the optional DNS
// redirector and advertiser. Only an AP or form server failure is returned.
func (p *Portal) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return nil
	}

	if err := p.ap.StartAccessPoint(p.apSSID, p.apPassword); err != nil {
		return fmt.Errorf("failed to start access point %q: %w", p.apSSID, err)
	}

	if p.form != nil {
		if err := p.form.Start(p); err != nil {
			stopErr := p.ap.StopAccessPoint()
			return multierr.Append(fmt.Errorf("failed to start form server: %w", err), stopErr)
		}
	}

	if p.dns != nil {
		if err := p.dns.Start(); err != nil {
			logging.Warn("Captive DNS failed to start", zap.Error(err))
		}
	}
	if p.advertiser != nil {
		if err := p.advertiser.Start(); err != nil {
			logging.Warn("mDNS advertisement failed to start", zap.Error(err))
		}
	}

	p.active = true
	logging.LogPortalEvent("active", zap.String("ap_ssid", p.apSSID))
	return nil
}

// Stop reverses Start and answers every queued request with ErrPortalClosed
func (p *Portal) Stop() error {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return nil
	}
	p.active = false
	drained := p.drain()
	p.mu.Unlock()

	// handlers still in flight now see ErrPortalInactive, so the form
	// server can shut down without waiting on the tick
	var err error
	if p.advertiser != nil {
		err = multierr.Append(err, p.advertiser.Stop())
	}
	if p.dns != nil {
		err = multierr.Append(err, p.dns.Stop())
	}
	if p.form != nil {
		err = multierr.Append(err, p.form.Stop())
	}
	err = multierr.Append(err, p.ap.StopAccessPoint())

	logging.LogPortalEvent("inactive", zap.Int("dropped_requests", drained))
	return err
}

func (p *Portal) drain() int {
	n := 0
	for {
		select {
		case req := <-p.mailbox:
			req.reply <- ErrPortalClosed
			n++
		default:
			return n
		}
	}
}

// Active reports whether the portal is serving
func (p *Portal) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Networks returns the saved identifiers in priority order
func (p *Portal) Networks() []string {
	return p.store.List().SSIDs()
}

// Capacity is how many networks the store holds
func (p *Portal) Capacity() int {
	return p.store.Capacity()
}

// Save validates a submission and queues it for the next tick. It returns
// once the tick has stored it, or with ctx's error.
func (p *Portal) Save(ctx context.Context, ssid, secret string) error {
	if err := credentials.ValidateCredential(ssid, secret); err != nil {
		return err
	}
	return p.submit(ctx, request{kind: requestSave, ssid: ssid, secret: secret})
}

// Delete queues a removal for the next tick
func (p *Portal) Delete(ctx context.Context, ssid string) error {
	if ssid == "" {
		return credentials.NewValidationError("network name is required")
	}
	return p.submit(ctx, request{kind: requestDelete, ssid: ssid})
}

func (p *Portal) submit(ctx context.Context, req request) error {
	req.reply = make(chan error, 1)

	p.mu.RLock()
	if !p.active {
		p.mu.RUnlock()
		return ErrPortalInactive
	}
	select {
	case p.mailbox <- req:
	default:
		p.mu.RUnlock()
		return ErrPortalBusy
	}
	p.mu.RUnlock()

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll handles every queued request in arrival order. It runs on the
// supervisor's tick.
func (p *Portal) Poll() {
	for {
		select {
		case req := <-p.mailbox:
			p.handle(req)
		default:
			return
		}
	}
}

func (p *Portal) handle(req request) {
	var err error
	switch req.kind {
	case requestSave:
		err = p.OnSave(req.ssid, req.secret)
	case requestDelete:
		err = p.OnDelete(req.ssid)
	}
	req.reply <- err
}

// OnSave stores a submission and asks for an attempt with it first
func (p *Portal) OnSave(ssid, secret string) error {
	if err := credentials.ValidateCredential(ssid, secret); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.storeTimeout)
	defer cancel()

	if err := p.store.Save(ctx, ssid, secret); err != nil {
		logging.Warn("Submission rejected", zap.String("ssid", ssid), zap.Error(err))
		return err
	}
	logging.LogPortalEvent("saved", zap.String("ssid", ssid))

	if r := p.getRequester(); r != nil {
		r.RequestAttempt(ssid)
	}
	return nil
}

// OnDelete removes a saved network and tells the supervisor
func (p *Portal) OnDelete(ssid string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.storeTimeout)
	defer cancel()

	if err := p.store.Delete(ctx, ssid); err != nil {
		logging.Warn("Delete rejected", zap.String("ssid", ssid), zap.Error(err))
		return err
	}
	logging.LogPortalEvent("deleted", zap.String("ssid", ssid))

	if r := p.getRequester(); r != nil {
		r.CredentialRemoved(ssid)
	}
	return nil
}

func (p *Portal) getRequester() Requester {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.requester
}
