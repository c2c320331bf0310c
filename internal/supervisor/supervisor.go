package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/credentials"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/radio"
)

// Portal is the configuration portal as seen by the supervisor.
// Poll runs on the supervisor's tick and may call back into RequestAttempt
// or CredentialRemoved.
type Portal interface {
	Start() error
	Stop() error
	Poll()
}

// CredentialSource is the read side of the credential store
type CredentialSource interface {
	Load(ctx context.Context) credentials.Set
	List() credentials.Set
}

// Notifier observes state changes. Panics are recovered and logged.
type Notifier interface {
	OnStateChange(from, to State)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(from, to State)

// OnStateChange calls f(from, to)
func (f NotifierFunc) OnStateChange(from, to State) {
	f(from, to)
}

type noopPortal struct{}

func (noopPortal) Start() error { return nil }
func (noopPortal) Stop() error  { return nil }
func (noopPortal) Poll()        {}

// Supervisor owns the connectivity state machine.
//
// All transitions happen inside Setup and Tick, which must be called from a
// single goroutine. Snapshot and the accessors may be called from anywhere.
type Supervisor struct {
	station  radio.Station
	store    CredentialSource
	portal   Portal
	notifier Notifier
	clock    clock.Clock
	backoff  *backoff.ExponentialBackOff

	attemptTimeout    time.Duration
	configTimeout     time.Duration
	statusInterval    time.Duration
	reconnectAttempts int

	mu      sync.RWMutex
	state   State
	since   time.Time
	retries int
	current string
	lastUp  string
	lastErr error
	session *PortalSession
	started bool

	// attempt bookkeeping, owned by the tick goroutine
	queue           credentials.Set
	index           int
	attempting      string
	attemptDeadline time.Time
	nextCheck       time.Time
	nextReconnect   time.Time
	events          []Transition
	portalOps       []portalOp

	reqMu     sync.Mutex
	preferred *string
	removed   []string
}

// New creates a supervisor in the Idle state
func New(station radio.Station, store CredentialSource, portal Portal, opts ...Option) *Supervisor {
	s := &Supervisor{
		station:           station,
		store:             store,
		portal:            portal,
		clock:             clock.New(),
		attemptTimeout:    DefaultAttemptTimeout,
		configTimeout:     ConfigTimeout,
		statusInterval:    DefaultStatusInterval,
		reconnectAttempts: ReconnectAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.portal == nil {
		s.portal = noopPortal{}
	}
	if s.backoff == nil {
		s.backoff = defaultBackoff()
	}
	s.backoff.Clock = s.clock
	s.backoff.Reset()
	s.since = s.clock.Now()
	return s
}

// Setup loads the saved networks and starts the first connection attempt.
// With nothing saved the portal opens immediately. Calling Setup twice is a no-op.
func (s *Supervisor) Setup(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true

	saved := s.store.Load(ctx)
	logging.Info("Supervisor starting", zap.Strings("saved", saved.SSIDs()))
	s.beginAttempts(saved)
	s.unlockAndFlush()
}

// Tick advances the state machine by one step. It never blocks on the radio.
func (s *Supervisor) Tick() {
	s.portal.Poll()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}

	if s.applyRequests() {
		// a fresh attempt is polled on the next tick
		s.unlockAndFlush()
		return
	}

	switch s.state {
	case AttemptingSaved:
		s.tickAttempting()
	case Connected:
		s.tickConnected()
	case Recovering:
		s.tickRecovering()
	case PortalActive:
		s.tickPortal()
	}

	s.unlockAndFlush()
}

// unlockAndFlush releases s.mu, then runs the queued portal operations and
// delivers the queued transitions. Portal components may call Snapshot
// while they stop, so neither runs under the lock.
func (s *Supervisor) unlockAndFlush() {
	events := s.takeEvents()
	ops := s.portalOps
	s.portalOps = nil
	s.mu.Unlock()

	s.runPortalOps(ops)
	s.notify(events)
}

// Run calls Setup and then Tick every interval until ctx is done.
// The portal is stopped on the way out.
func (s *Supervisor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	s.Setup(ctx)

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Shutdown closes an active portal and disconnects nothing else
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.state == PortalActive && s.session != nil {
		s.stopPortal()
	}
	s.unlockAndFlush()
}

// RequestAttempt asks for an attempt with ssid first. It is applied on the
// next tick and only while the portal is active.
func (s *Supervisor) RequestAttempt(ssid string) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	s.preferred = &ssid
}

// CredentialRemoved tells the supervisor ssid was deleted from the store.
// If it is the network in use the link is dropped on the next tick.
func (s *Supervisor) CredentialRemoved(ssid string) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	s.removed = append(s.removed, ssid)
}

// State returns the current state
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RetryCount returns the failed reconnect cycles since the last successful connection
func (s *Supervisor) RetryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retries
}

// CurrentSSID returns the network that is (or was last) up, or ""
func (s *Supervisor) CurrentSSID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == Connected || s.state == Recovering {
		return s.current
	}
	return ""
}

// Session returns a copy of the active portal session, or nil
func (s *Supervisor) Session() *PortalSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// Snapshot returns the full status in one consistent read
func (s *Supervisor) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:      s.state,
		Since:      s.since,
		Attempting: s.attempting,
		RetryCount: s.retries,
	}
	if s.state == Connected || s.state == Recovering {
		st.SSID = s.current
	}
	if s.session != nil {
		cp := *s.session
		st.Session = &cp
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Supervisor) takeRequests() (*string, []string) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	preferred, removed := s.preferred, s.removed
	s.preferred, s.removed = nil, nil
	return preferred, removed
}

// applyRequests reports whether a request restarted the attempt sequence
func (s *Supervisor) applyRequests() bool {
	preferred, removed := s.takeRequests()

	restarted := false
	for _, ssid := range removed {
		if s.handleRemoved(ssid) {
			restarted = true
		}
	}

	if preferred == nil {
		return restarted
	}
	if s.state != PortalActive {
		logging.Debug("Ignoring attempt request outside portal",
			zap.String("ssid", *preferred),
			zap.Stringer("state", s.state))
		return restarted
	}
	logging.LogPortalEvent("submission", zap.String("ssid", *preferred))
	s.beginAttempts(s.store.List().Prioritize(*preferred))
	return true
}

func (s *Supervisor) handleRemoved(ssid string) bool {
	if s.lastUp == ssid {
		s.lastUp = ""
	}

	switch s.state {
	case Connected, Recovering:
		if s.current != ssid && s.attempting != ssid {
			return false
		}
		logging.Info("Network in use was deleted", zap.String("ssid", ssid))
		_ = s.station.Disconnect()
		s.attempting = ""
		s.beginAttempts(s.store.List().Without(ssid))
		return true

	case AttemptingSaved:
		if s.index >= len(s.queue) {
			return false
		}
		rest := s.queue[s.index+1:].Without(ssid)
		if s.attempting == ssid {
			logging.Info("Network being attempted was deleted", zap.String("ssid", ssid))
			_ = s.station.Disconnect()
			s.attempting = ""
			s.queue = rest
			s.index = 0
			s.startNextAttempt()
			return true
		}
		s.queue = append(s.queue[:s.index+1].Clone(), rest...)
	}
	return false
}

// beginAttempts walks list in order. An empty list opens the portal.
func (s *Supervisor) beginAttempts(list credentials.Set) {
	s.transition(AttemptingSaved)
	s.queue = list.Clone()
	s.index = 0
	s.attempting = ""
	s.startNextAttempt()
}

func (s *Supervisor) startNextAttempt() {
	for s.index < len(s.queue) {
		if s.connect(s.queue[s.index]) {
			return
		}
		s.index++
	}
	logging.Info("No saved network reachable", zap.Int("tried", len(s.queue)))
	s.attempting = ""
	s.transition(PortalActive)
}

// connect issues one association request and reports whether it is in flight
func (s *Supervisor) connect(c credentials.NetworkCredential) bool {
	if err := s.station.Connect(c.SSID, c.Secret); err != nil {
		s.lastErr = radio.NewLinkError(radio.ReasonRadio, c.SSID, err)
		logging.LogConnectAttempt(c.SSID, "radio error", err)
		return false
	}
	s.attempting = c.SSID
	s.attemptDeadline = s.clock.Now().Add(s.attemptTimeout)
	logging.Debug("Connecting", zap.String("ssid", c.SSID), zap.Duration("timeout", s.attemptTimeout))
	return true
}

// pollAttempt checks the in-flight attempt. Both results are zero while it is
// still pending.
func (s *Supervisor) pollAttempt() (up bool, failed *radio.LinkError) {
	switch s.station.Status() {
	case radio.LinkUp:
		return true, nil
	case radio.LinkFailed:
		return false, radio.NewLinkError(radio.ReasonRejected, s.attempting, nil)
	}
	if !s.clock.Now().Before(s.attemptDeadline) {
		_ = s.station.Disconnect()
		return false, radio.NewLinkError(radio.ReasonTimeout, s.attempting, nil)
	}
	return false, nil
}

func (s *Supervisor) tickAttempting() {
	if s.attempting == "" {
		return
	}
	up, failed := s.pollAttempt()
	switch {
	case up:
		s.onConnected(s.attempting)
	case failed != nil:
		s.lastErr = failed
		logging.LogConnectAttempt(s.attempting, failed.Reason.String(), failed)
		s.attempting = ""
		s.index++
		s.startNextAttempt()
	}
}

func (s *Supervisor) onConnected(ssid string) {
	logging.LogConnectAttempt(ssid, "connected", nil)
	s.current = ssid
	s.lastUp = ssid
	s.attempting = ""
	s.retries = 0
	s.lastErr = nil
	s.backoff.Reset()
	s.nextCheck = s.clock.Now().Add(s.statusInterval)
	s.transition(Connected)
}

func (s *Supervisor) tickConnected() {
	now := s.clock.Now()
	if now.Before(s.nextCheck) {
		return
	}
	s.nextCheck = now.Add(s.statusInterval)

	if s.station.Status() == radio.LinkUp {
		return
	}
	s.lastErr = radio.NewLinkError(radio.ReasonLinkLost, s.current, nil)
	logging.Warn("Link lost", zap.String("ssid", s.current))
	s.nextReconnect = now
	s.transition(Recovering)
}

func (s *Supervisor) tickRecovering() {
	if s.attempting != "" {
		up, failed := s.pollAttempt()
		switch {
		case up:
			s.onConnected(s.attempting)
		case failed != nil:
			s.reconnectFailed(failed)
		}
		return
	}

	if s.station.Status() == radio.LinkUp {
		s.onConnected(s.current)
		return
	}

	if s.clock.Now().Before(s.nextReconnect) {
		return
	}

	order := s.store.List().Prioritize(s.lastUp)
	if len(order) == 0 {
		logging.Info("No saved networks left to reconnect to")
		s.transition(PortalActive)
		return
	}

	target := order[s.retries%len(order)]
	if !s.connect(target) {
		s.reconnectFailed(radio.NewLinkError(radio.ReasonRadio, target.SSID, nil))
	}
}

func (s *Supervisor) reconnectFailed(failed *radio.LinkError) {
	s.lastErr = failed
	s.retries++
	logging.LogConnectAttempt(failed.SSID, failed.Reason.String(), failed)
	s.attempting = ""

	if s.retries >= s.reconnectAttempts {
		logging.Warn("Reconnect attempts exhausted",
			zap.Int("retries", s.retries),
			zap.Int("limit", s.reconnectAttempts))
		s.transition(PortalActive)
		return
	}

	wait := s.backoff.NextBackOff()
	if wait == backoff.Stop {
		wait = s.backoff.MaxInterval
	}
	s.nextReconnect = s.clock.Now().Add(wait)
	logging.Debug("Next reconnect scheduled", zap.Duration("in", wait), zap.Int("retries", s.retries))
}

func (s *Supervisor) tickPortal() {
	if s.session == nil {
		return
	}
	if s.clock.Now().Sub(s.session.StartedAt) < s.configTimeout {
		return
	}
	logging.LogPortalEvent("timeout", zap.String("session", s.session.ID))
	s.beginAttempts(s.store.List())
}

func (s *Supervisor) transition(to State) {
	from := s.state
	if from == to {
		return
	}
	if from == PortalActive {
		s.stopPortal()
	}

	s.state = to
	s.since = s.clock.Now()

	ssid := s.current
	if to == AttemptingSaved || to == PortalActive {
		ssid = ""
	}
	logging.LogStateChange(from.String(), to.String(), ssid, s.retries)
	s.events = append(s.events, Transition{From: from, To: to})

	if to == PortalActive {
		s.startPortal()
	}
}

// portalOp is a Portal.Start (with its session) or Portal.Stop queued under
// the lock and run in order once it is released
type portalOp struct {
	start   bool
	session string
}

func (s *Supervisor) startPortal() {
	s.session = &PortalSession{
		ID:        uuid.NewString(),
		StartedAt: s.clock.Now(),
		Active:    true,
	}
	s.portalOps = append(s.portalOps, portalOp{start: true, session: s.session.ID})
}

func (s *Supervisor) stopPortal() {
	s.portalOps = append(s.portalOps, portalOp{})
	if s.session != nil {
		s.session.Active = false
		logging.LogPortalEvent("stopped", zap.String("session", s.session.ID))
	}
	s.session = nil
}

func (s *Supervisor) runPortalOps(ops []portalOp) {
	for _, op := range ops {
		if !op.start {
			if err := s.portal.Stop(); err != nil {
				logging.Warn("Portal stop reported errors", zap.Error(err))
			}
			continue
		}

		if err := s.portal.Start(); err != nil {
			logging.Error("Portal failed to start", zap.Error(err), zap.String("session", op.session))
			s.mu.Lock()
			if s.session != nil && s.session.ID == op.session {
				s.lastErr = err
			}
			s.mu.Unlock()
			continue
		}
		logging.LogPortalEvent("started", zap.String("session", op.session))
	}
}

func (s *Supervisor) takeEvents() []Transition {
	events := s.events
	s.events = nil
	return events
}

func (s *Supervisor) notify(events []Transition) {
	if s.notifier == nil {
		return
	}
	for _, e := range events {
		s.deliver(e)
	}
}

func (s *Supervisor) deliver(e Transition) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("State notifier panicked",
				zap.Any("panic", r),
				zap.Stringer("from", e.From),
				zap.Stringer("to", e.To))
		}
	}()
	s.notifier.OnStateChange(e.From, e.To)
}
