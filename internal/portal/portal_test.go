package portal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/muurk/wifiprov/internal/credentials"
	"github.com/muurk/wifiprov/internal/radio"
)

type recordingRequester struct {
	mu       sync.Mutex
	attempts []string
	removed  []string
}

func (r *recordingRequester) RequestAttempt(ssid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, ssid)
}

func (r *recordingRequester) CredentialRemoved(ssid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, ssid)
}

type stubComponent struct {
	startErr error
	stopErr  error
	starts   int
	stops    int
}

func (c *stubComponent) Start() error {
	c.starts++
	return c.startErr
}

func (c *stubComponent) Stop() error {
	c.stops++
	return c.stopErr
}

type stubForm struct {
	stubComponent
	backend Backend
}

func (f *stubForm) Start(b Backend) error {
	f.backend = b
	return f.stubComponent.Start()
}

type brokenStore struct {
	credentials.Set
}

func (brokenStore) Save(ctx context.Context, ssid, secret string) error {
	return credentials.NewStorageError("disk full", nil)
}

func (brokenStore) Delete(ctx context.Context, ssid string) error {
	return credentials.NewStorageError("disk full", nil)
}

func (s brokenStore) List() credentials.Set {
	return s.Set
}

func (brokenStore) Capacity() int {
	return credentials.MaxNetworks
}

func newTestPortal(t *testing.T, opts ...Option) (*Portal, *radio.Sim, *credentials.Store, *recordingRequester) {
	t.Helper()
	sim := radio.NewSim(0)
	store := credentials.OpenMemory()
	req := &recordingRequester{}
	p := New(sim, store, append([]Option{WithRequester(req)}, opts...)...)
	return p, sim, store, req
}

// pump answers queued requests until done is closed
func pump(p *Portal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
			p.Poll()
			time.Sleep(time.Millisecond)
		}
	}
}

func TestStartStopAccessPoint(t *testing.T) {
	dns := &stubComponent{}
	adv := &stubComponent{}
	form := &stubForm{}
	p, sim, _, _ := newTestPortal(t,
		WithAPCredentials("device-setup", "letmein123"),
		WithCaptiveDNS(dns),
		WithAdvertiser(adv),
		WithFormServer(form),
	)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if active, ssid := sim.AccessPointActive(); !active || ssid != "device-setup" {
		t.Errorf("AccessPointActive() = %v, %q, want true, device-setup", active, ssid)
	}
	if !p.Active() {
		t.Error("Active() = false after Start")
	}
	if dns.starts != 1 || adv.starts != 1 || form.starts != 1 {
		t.Errorf("component starts = dns %d, adv %d, form %d, want 1 each", dns.starts, adv.starts, form.starts)
	}
	if form.backend != p {
		t.Error("form server should be bound to the portal")
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if active, _ := sim.AccessPointActive(); active {
		t.Error("access point still on after Stop")
	}
	if dns.stops != 1 || adv.stops != 1 || form.stops != 1 {
		t.Errorf("component stops = dns %d, adv %d, form %d, want 1 each", dns.stops, adv.stops, form.stops)
	}
}

func TestStartToleratesOptionalComponentFailure(t *testing.T) {
	dns := &stubComponent{startErr: errors.New("port 53 in use")}
	p, _, _, _ := newTestPortal(t, WithCaptiveDNS(dns))

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}
	if !p.Active() {
		t.Error("portal should be active without captive DNS")
	}
}

func TestStartFormFailureStopsAccessPoint(t *testing.T) {
	form := &stubForm{stubComponent: stubComponent{startErr: errors.New("bind: address in use")}}
	p, sim, _, _ := newTestPortal(t, WithFormServer(form))

	if err := p.Start(); err == nil {
		t.Fatal("Start() error = nil, want form server error")
	}
	if p.Active() {
		t.Error("portal should not be active")
	}
	if active, _ := sim.AccessPointActive(); active {
		t.Error("access point should be stopped after a failed start")
	}
}

func TestStopCombinesErrors(t *testing.T) {
	dns := &stubComponent{stopErr: errors.New("dns stop")}
	adv := &stubComponent{stopErr: errors.New("mdns stop")}
	p, _, _, _ := newTestPortal(t, WithCaptiveDNS(dns), WithAdvertiser(adv))
	_ = p.Start()

	err := p.Stop()
	if err == nil {
		t.Fatal("Stop() error = nil, want combined error")
	}
	if got := err.Error(); got != "mdns stop; dns stop" {
		t.Errorf("Stop() error = %q", got)
	}
	if p.Active() {
		t.Error("portal should be inactive even when teardown fails")
	}
}

func TestOnSave(t *testing.T) {
	p, _, store, req := newTestPortal(t)

	if err := p.OnSave("HomeNet", "pass12345"); err != nil {
		t.Fatalf("OnSave() error = %v", err)
	}
	if !store.Contains("HomeNet") {
		t.Error("store should contain HomeNet")
	}
	if len(req.attempts) != 1 || req.attempts[0] != "HomeNet" {
		t.Errorf("attempts = %v, want [HomeNet]", req.attempts)
	}
}

func TestOnSaveFailureSkipsRequest(t *testing.T) {
	req := &recordingRequester{}
	p := New(radio.NewSim(0), brokenStore{}, WithRequester(req))

	err := p.OnSave("HomeNet", "pass12345")
	if !credentials.IsStorageError(err) {
		t.Fatalf("OnSave() error = %v, want storage error", err)
	}
	if len(req.attempts) != 0 {
		t.Errorf("attempts = %v, want none", req.attempts)
	}
}

func TestOnSaveValidates(t *testing.T) {
	p, _, store, req := newTestPortal(t)

	if err := p.OnSave("", "pass12345"); !credentials.IsValidationError(err) {
		t.Errorf("OnSave(empty ssid) error = %v, want validation error", err)
	}
	if err := p.OnSave("HomeNet", "abc"); !credentials.IsValidationError(err) {
		t.Errorf("OnSave(short secret) error = %v, want validation error", err)
	}
	if store.Len() != 0 || len(req.attempts) != 0 {
		t.Error("invalid submission must not reach the store or the supervisor")
	}
}

func TestOnSaveCapacity(t *testing.T) {
	p, _, _, req := newTestPortal(t)
	for _, ssid := range []string{"A", "B", "C", "D"} {
		if err := p.OnSave(ssid, "pass12345"); err != nil {
			t.Fatalf("OnSave(%s) error = %v", ssid, err)
		}
	}

	err := p.OnSave("E", "pass12345")
	if !credentials.IsCapacityExceeded(err) {
		t.Errorf("OnSave(E) error = %v, want capacity error", err)
	}
	if len(req.attempts) != 4 {
		t.Errorf("attempts = %v, want 4", req.attempts)
	}
}

func TestCapacityFollowsStore(t *testing.T) {
	store := credentials.OpenMemory(credentials.WithCapacity(2))
	p := New(radio.NewSim(0), store, WithRequester(&recordingRequester{}))
	if got := p.Capacity(); got != 2 {
		t.Errorf("Capacity() = %d, want 2", got)
	}
}

func TestOnDelete(t *testing.T) {
	p, _, store, req := newTestPortal(t)
	_ = store.Save(context.Background(), "HomeNet", "pass12345")

	if err := p.OnDelete("HomeNet"); err != nil {
		t.Fatalf("OnDelete() error = %v", err)
	}
	if store.Contains("HomeNet") {
		t.Error("HomeNet should be gone")
	}
	if len(req.removed) != 1 || req.removed[0] != "HomeNet" {
		t.Errorf("removed = %v, want [HomeNet]", req.removed)
	}

	if err := p.OnDelete("HomeNet"); !credentials.IsNotFound(err) {
		t.Errorf("second OnDelete() error = %v, want not found", err)
	}
	if len(req.removed) != 1 {
		t.Errorf("removed = %v, absent delete must not notify", req.removed)
	}
}

func TestSaveInactive(t *testing.T) {
	p, _, _, _ := newTestPortal(t)

	if err := p.Save(context.Background(), "HomeNet", "pass12345"); !errors.Is(err, ErrPortalInactive) {
		t.Errorf("Save() error = %v, want ErrPortalInactive", err)
	}
	if err := p.Delete(context.Background(), "HomeNet"); !errors.Is(err, ErrPortalInactive) {
		t.Errorf("Delete() error = %v, want ErrPortalInactive", err)
	}
}

func TestSaveValidatesBeforeQueueing(t *testing.T) {
	p, _, _, _ := newTestPortal(t)
	_ = p.Start()

	if err := p.Save(context.Background(), "HomeNet", ""); !credentials.IsValidationError(err) {
		t.Errorf("Save() error = %v, want validation error", err)
	}
}

func TestSaveAnsweredByPoll(t *testing.T) {
	p, _, store, req := newTestPortal(t)
	_ = p.Start()

	done := make(chan struct{})
	defer close(done)
	go pump(p, done)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.Save(ctx, "HomeNet", "pass12345"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !store.Contains("HomeNet") {
		t.Error("store should contain HomeNet")
	}
	if err := p.Delete(ctx, "Missing"); !credentials.IsNotFound(err) {
		t.Errorf("Delete(Missing) error = %v, want not found", err)
	}

	req.mu.Lock()
	defer req.mu.Unlock()
	if len(req.attempts) != 1 {
		t.Errorf("attempts = %v, want [HomeNet]", req.attempts)
	}
}

func TestSaveContextExpires(t *testing.T) {
	p, _, _, _ := newTestPortal(t)
	_ = p.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := p.Save(ctx, "HomeNet", "pass12345"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Save() error = %v, want deadline exceeded", err)
	}
}

func TestStopAnswersQueuedRequests(t *testing.T) {
	p, _, store, _ := newTestPortal(t)
	_ = p.Start()

	errc := make(chan error, 1)
	go func() {
		errc <- p.Save(context.Background(), "HomeNet", "pass12345")
	}()

	// wait for the request to be queued
	deadline := time.Now().Add(2 * time.Second)
	for len(p.mailbox) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	_ = p.Stop()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrPortalClosed) {
			t.Errorf("Save() error = %v, want ErrPortalClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Save() never returned after Stop")
	}
	if store.Contains("HomeNet") {
		t.Error("a request dropped by Stop must not be stored")
	}
}

func TestMailboxFull(t *testing.T) {
	p, _, _, _ := newTestPortal(t, WithMailboxSize(1))
	_ = p.Start()

	go func() { _ = p.Save(context.Background(), "First", "pass12345") }()
	deadline := time.Now().Add(2 * time.Second)
	for len(p.mailbox) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := p.Save(context.Background(), "Second", "pass12345"); !errors.Is(err, ErrPortalBusy) {
		t.Errorf("Save() error = %v, want ErrPortalBusy", err)
	}
	_ = p.Stop()
}

func TestNetworks(t *testing.T) {
	p, _, store, _ := newTestPortal(t)
	_ = store.Save(context.Background(), "HomeNet", "pass12345")
	_ = store.Save(context.Background(), "Office", "pw123456")

	got := p.Networks()
	if len(got) != 2 || got[0] != "HomeNet" || got[1] != "Office" {
		t.Errorf("Networks() = %v, want [HomeNet Office]", got)
	}
}
