package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/wifiprov/internal/credentials"
	"github.com/muurk/wifiprov/internal/portal"
	"github.com/muurk/wifiprov/internal/portal/web"
	"github.com/muurk/wifiprov/internal/supervisor"
)

type backend struct {
	saveErr  error
	networks []string
	saved    string
}

func (b *backend) Save(ctx context.Context, ssid, secret string) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saved = ssid
	b.networks = append(b.networks, ssid)
	return nil
}

func (b *backend) Delete(ctx context.Context, ssid string) error {
	for i, n := range b.networks {
		if n == ssid {
			b.networks = append(b.networks[:i], b.networks[i+1:]...)
			return nil
		}
	}
	return credentials.NewNotFoundError(ssid)
}

func (b *backend) Networks() []string { return b.networks }
func (b *backend) Active() bool       { return true }
func (b *backend) Capacity() int      { return credentials.MaxNetworks }

func newPortal(t *testing.T, b *backend) *Client {
	t.Helper()
	status := func() any {
		return supervisor.Status{State: supervisor.PortalActive, RetryCount: 10}
	}
	srv := httptest.NewServer(web.NewServer("", web.WithStatus(status)).Handler(b))
	t.Cleanup(srv.Close)

	c := NewClientWithURL(srv.URL + "/")
	c.SetRetry(2, time.Millisecond)
	return c
}

func TestNewClient(t *testing.T) {
	c := NewClient("192.168.4.1", 0)
	if c.BaseURL != "http://192.168.4.1:80" {
		t.Errorf("BaseURL = %s, want http://192.168.4.1:80", c.BaseURL)
	}

	c.SetTimeout(3 * time.Second)
	if c.HTTPClient.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", c.HTTPClient.Timeout)
	}
}

func TestNetworksAndStatus(t *testing.T) {
	c := newPortal(t, &backend{networks: []string{"HomeNet", "Office"}})
	ctx := context.Background()

	list, err := c.Networks(ctx)
	if err != nil {
		t.Fatalf("Networks() error = %v", err)
	}
	if len(list.Networks) != 2 || list.Networks[0] != "HomeNet" {
		t.Errorf("Networks = %v", list.Networks)
	}
	if list.Capacity != credentials.MaxNetworks || !list.Active {
		t.Errorf("list = %+v", list)
	}

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.State != supervisor.PortalActive || st.RetryCount != 10 {
		t.Errorf("Status = %+v", st)
	}
}

func TestSaveAndDelete(t *testing.T) {
	b := &backend{}
	c := newPortal(t, b)
	ctx := context.Background()

	msg, err := c.Save(ctx, "HomeNet", "pass1234")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if b.saved != "HomeNet" || msg == "" {
		t.Errorf("saved = %q, msg = %q", b.saved, msg)
	}

	if _, err := c.Delete(ctx, "HomeNet"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = c.Delete(ctx, "HomeNet")
	if !IsRejected(err) {
		t.Fatalf("Delete() of missing network error = %v, want rejected", err)
	}
	if got := err.(*DeviceError).StatusCode; got != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", got)
	}
}

func TestSaveRejectedNotRetried(t *testing.T) {
	b := &backend{saveErr: credentials.NewCapacityError("Fifth", 4)}
	c := newPortal(t, b)

	_, err := c.Save(context.Background(), "Fifth", "pass1234")
	if !IsRejected(err) {
		t.Fatalf("Save() error = %v, want rejected", err)
	}
	if ShortMessage(err) == "" {
		t.Error("ShortMessage() should carry the device's reason")
	}
}

func TestBusyPortalRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"The device is busy, please try again."}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"Saved HomeNet."}`))
	}))
	defer srv.Close()

	c := NewClientWithURL(srv.URL)
	c.SetRetry(2, time.Millisecond)

	msg, err := c.Save(context.Background(), "HomeNet", "pass1234")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if msg != "Saved HomeNet." || calls.Load() != 2 {
		t.Errorf("msg = %q after %d calls", msg, calls.Load())
	}
}

func TestServerErrorNotRepeatedForPost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClientWithURL(srv.URL)
	c.SetRetry(3, time.Millisecond)

	if _, err := c.Save(context.Background(), "HomeNet", "pass1234"); err == nil {
		t.Fatal("Save() error = nil")
	}
	if calls.Load() != 1 {
		t.Errorf("POST sent %d times, want 1", calls.Load())
	}

	if _, err := c.Networks(context.Background()); err == nil {
		t.Fatal("Networks() error = nil")
	}
	if calls.Load() != 1+4 {
		t.Errorf("calls = %d, want GET retried 3 times", calls.Load())
	}
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewClientWithURL(addr)
	c.SetRetry(1, time.Millisecond)

	_, err := c.Networks(context.Background())
	if err == nil {
		t.Fatal("Networks() error = nil")
	}
	if !IsRetryable(err) {
		t.Errorf("connection errors should be retryable: %v", err)
	}
	if len(Troubleshooting(err)) == 0 {
		t.Error("Troubleshooting() should have hints for transport errors")
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := NewClientWithURL(srv.URL)
	_, err := c.Networks(context.Background())

	var devErr *DeviceError
	if de, ok := err.(*DeviceError); ok {
		devErr = de
	}
	if devErr == nil || devErr.Type != ErrTypeParse {
		t.Fatalf("Networks() error = %v, want parse error", err)
	}
}

func TestNewHTTPError(t *testing.T) {
	tests := []struct {
		code      int
		wantType  ErrorType
		retryable bool
	}{
		{http.StatusBadRequest, ErrTypeRejected, false},
		{http.StatusConflict, ErrTypeRejected, false},
		{http.StatusNotFound, ErrTypeRejected, false},
		{http.StatusServiceUnavailable, ErrTypeHTTP, true},
		{http.StatusGatewayTimeout, ErrTypeHTTP, true},
		{http.StatusTeapot, ErrTypeHTTP, false},
	}
	for _, tt := range tests {
		err := NewHTTPError(tt.code, "")
		if err.Type != tt.wantType || err.Retryable != tt.retryable {
			t.Errorf("NewHTTPError(%d) = %v retryable=%v", tt.code, err.Type, err.Retryable)
		}
		if err.Message == "" {
			t.Errorf("NewHTTPError(%d) should default the message", tt.code)
		}
	}
}

var _ portal.Backend = (*backend)(nil)
