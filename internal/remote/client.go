package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/supervisor"
)

const (
	// DefaultPort is the portal's HTTP port on a device
	DefaultPort = 80

	// DefaultTimeout is the default HTTP request timeout. Saves wait for
	// the device's next tick, so this is above the portal's own request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay caps the exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second
)

// NetworkList is the body of GET /networks
type NetworkList struct {
	Networks []string `json:"networks"`
	Capacity int      `json:"capacity"`
	Active   bool     `json:"active"`
}

// reply is the JSON body of /save and /delete
type reply struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client talks to a device's configuration portal over HTTP.
type Client struct {
	// BaseURL is the portal root (e.g., "http://192.168.4.1:80")
	BaseURL string

	HTTPClient *http.Client

	// MaxRetries is the maximum number of retries after the first attempt
	MaxRetries uint64

	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewClient creates a client for the portal at host:port
func NewClient(host string, port int) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return NewClientWithURL(fmt.Sprintf("http://%s:%d", host, port))
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries uint64, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryDelay
	b.MaxInterval = c.MaxRetryDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.MaxRetries), ctx)
}

// retry runs op until it succeeds or fails with an error shouldRetry rejects
func (c *Client) retry(ctx context.Context, what string, shouldRetry func(error) bool, op func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err != nil && !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}, c.backoff(ctx), func(err error, wait time.Duration) {
		logging.Debug("Retrying portal request",
			zap.String("request", what),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
}

// Networks lists the saved SSIDs on the device
func (c *Client) Networks(ctx context.Context) (*NetworkList, error) {
	var list NetworkList
	err := c.retry(ctx, "networks", IsRetryable, func() error {
		return c.getJSON(ctx, "/networks", &list)
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// Status fetches the supervisor snapshot the portal exposes
func (c *Client) Status(ctx context.Context) (*supervisor.Status, error) {
	var st supervisor.Status
	err := c.retry(ctx, "status", IsRetryable, func() error {
		return c.getJSON(ctx, "/status", &st)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Save submits a network. On success the device starts connecting to it
// and the portal usually closes shortly after.
func (c *Client) Save(ctx context.Context, ssid, secret string) (string, error) {
	return c.post(ctx, "/save", url.Values{"ssid": {ssid}, "password": {secret}})
}

// Delete removes a saved network from the device
func (c *Client) Delete(ctx context.Context, ssid string) (string, error) {
	return c.post(ctx, "/delete", url.Values{"ssid": {ssid}})
}

// post only repeats a form submission the device never received
func (c *Client) post(ctx context.Context, path string, form url.Values) (string, error) {
	var msg string
	err := c.retry(ctx, path, notDelivered, func() error {
		var err error
		msg, err = c.postOnce(ctx, path, form)
		return err
	})
	return msg, err
}

func (c *Client) postOnce(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", ClassifyNetworkError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", ClassifyNetworkError("POST "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body reply
	if err := decode(resp.Body, &body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", NewHTTPError(resp.StatusCode, "")
		}
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", NewHTTPError(resp.StatusCode, body.Error)
	}
	return body.Message, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return ClassifyNetworkError("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ClassifyNetworkError("GET "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return NewHTTPError(resp.StatusCode, "")
	}
	return decode(resp.Body, v)
}

func decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return ClassifyNetworkError("failed to read response body", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}
	return nil
}
