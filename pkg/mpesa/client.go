// Package mpesa talks to the Safaricom Daraja API: OAuth client credentials,
// Lipa Na M-Pesa Online (STK push) and the STK push status query.
package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kariuki00743/safipay/pkg/config"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	responseBodyReadLimit int64 = 4096
	defaultTimeout              = 20 * time.Second
)

var (
	errCredentialsRequired = errors.New("mpesa consumer key and secret are required")
	errMerchantRequired    = errors.New("mpesa shortcode, passkey and callback url are required")
)

// Observer receives the latency of every provider call.
type Observer interface {
	ObserveGatewayCall(operation, outcome string, duration time.Duration)
}

// Client is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	observer       Observer
	now            func() time.Time

	mu    sync.Mutex
	token cachedToken
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Daraja base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithObserver reports call latency to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithClock overrides time.Now; used for password timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the Daraja client from configuration.
func NewClient(cfg config.MPesaConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ConsumerKey) == "" || strings.TrimSpace(cfg.ConsumerSecret) == "" {
		return nil, errCredentialsRequired
	}
	if strings.TrimSpace(cfg.Shortcode) == "" || strings.TrimSpace(cfg.Passkey) == "" || strings.TrimSpace(cfg.CallbackURL) == "" {
		return nil, errMerchantRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        cfg.ResolvedBaseURL(),
		consumerKey:    strings.TrimSpace(cfg.ConsumerKey),
		consumerSecret: strings.TrimSpace(cfg.ConsumerSecret),
		shortcode:      strings.TrimSpace(cfg.Shortcode),
		passkey:        strings.TrimSpace(cfg.Passkey),
		callbackURL:    strings.TrimSpace(cfg.CallbackURL),
		now:            time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Shortcode returns the paybill/till number pushes are credited to.
func (c *Client) Shortcode() string {
	return c.shortcode
}

func (c *Client) observe(operation string, start time.Time, err error) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.observer.ObserveGatewayCall(operation, outcome, time.Since(start))
}

// postJSON sends payload with the bearer token and returns status and body.
func (c *Client) postJSON(ctx context.Context, path, token string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// providerPayload returns the decoded provider body when it is JSON, the raw
// text otherwise.
func providerPayload(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(trimmed, &decoded); err == nil {
		return decoded
	}
	return string(trimmed)
}

func upstreamDetails(status int, raw []byte) map[string]any {
	details := map[string]any{"status": status}
	if payload := providerPayload(raw); payload != nil {
		details["provider"] = payload
	}
	return details
}

func statusError(status int, raw []byte) error {
	return fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(raw)))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
