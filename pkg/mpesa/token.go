package mpesa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
)

// tokens are refreshed this long before the provider says they expire
const tokenExpiryMargin = 60 * time.Second

const defaultTokenLifetime = 3599 * time.Second

type cachedToken struct {
	value     string
	expiresAt time.Time
}

func (t cachedToken) validAt(now time.Time) bool {
	return t.value != "" && now.Before(t.expiresAt)
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// AccessToken returns a bearer token, reusing the cached one until shortly
// before it expires.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token.validAt(c.now()) {
		token := c.token.value
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	token, lifetime, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	if lifetime > tokenExpiryMargin {
		c.mu.Lock()
		c.token = cachedToken{value: token, expiresAt: c.now().Add(lifetime - tokenExpiryMargin)}
		c.mu.Unlock()
	}
	return token, nil
}

// InvalidateToken drops the cached token so the next call fetches a new one.
func (c *Client) InvalidateToken() {
	c.mu.Lock()
	c.token = cachedToken{}
	c.mu.Unlock()
}

func (c *Client) fetchToken(ctx context.Context) (token string, lifetime time.Duration, err error) {
	start := time.Now()
	defer func() { c.observe("oauth", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "build token request")
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "execute token request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "read token response")
	}

	if !isSuccess(resp.StatusCode) {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, statusError(resp.StatusCode, raw), "failed to get access token").
			WithDetails(upstreamDetails(resp.StatusCode, raw))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "decode token response").
			WithDetails(upstreamDetails(resp.StatusCode, raw))
	}
	if strings.TrimSpace(parsed.AccessToken) == "" {
		return "", 0, pkgerrors.New(pkgerrors.CodeUpstreamAuth, "token response missing access_token").
			WithDetails(upstreamDetails(resp.StatusCode, raw))
	}

	return parsed.AccessToken, parseLifetime(parsed.ExpiresIn), nil
}

func parseLifetime(value json.Number) time.Duration {
	if value == "" {
		return defaultTokenLifetime
	}
	seconds, err := value.Int64()
	if err != nil || seconds <= 0 {
		return defaultTokenLifetime
	}
	return time.Duration(seconds) * time.Second
}
