// Package unifi implements the credential-aware HTTP core for talking to a
// UniFi console. Every outbound call passes rate-limit admission, is
// authenticated by the dual-mode broker (API key first, legacy cookie
// session on rejection), and has its error path sanitized before it is
// surfaced.
package unifi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ry-ops/unifi-mcp-server/internal/audit"
	"github.com/ry-ops/unifi-mcp-server/internal/metrics"
	"github.com/ry-ops/unifi-mcp-server/internal/ratelimit"
	"github.com/ry-ops/unifi-mcp-server/internal/sanitize"
	"github.com/ry-ops/unifi-mcp-server/pkg/tlsutil"
)

// Mode selects how a request is authenticated.
type Mode string

const (
	// ModeStateless sends the API key header and never falls back.
	ModeStateless Mode = "stateless"
	// ModeStateful uses the legacy cookie session exclusively.
	ModeStateful Mode = "stateful"
	// ModeDual tries the API key first and falls back to the cookie session
	// on 401/403 or a transport failure.
	ModeDual Mode = "dual"
)

const apiKeyHeader = "X-API-Key"

// ClientConfig holds the immutable credential set for a console.
type ClientConfig struct {
	Host           string
	Port           int
	APIKey         string
	Username       string
	Password       string
	VerifyTLS      bool
	Fingerprint    string
	Timeout        time.Duration
	SessionTimeout time.Duration
}

// Client is the auth broker. Construct one at process start and inject it
// into every handler; it owns the only session and shares one limiter.
type Client struct {
	cfg        ClientConfig
	baseURL    string
	httpClient *http.Client
	session    *SessionManager
	limiter    *ratelimit.Limiter
	audit      audit.Sink
}

// NewClient builds the broker and its session manager. The limiter and audit
// sink are shared collaborators owned by the caller.
func NewClient(cfg ClientConfig, limiter *ratelimit.Limiter, sink audit.Sink) (*Client, error) {
	if cfg.Host == "" {
		return nil, &ConfigurationError{Message: "UNIFI_GATEWAY_HOST not configured"}
	}
	if cfg.Port <= 0 {
		cfg.Port = 443
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = time.Hour
	}
	if sink == nil {
		sink = audit.Nop{}
	}

	baseURL := fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port)

	sessionClient, err := tlsutil.NewSessionHTTPClient(cfg.VerifyTLS, cfg.Fingerprint, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: tlsutil.NewHTTPClient(cfg.VerifyTLS, cfg.Fingerprint, cfg.Timeout),
		limiter:    limiter,
		audit:      sink,
	}
	c.session = NewSessionManager(sessionClient, c.LoginURL(), cfg.Username, cfg.Password, cfg.SessionTimeout)
	return c, nil
}

// Session exposes the session manager for diagnostics and invalidation.
func (c *Client) Session() *SessionManager { return c.session }

// RateLimiter exposes the limiter for stats queries.
func (c *Client) RateLimiter() *ratelimit.Limiter { return c.limiter }

// HasAPIKey reports whether a stateless credential is configured.
func (c *Client) HasAPIKey() bool { return c.cfg.APIKey != "" }

// HasLegacyCredentials reports whether the cookie-session credential pair is
// configured.
func (c *Client) HasLegacyCredentials() bool { return c.cfg.Username != "" && c.cfg.Password != "" }

// Surface URL builders. Paths mirror the console's reverse proxy layout.

// IntegrationURL addresses the Network Integration API.
func (c *Client) IntegrationURL(path string) string {
	return c.baseURL + "/proxy/network/integrations/v1" + path
}

// LegacyURL addresses the legacy Network API (cookie auth only).
func (c *Client) LegacyURL(path string) string {
	return c.baseURL + "/proxy/network/api" + path
}

// AccessURL addresses the Access (door control) API.
func (c *Client) AccessURL(path string) string {
	return c.baseURL + "/proxy/access/api/v1" + path
}

// ProtectURL addresses the Protect (camera) API.
func (c *Client) ProtectURL(path string) string {
	return c.baseURL + "/proxy/protect/api" + path
}

// LoginURL addresses the console's session login endpoint.
func (c *Client) LoginURL() string {
	return c.baseURL + "/api/auth/login"
}

// Get issues a GET in the given auth mode and returns the parsed body.
func (c *Client) Get(ctx context.Context, rawURL string, mode Mode, params url.Values) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, rawURL, mode, params, nil)
}

// Post issues a POST in the given auth mode and returns the parsed body.
func (c *Client) Post(ctx context.Context, rawURL string, mode Mode, body interface{}) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPost, rawURL, mode, nil, body)
}

// Put issues a PUT in the given auth mode and returns the parsed body.
func (c *Client) Put(ctx context.Context, rawURL string, mode Mode, body interface{}) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPut, rawURL, mode, nil, body)
}

// Patch issues a PATCH in the given auth mode and returns the parsed body.
func (c *Client) Patch(ctx context.Context, rawURL string, mode Mode, body interface{}) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPatch, rawURL, mode, nil, body)
}

// request is the single choke point: admission, then authentication per
// mode, then sanitized error propagation. Admission always precedes auth so
// a denied call never burns a session refresh.
func (c *Client) request(ctx context.Context, method, rawURL string, mode Mode, params url.Values, body interface{}) (json.RawMessage, error) {
	endpoint := endpointKey(rawURL)

	if allowed, reason := c.limiter.Admit(endpoint); !allowed {
		metrics.RequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		metrics.RateLimitDenialsTotal.WithLabelValues(endpoint, windowFromReason(reason)).Inc()
		c.audit.Emit("http.request", false, map[string]interface{}{
			"method":   method,
			"endpoint": endpoint,
			"mode":     string(mode),
		}, errors.New(reason))
		return nil, &RateLimitError{Endpoint: endpoint, Message: reason}
	}

	result, err := c.dispatch(ctx, method, rawURL, mode, params, body)

	detail := map[string]interface{}{
		"method":   method,
		"endpoint": endpoint,
		"mode":     string(mode),
	}
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			detail["status"] = httpErr.Status
			metrics.RequestsTotal.WithLabelValues(endpoint, "http_error").Inc()
		} else {
			metrics.RequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		}
		c.audit.Emit("http.request", false, detail, err)
		return nil, err
	}

	metrics.RequestsTotal.WithLabelValues(endpoint, "success").Inc()
	c.audit.Emit("http.request", true, detail, nil)
	return result, nil
}

func (c *Client) dispatch(ctx context.Context, method, rawURL string, mode Mode, params url.Values, body interface{}) (json.RawMessage, error) {
	switch mode {
	case ModeStateless:
		headers, err := c.statelessHeaders()
		if err != nil {
			return nil, err
		}
		return c.attempt(ctx, c.httpClient, method, rawURL, headers, params, body)

	case ModeStateful:
		if err := c.ensureSession(ctx); err != nil {
			return nil, err
		}
		c.session.MarkUsed()
		return c.attempt(ctx, c.session.HTTPClient(), method, rawURL, nil, params, body)

	case ModeDual:
		return c.dualRequest(ctx, method, rawURL, params, body)

	default:
		return nil, &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown auth mode %q", mode)}
	}
}

// dualRequest tries the API key first. A non-auth HTTP error is definitive
// and propagates immediately; a 404 or 500 must not be masked as an auth
// failure. A 401/403 or a transport error triggers exactly one fallback to
// the cookie session, whose outcome is final.
func (c *Client) dualRequest(ctx context.Context, method, rawURL string, params url.Values, body interface{}) (json.RawMessage, error) {
	if c.HasAPIKey() {
		headers, err := c.statelessHeaders()
		if err == nil {
			result, attemptErr := c.attempt(ctx, c.httpClient, method, rawURL, headers, params, body)
			if attemptErr == nil {
				return result, nil
			}
			var httpErr *HTTPError
			if errors.As(attemptErr, &httpErr) && !httpErr.IsAuthStatus() {
				return nil, attemptErr
			}
			log.Debug().
				Str("method", method).
				Str("endpoint", endpointKey(rawURL)).
				Msg("stateless attempt rejected, falling back to legacy session")
		}
	}

	metrics.AuthFallbacksTotal.Inc()
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	c.session.MarkUsed()
	return c.attempt(ctx, c.session.HTTPClient(), method, rawURL, nil, params, body)
}

// ensureSession performs the refresh-then-ensure ordering from the session
// contract: proactive refresh near the threshold, hard login if the session
// slipped past expiry entirely.
func (c *Client) ensureSession(ctx context.Context) error {
	if err := c.session.RefreshIfNeeded(ctx); err != nil {
		metrics.SessionLoginsTotal.WithLabelValues("refresh_failed").Inc()
		return err
	}
	if !c.session.IsValid() {
		if err := c.session.Login(ctx, false); err != nil {
			metrics.SessionLoginsTotal.WithLabelValues("failed").Inc()
			return err
		}
		metrics.SessionLoginsTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

func (c *Client) statelessHeaders() (map[string]string, error) {
	if c.cfg.APIKey == "" {
		return nil, &ConfigurationError{Message: "UNIFI_API_KEY not configured"}
	}
	return map[string]string{
		apiKeyHeader:   c.cfg.APIKey,
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}, nil
}

// attempt issues one HTTP exchange. Non-2xx responses become *HTTPError with
// a sanitized, truncated body; an empty success body decodes as {}.
func (c *Client) attempt(ctx context.Context, client *http.Client, method, rawURL string, headers map[string]string, params url.Values, body interface{}) (json.RawMessage, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpointKey(rawURL), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    endpointKey(rawURL),
			Message: sanitize.ErrorText(strings.TrimSpace(string(raw))),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(raw), nil
}

// endpointKey derives the rate-limit key: the URL path with host, port, and
// query stripped.
func endpointKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return rawURL
	}
	return u.Path
}

func windowFromReason(reason string) string {
	if strings.Contains(reason, "calls/hour") {
		return "hour"
	}
	return "minute"
}
