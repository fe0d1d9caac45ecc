package unifi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ry-ops/unifi-mcp-server/internal/audit"
	"github.com/ry-ops/unifi-mcp-server/internal/metrics"
	"github.com/ry-ops/unifi-mcp-server/internal/ratelimit"
	"github.com/ry-ops/unifi-mcp-server/internal/sanitize"
)

// DefaultSiteManagerBase is the public Site Manager cloud API.
const DefaultSiteManagerBase = "https://api.ui.com"

// SiteManagerClient talks to the UniFi Site Manager cloud API. Cloud calls
// are always stateless (API key only) and share the process-wide limiter so
// cloud and console traffic share one admission model.
type SiteManagerClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	audit      audit.Sink
}

// NewSiteManagerClient builds a cloud client. An empty base falls back to the
// public endpoint.
func NewSiteManagerClient(baseURL, token string, timeout time.Duration, limiter *ratelimit.Limiter, sink audit.Sink) *SiteManagerClient {
	if baseURL == "" {
		baseURL = DefaultSiteManagerBase
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &SiteManagerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		audit:      sink,
	}
}

// Configured reports whether a cloud token is present.
func (c *SiteManagerClient) Configured() bool { return c.token != "" }

// Hosts lists consoles attached to the cloud account.
func (c *SiteManagerClient) Hosts(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/v1/hosts", nil)
}

// Sites lists sites across all attached consoles.
func (c *SiteManagerClient) Sites(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/v1/sites", nil)
}

// Devices lists devices across all attached consoles.
func (c *SiteManagerClient) Devices(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/v1/devices", nil)
}

// ISPMetrics fetches ISP metrics at the given interval ("5m" or "1h").
func (c *SiteManagerClient) ISPMetrics(ctx context.Context, interval string) (json.RawMessage, error) {
	if interval != "5m" && interval != "1h" {
		return nil, &ValidationError{Field: "interval", Message: `must be "5m" or "1h"`}
	}
	return c.do(ctx, http.MethodGet, "/ea/isp-metrics/"+interval, nil)
}

// QueryISPMetrics runs a scoped ISP metrics query for specific sites.
func (c *SiteManagerClient) QueryISPMetrics(ctx context.Context, query interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/ea/isp-metrics/query", query)
}

func (c *SiteManagerClient) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	if c.token == "" {
		return nil, &ConfigurationError{Message: "UNIFI_SITEMGR_TOKEN not configured"}
	}

	if allowed, reason := c.limiter.Admit(path); !allowed {
		metrics.RequestsTotal.WithLabelValues(path, "rate_limited").Inc()
		metrics.RateLimitDenialsTotal.WithLabelValues(path, windowFromReason(reason)).Inc()
		return nil, &RateLimitError{Endpoint: path, Message: reason}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(path, "transport_error").Inc()
		c.audit.Emit("cloud.request", false, map[string]interface{}{"method": method, "endpoint": path}, err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: sanitize.ErrorText(strings.TrimSpace(string(raw))),
		}
		metrics.RequestsTotal.WithLabelValues(path, "http_error").Inc()
		c.audit.Emit("cloud.request", false, map[string]interface{}{"method": method, "endpoint": path, "status": resp.StatusCode}, httpErr)
		return nil, httpErr
	}

	metrics.RequestsTotal.WithLabelValues(path, "success").Inc()
	c.audit.Emit("cloud.request", true, map[string]interface{}{"method": method, "endpoint": path}, nil)

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(raw), nil
}
