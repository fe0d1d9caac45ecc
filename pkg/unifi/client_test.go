package unifi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ry-ops/unifi-mcp-server/internal/audit"
	"github.com/ry-ops/unifi-mcp-server/internal/ratelimit"
)

const sitesPath = "/proxy/network/integrations/v1/sites"

// testClient points a broker at an httptest TLS server. The server's
// self-signed certificate exercises the verify-disabled client path.
func testClient(t *testing.T, ts *httptest.Server, cfg ClientConfig, limiter *ratelimit.Limiter) *Client {
	t.Helper()

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg.Host = u.Hostname()
	cfg.Port = port
	cfg.VerifyTLS = false
	cfg.Timeout = 5 * time.Second

	if limiter == nil {
		limiter = ratelimit.New(1000, 10000)
	}
	client, err := NewClient(cfg, limiter, audit.Nop{})
	require.NoError(t, err)
	return client
}

// consoleHandler mimics a console that rejects API keys but honors the
// legacy cookie session.
func consoleHandler(calls *atomic.Int32, loginCalls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/api/auth/login":
			loginCalls.Add(1)
			http.SetCookie(w, &http.Cookie{Name: "TOKEN", Value: "cookie-1", Path: "/"})
			w.WriteHeader(http.StatusOK)
		case sitesPath:
			if r.Header.Get("X-API-Key") != "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if _, err := r.Cookie("TOKEN"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":[{"id":"site-1"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestDualModeFallsBackOnRejectedKey(t *testing.T) {
	var calls, loginCalls atomic.Int32
	ts := httptest.NewTLSServer(consoleHandler(&calls, &loginCalls))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{
		APIKey:   "rejected-key",
		Username: "admin",
		Password: "pass",
	}, nil)

	raw, err := c.Get(context.Background(), c.IntegrationURL("/sites"), ModeDual, nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "site-1")

	// Stateless attempt, login, stateful retry. Nothing more.
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(1), loginCalls.Load())
}

func TestDualModeReusesSessionOnSecondCall(t *testing.T) {
	var calls, loginCalls atomic.Int32
	ts := httptest.NewTLSServer(consoleHandler(&calls, &loginCalls))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{
		APIKey:   "rejected-key",
		Username: "admin",
		Password: "pass",
	}, nil)

	_, err := c.Get(context.Background(), c.IntegrationURL("/sites"), ModeDual, nil)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), c.IntegrationURL("/sites"), ModeDual, nil)
	require.NoError(t, err)

	// Second call still probes the key first but must not log in again.
	assert.Equal(t, int32(1), loginCalls.Load())
}

func TestDualModeStatelessSuccessIsSingleCall(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "good-key", r.Header.Get("X-API-Key"))
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{APIKey: "good-key"}, nil)

	_, err := c.Get(context.Background(), c.IntegrationURL("/sites"), ModeDual, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDualModeNonAuthStatusShortCircuits(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{
		APIKey:   "key",
		Username: "admin",
		Password: "pass",
	}, nil)

	_, err := c.Get(context.Background(), c.IntegrationURL("/nope"), ModeDual, nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)

	// A definitive upstream answer must not trigger the fallback.
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateLimitDeniesBeforeNetworkIO(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{}`)
	}))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{APIKey: "key"}, ratelimit.New(1, 100))

	_, err := c.Get(context.Background(), c.IntegrationURL("/sites"), ModeStateless, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), c.IntegrationURL("/sites"), ModeStateless, nil)
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, sitesPath, rateErr.Endpoint)
	assert.Contains(t, rateErr.Message, "calls/minute")

	// The denied call never reached the server.
	assert.Equal(t, int32(1), calls.Load())
}

func TestStatelessModeWithoutKey(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{Username: "admin", Password: "pass"}, nil)

	_, err := c.Get(context.Background(), c.IntegrationURL("/sites"), ModeStateless, nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "UNIFI_API_KEY")
}

func TestStatefulModeLogsInFirst(t *testing.T) {
	var calls, loginCalls atomic.Int32
	ts := httptest.NewTLSServer(consoleHandler(&calls, &loginCalls))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{Username: "admin", Password: "pass"}, nil)

	raw, err := c.Get(context.Background(), c.IntegrationURL("/sites"), ModeStateful, nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "site-1")
	assert.Equal(t, int32(1), loginCalls.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestErrorBodyIsSanitized(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `upstream rejected request: token=abc123secret expired`)
	}))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{APIKey: "key"}, nil)

	_, err := c.Get(context.Background(), c.IntegrationURL("/sites"), ModeStateless, nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.NotContains(t, httpErr.Message, "abc123secret")
	assert.Contains(t, httpErr.Message, "[REDACTED]")
}

func TestEmptySuccessBodyDecodesAsEmptyObject(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{APIKey: "key"}, nil)

	raw, err := c.Post(context.Background(), c.IntegrationURL("/sites/s1/devices/d1/actions"), ModeStateless, map[string]string{"action": "RESTART"})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestPaginateIntegrationWalksAllPages(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		require.Equal(t, "200", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		if offset == 0 {
			fmt.Fprint(w, `{"offset":0,"limit":200,"count":200,"totalCount":250,"data":[{"id":"a"},{"id":"b"}]}`)
		} else {
			require.Equal(t, 200, offset)
			fmt.Fprint(w, `{"offset":200,"limit":200,"count":50,"totalCount":250,"data":[{"id":"c"}]}`)
		}
	}))
	defer ts.Close()

	c := testClient(t, ts, ClientConfig{APIKey: "key"}, nil)

	items, err := c.PaginateIntegration(context.Background(), c.IntegrationURL("/sites"), ModeStateless, nil)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, int32(2), requests.Load())

	var first map[string]string
	require.NoError(t, json.Unmarshal(items[0], &first))
	assert.Equal(t, "a", first["id"])
}

func TestEndpointKeyStripsQueryAndHost(t *testing.T) {
	assert.Equal(t, sitesPath, endpointKey("https://gw:443"+sitesPath+"?limit=1"))
	assert.Equal(t, "/a/b", endpointKey("https://gw/a/b"))
}

func TestURLBuilders(t *testing.T) {
	limiter := ratelimit.New(10, 100)
	c, err := NewClient(ClientConfig{Host: "gw.local", Port: 8443}, limiter, audit.Nop{})
	require.NoError(t, err)

	assert.Equal(t, "https://gw.local:8443/proxy/network/integrations/v1/sites", c.IntegrationURL("/sites"))
	assert.Equal(t, "https://gw.local:8443/proxy/network/api/s/default/stat/sta", c.LegacyURL("/s/default/stat/sta"))
	assert.Equal(t, "https://gw.local:8443/proxy/access/api/v1/developer/doors", c.AccessURL("/developer/doors"))
	assert.Equal(t, "https://gw.local:8443/proxy/protect/api/cameras", c.ProtectURL("/cameras"))
}
