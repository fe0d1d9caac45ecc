package unifi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ry-ops/unifi-mcp-server/pkg/tlsutil"
)

func newLoginServer(t *testing.T, status int, loginCount *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin", creds["username"])

		loginCount.Add(1)
		if status == http.StatusOK {
			http.SetCookie(w, &http.Cookie{Name: "TOKEN", Value: "session-cookie"})
		}
		w.WriteHeader(status)
	}))
}

func newSessionManager(t *testing.T, serverURL string, timeout time.Duration) *SessionManager {
	t.Helper()
	client, err := tlsutil.NewSessionHTTPClient(false, "", 5*time.Second)
	require.NoError(t, err)
	return NewSessionManager(client, serverURL+"/api/auth/login", "admin", "pass", timeout)
}

func TestSessionLoginLifecycle(t *testing.T) {
	var logins atomic.Int32
	ts := newLoginServer(t, http.StatusOK, &logins)
	defer ts.Close()

	sm := newSessionManager(t, ts.URL, time.Hour)
	assert.False(t, sm.IsValid())

	require.NoError(t, sm.Login(context.Background(), false))
	assert.True(t, sm.IsValid())
	assert.False(t, sm.ShouldRefresh())
	assert.Equal(t, int32(1), logins.Load())

	// A valid session makes unforced login a no-op.
	require.NoError(t, sm.Login(context.Background(), false))
	assert.Equal(t, int32(1), logins.Load())

	require.NoError(t, sm.Login(context.Background(), true))
	assert.Equal(t, int32(2), logins.Load())
}

func TestSessionRefreshThreshold(t *testing.T) {
	var logins atomic.Int32
	ts := newLoginServer(t, http.StatusOK, &logins)
	defer ts.Close()

	sm := newSessionManager(t, ts.URL, 100*time.Second)
	require.NoError(t, sm.Login(context.Background(), false))

	// At 70% of the timeout: valid, no refresh due.
	sm.SetCreatedAt(time.Now().Add(-70 * time.Second))
	assert.True(t, sm.IsValid())
	assert.False(t, sm.ShouldRefresh())

	// At 85%: still valid but due for proactive renewal.
	sm.SetCreatedAt(time.Now().Add(-85 * time.Second))
	assert.True(t, sm.IsValid())
	assert.True(t, sm.ShouldRefresh())

	require.NoError(t, sm.RefreshIfNeeded(context.Background()))
	assert.Equal(t, int32(2), logins.Load())
	assert.False(t, sm.ShouldRefresh())
}

func TestSessionExpires(t *testing.T) {
	var logins atomic.Int32
	ts := newLoginServer(t, http.StatusOK, &logins)
	defer ts.Close()

	sm := newSessionManager(t, ts.URL, 100*time.Second)
	require.NoError(t, sm.Login(context.Background(), false))

	sm.SetCreatedAt(time.Now().Add(-110 * time.Second))
	assert.False(t, sm.IsValid())
}

func TestFailedLoginKeepsExistingSession(t *testing.T) {
	var logins atomic.Int32
	ts := newLoginServer(t, http.StatusOK, &logins)

	sm := newSessionManager(t, ts.URL, time.Hour)
	require.NoError(t, sm.Login(context.Background(), false))
	ts.Close()

	failing := newLoginServer(t, http.StatusUnauthorized, &logins)
	defer failing.Close()
	sm.loginURL = failing.URL + "/api/auth/login"

	err := sm.Login(context.Background(), true)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)

	// The earlier session survives the failed renewal.
	assert.True(t, sm.IsValid())
}

func TestLoginWithoutCredentials(t *testing.T) {
	client, err := tlsutil.NewSessionHTTPClient(false, "", 5*time.Second)
	require.NoError(t, err)
	sm := NewSessionManager(client, "https://example.invalid/api/auth/login", "", "", time.Hour)

	loginErr := sm.Login(context.Background(), false)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, loginErr, &cfgErr)
	assert.Contains(t, cfgErr.Message, "UNIFI_USERNAME")
	assert.Contains(t, cfgErr.Message, "UNIFI_PASSWORD")
}

func TestInvalidateIsIdempotent(t *testing.T) {
	var logins atomic.Int32
	ts := newLoginServer(t, http.StatusOK, &logins)
	defer ts.Close()

	sm := newSessionManager(t, ts.URL, time.Hour)
	require.NoError(t, sm.Login(context.Background(), false))
	require.True(t, sm.IsValid())

	sm.Invalidate()
	assert.False(t, sm.IsValid())
	sm.Invalidate()
	assert.False(t, sm.IsValid())
}

func TestSessionInfo(t *testing.T) {
	var logins atomic.Int32
	ts := newLoginServer(t, http.StatusOK, &logins)
	defer ts.Close()

	sm := newSessionManager(t, ts.URL, 200*time.Second)

	info := sm.Info()
	assert.False(t, info.Active)
	assert.Equal(t, "No active session", info.Message)
	assert.Equal(t, 200.0, info.TimeoutSeconds)

	require.NoError(t, sm.Login(context.Background(), false))
	sm.SetCreatedAt(time.Now().Add(-50 * time.Second))

	info = sm.Info()
	assert.True(t, info.Active)
	assert.Empty(t, info.Message)
	assert.InDelta(t, 50.0, info.AgeSeconds, 2.0)
	assert.InDelta(t, 150.0, info.RemainingSeconds, 2.0)
	assert.NotEmpty(t, info.CreatedAt)
	assert.NotEmpty(t, info.ExpiresAt)
	assert.False(t, info.ShouldRefresh)
}
