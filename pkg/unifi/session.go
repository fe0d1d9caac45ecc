package unifi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ry-ops/unifi-mcp-server/internal/sanitize"
)

// refreshFraction is the share of the session timeout after which a session
// is renewed proactively, before it can expire mid-request.
const refreshFraction = 0.8

// SessionManager owns the single legacy cookie session for the console.
// There is exactly one live session per process; all state transitions are
// guarded by the mutex.
type SessionManager struct {
	mu         sync.Mutex
	httpClient *http.Client
	loginURL   string
	username   string
	password   string
	timeout    time.Duration
	createdAt  time.Time // zero while unauthenticated
	lastUsed   time.Time
	now        func() time.Time
}

// SessionInfo is a diagnostic snapshot of the session state.
type SessionInfo struct {
	Active           bool    `json:"active"`
	Message          string  `json:"message,omitempty"`
	CreatedAt        string  `json:"created_at,omitempty"`
	AgeSeconds       float64 `json:"age_seconds,omitempty"`
	TimeoutSeconds   float64 `json:"timeout_seconds"`
	RemainingSeconds float64 `json:"remaining_seconds,omitempty"`
	ExpiresAt        string  `json:"expires_at,omitempty"`
	ShouldRefresh    bool    `json:"should_refresh"`
}

// NewSessionManager creates an unauthenticated session manager. The HTTP
// client must carry a cookie jar; the manager owns it for the process
// lifetime.
func NewSessionManager(httpClient *http.Client, loginURL, username, password string, timeout time.Duration) *SessionManager {
	return &SessionManager{
		httpClient: httpClient,
		loginURL:   loginURL,
		username:   username,
		password:   password,
		timeout:    timeout,
		now:        time.Now,
	}
}

// HTTPClient returns the cookie-carrying client for stateful requests.
func (s *SessionManager) HTTPClient() *http.Client {
	return s.httpClient
}

// IsValid reports whether a session exists and has not aged past the
// configured timeout.
func (s *SessionManager) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isValidLocked()
}

func (s *SessionManager) isValidLocked() bool {
	if s.createdAt.IsZero() {
		return false
	}
	return s.now().Sub(s.createdAt) < s.timeout
}

// ShouldRefresh reports whether the session has reached the proactive
// refresh threshold. False when no session exists.
func (s *SessionManager) ShouldRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldRefreshLocked()
}

func (s *SessionManager) shouldRefreshLocked() bool {
	if s.createdAt.IsZero() {
		return false
	}
	age := s.now().Sub(s.createdAt)
	return age >= time.Duration(refreshFraction*float64(s.timeout))
}

// Login authenticates against the console's login endpoint. Without force it
// is an idempotent no-op while the session is valid. A failed login leaves
// the previous session state untouched, so a failed proactive refresh does
// not invalidate a still-usable session.
func (s *SessionManager) Login(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.isValidLocked() {
		return nil
	}
	if s.username == "" || s.password == "" {
		missing := make([]string, 0, 2)
		if s.username == "" {
			missing = append(missing, "UNIFI_USERNAME")
		}
		if s.password == "" {
			missing = append(missing, "UNIFI_PASSWORD")
		}
		return &ConfigurationError{Message: fmt.Sprintf("legacy login requires %v", missing)}
	}

	body, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return fmt.Errorf("marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.loginURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{
			Status:  resp.StatusCode,
			Method:  http.MethodPost,
			Path:    "/api/auth/login",
			Message: sanitize.ErrorText(string(raw)),
		}
	}

	now := s.now()
	s.createdAt = now
	s.lastUsed = now
	log.Debug().Time("created_at", now).Msg("legacy session established")
	return nil
}

// RefreshIfNeeded renews the session iff it has crossed the refresh
// threshold. Callers still check IsValid afterwards: a session that slipped
// entirely past expiry (suspended process) is caught by the hard check, not
// here.
func (s *SessionManager) RefreshIfNeeded(ctx context.Context) error {
	if !s.ShouldRefresh() {
		return nil
	}
	return s.Login(ctx, true)
}

// Invalidate clears the session unconditionally: cookie jar and both
// timestamps. Idempotent.
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jar, err := cookiejar.New(nil); err == nil {
		s.httpClient.Jar = jar
	}
	s.createdAt = time.Time{}
	s.lastUsed = time.Time{}
	log.Debug().Msg("legacy session invalidated")
}

// MarkUsed records session activity for diagnostics.
func (s *SessionManager) MarkUsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
}

// Info returns a diagnostic snapshot. It never fails.
func (s *SessionManager) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{
		TimeoutSeconds: s.timeout.Seconds(),
	}
	if !s.isValidLocked() {
		info.Message = "No active session"
		return info
	}

	now := s.now()
	age := now.Sub(s.createdAt)
	expires := s.createdAt.Add(s.timeout)

	info.Active = true
	info.CreatedAt = s.createdAt.UTC().Format(time.RFC3339)
	info.AgeSeconds = age.Seconds()
	info.RemainingSeconds = expires.Sub(now).Seconds()
	info.ExpiresAt = expires.UTC().Format(time.RFC3339)
	info.ShouldRefresh = s.shouldRefreshLocked()
	return info
}

// SetCreatedAt overrides the session creation timestamp. Test hook for aging
// a session without waiting.
func (s *SessionManager) SetCreatedAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdAt = t
}

// SetClock overrides the time source. Test hook.
func (s *SessionManager) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
