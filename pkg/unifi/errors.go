package unifi

import "fmt"

// HTTPError reports a non-2xx response from the controller after all
// fallback attempts. Message has already been through sanitize.ErrorText.
type HTTPError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s -> %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// IsAuthStatus reports whether the status indicates an authorization failure
// eligible for the dual-mode fallback.
func (e *HTTPError) IsAuthStatus() bool {
	return e.Status == 401 || e.Status == 403
}

// RateLimitError reports admission denial before any network I/O. It never
// indicates an upstream problem; callers should back off per the hint.
type RateLimitError struct {
	Endpoint string
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// ConfigurationError reports a credential or setting missing for the
// requested operation.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// ValidationError reports malformed handler-level input. It is raised before
// the HTTP core is invoked.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
