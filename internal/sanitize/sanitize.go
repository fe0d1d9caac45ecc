// Package sanitize redacts credentials and secrets from data structures and
// error text before they reach logs or callers. Both entry points are total
// functions: malformed input passes through rather than failing.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Redacted replaces any value whose key looks credential-bearing.
	Redacted = "[REDACTED]"
	// MaxDepthMarker replaces subtrees nested deeper than maxDepth levels.
	MaxDepthMarker = "[MAX_DEPTH_REACHED]"

	maxDepth        = 10
	maxStringLen    = 1000
	truncatedPrefix = 100
	maxErrorLen     = 500
)

// Field-name substrings considered sensitive. Matching is case-insensitive
// containment, so "user_password", "X-API-Key" and "Set-Cookie" all hit.
var sensitiveKeySubstrings = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"api-key",
	"auth",
	"cookie",
	"session",
	"csrf",
	"credential",
}

var (
	// Authorization headers must be handled before the generic key/value rule,
	// which would otherwise stop at the scheme word and leave the token intact.
	authorizationRE = regexp.MustCompile(`(?i)\bauthorization\b\s*[:=]\s*(?:(?:bearer|basic)\s+)?[A-Za-z0-9\-._~+/]+=*`)
	// name=value and name: value pairs for credential-bearing names.
	kvSecretRE = regexp.MustCompile(`(?i)\b((?:x-)?(?:password|passwd|secret|token|access[_-]?token|refresh[_-]?token|api[_-]?key|apikey|auth))\b\s*[:=]\s*[^\s&,;"']+`)
)

// Value returns a deep copy of v with sensitive fields redacted, oversized
// strings truncated, and recursion bounded. Scalars other than strings pass
// through unchanged.
func Value(v interface{}) interface{} {
	return sanitizeValue(v, 0)
}

func sanitizeValue(v interface{}, depth int) interface{} {
	if depth > maxDepth {
		return MaxDepthMarker
	}

	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if isSensitiveKey(k) {
				out[k] = Redacted
				continue
			}
			out[k] = sanitizeValue(val, depth+1)
		}
		return out
	case map[string]string:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if isSensitiveKey(k) {
				out[k] = Redacted
				continue
			}
			out[k] = sanitizeValue(val, depth+1)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val, depth+1)
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val, depth+1)
		}
		return out
	case string:
		return truncateString(t)
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeySubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func truncateString(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= maxStringLen {
		return s
	}
	runes := []rune(s)
	return fmt.Sprintf("%s...[TRUNCATED %d chars]", string(runes[:truncatedPrefix]), n)
}

// ErrorText redacts credential material from an error message and bounds its
// length. The output never contains the literal value of a configured
// credential that appeared in name=value, "name: value", or Authorization
// header form.
func ErrorText(text string) string {
	out := authorizationRE.ReplaceAllString(text, "Authorization: "+Redacted)
	out = kvSecretRE.ReplaceAllString(out, "${1}="+Redacted)

	if utf8.RuneCountInString(out) > maxErrorLen {
		runes := []rune(out)
		out = string(runes[:maxErrorLen]) + "...[TRUNCATED]"
	}
	return out
}
