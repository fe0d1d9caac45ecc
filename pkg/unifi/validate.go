package unifi

import (
	"fmt"
	"regexp"
	"strings"
)

// Identifier and MAC shapes accepted from tool arguments. Everything that
// ends up in a URL path is validated here first.
var (
	identifierRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	macRE        = regexp.MustCompile(`^[0-9a-f]{2}(:[0-9a-f]{2}){5}$`)
)

const maxIdentifierLen = 64

func validateIdentifier(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &ValidationError{Field: field, Message: "must not be empty"}
	}
	if len(value) > maxIdentifierLen {
		return "", &ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxIdentifierLen)}
	}
	if !identifierRE.MatchString(value) {
		return "", &ValidationError{Field: field, Message: "may only contain letters, digits, hyphens, and underscores"}
	}
	return value, nil
}

// ValidateSiteID checks a site identifier for use in a URL path.
func ValidateSiteID(value string) (string, error) { return validateIdentifier("site_id", value) }

// ValidateDeviceID checks a device identifier.
func ValidateDeviceID(value string) (string, error) { return validateIdentifier("device_id", value) }

// ValidateClientID checks a client identifier.
func ValidateClientID(value string) (string, error) { return validateIdentifier("client_id", value) }

// ValidateDoorID checks an Access door identifier.
func ValidateDoorID(value string) (string, error) { return validateIdentifier("door_id", value) }

// ValidateCameraID checks a Protect camera identifier.
func ValidateCameraID(value string) (string, error) { return validateIdentifier("camera_id", value) }

// ValidateWLANID checks a legacy WLAN configuration identifier.
func ValidateWLANID(value string) (string, error) { return validateIdentifier("wlan_id", value) }

// NormalizeMAC canonicalizes a MAC address to lowercase colon-separated form
// and rejects anything that does not parse as six octets.
func NormalizeMAC(value string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	cleaned = strings.NewReplacer("-", ":", ".", "").Replace(cleaned)

	if !strings.Contains(cleaned, ":") && len(cleaned) == 12 {
		var parts []string
		for i := 0; i < 12; i += 2 {
			parts = append(parts, cleaned[i:i+2])
		}
		cleaned = strings.Join(parts, ":")
	}

	if !macRE.MatchString(cleaned) {
		return "", &ValidationError{Field: "mac", Message: fmt.Sprintf("%q is not a valid MAC address", value)}
	}
	return cleaned, nil
}

// ValidateDuration bounds a duration argument (in seconds) to [min, max].
func ValidateDuration(field string, value, min, max int) (int, error) {
	if value < min || value > max {
		return 0, &ValidationError{Field: field, Message: fmt.Sprintf("must be between %d and %d seconds", min, max)}
	}
	return value, nil
}

// CoerceBool accepts the loose boolean spellings that MCP clients send.
func CoerceBool(field string, value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
	case float64:
		if v == 1 {
			return true, nil
		}
		if v == 0 {
			return false, nil
		}
	}
	return false, &ValidationError{Field: field, Message: fmt.Sprintf("cannot interpret %v as a boolean", value)}
}
