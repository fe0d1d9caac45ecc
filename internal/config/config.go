// Package config loads gateway settings from the environment, with an
// optional secrets.env file layered underneath. Validation collects every
// problem at once so a misconfigured deployment fails with the full list
// instead of one error per restart.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Placeholder values shipped in the sample secrets file. Running with one of
// these still set is almost always a mistake, so it is surfaced as a warning.
const (
	placeholderAPIKey   = "API"
	placeholderHost     = "HOST"
	placeholderUsername = "USERNAME"
	placeholderPassword = "PASSWORD"
)

// Config is the full gateway configuration.
type Config struct {
	APIKey      string
	GatewayHost string
	GatewayPort int
	VerifyTLS   bool
	Fingerprint string

	Username string
	Password string

	Timeout        time.Duration
	SessionTimeout time.Duration

	RateLimitPerMinute int
	RateLimitPerHour   int

	SiteManagerBase  string
	SiteManagerToken string

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Load reads the optional env file, then the environment. Environment
// variables win over file values. A missing file is not an error; an
// unreadable one is logged and skipped.
func Load(envFile string) Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("file", envFile).Msg("could not read env file")
			}
		} else {
			log.Debug().Str("file", envFile).Msg("loaded env file")
		}
	}

	return Config{
		APIKey:      getEnv("UNIFI_API_KEY", placeholderAPIKey),
		GatewayHost: getEnv("UNIFI_GATEWAY_HOST", placeholderHost),
		GatewayPort: getEnvInt("UNIFI_GATEWAY_PORT", 443),
		VerifyTLS:   getEnvBool("UNIFI_VERIFY_TLS", false),
		Fingerprint: getEnv("UNIFI_TLS_FINGERPRINT", ""),

		Username: getEnv("UNIFI_USERNAME", placeholderUsername),
		Password: getEnv("UNIFI_PASSWORD", placeholderPassword),

		Timeout:        time.Duration(getEnvInt("UNIFI_TIMEOUT_S", 15)) * time.Second,
		SessionTimeout: time.Duration(getEnvInt("UNIFI_SESSION_TIMEOUT_S", 3600)) * time.Second,

		RateLimitPerMinute: getEnvInt("UNIFI_RATE_LIMIT_PER_MINUTE", 60),
		RateLimitPerHour:   getEnvInt("UNIFI_RATE_LIMIT_PER_HOUR", 1000),

		SiteManagerBase:  getEnv("UNIFI_SITEMGR_BASE", ""),
		SiteManagerToken: getEnv("UNIFI_SITEMGR_TOKEN", ""),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}
}

// HasAPIKey reports whether a real (non-placeholder) API key is set.
func (c Config) HasAPIKey() bool {
	return c.APIKey != "" && c.APIKey != placeholderAPIKey
}

// HasLegacyCredentials reports whether a real username/password pair is set.
func (c Config) HasLegacyCredentials() bool {
	return c.EffectiveUsername() != "" && c.EffectivePassword() != ""
}

// EffectiveAPIKey returns the API key, or empty if it is the placeholder.
func (c Config) EffectiveAPIKey() string {
	if !c.HasAPIKey() {
		return ""
	}
	return c.APIKey
}

// EffectiveHost returns the gateway host, or empty if it is the placeholder.
func (c Config) EffectiveHost() string {
	if c.GatewayHost == placeholderHost {
		return ""
	}
	return c.GatewayHost
}

// EffectiveUsername returns the username, or empty if it is the placeholder.
func (c Config) EffectiveUsername() string {
	if c.Username == placeholderUsername {
		return ""
	}
	return c.Username
}

// EffectivePassword returns the password, or empty if it is the placeholder.
func (c Config) EffectivePassword() string {
	if c.Password == placeholderPassword {
		return ""
	}
	return c.Password
}

// Validate collects every configuration error. An empty slice means the
// config is usable.
func (c Config) Validate() []error {
	var errs []error

	if c.EffectiveHost() == "" {
		errs = append(errs, fmt.Errorf("UNIFI_GATEWAY_HOST must be set"))
	}
	if c.GatewayPort < 1 || c.GatewayPort > 65535 {
		errs = append(errs, fmt.Errorf("UNIFI_GATEWAY_PORT must be between 1 and 65535, got %d", c.GatewayPort))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("UNIFI_TIMEOUT_S must be positive"))
	}
	if c.SessionTimeout < 60*time.Second {
		errs = append(errs, fmt.Errorf("UNIFI_SESSION_TIMEOUT_S must be at least 60 seconds"))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Errorf("UNIFI_RATE_LIMIT_PER_MINUTE must be at least 1"))
	}
	if c.RateLimitPerHour < 1 {
		errs = append(errs, fmt.Errorf("UNIFI_RATE_LIMIT_PER_HOUR must be at least 1"))
	}

	hasUser := c.EffectiveUsername() != ""
	hasPass := c.EffectivePassword() != ""
	if hasUser != hasPass {
		errs = append(errs, fmt.Errorf("UNIFI_USERNAME and UNIFI_PASSWORD must be set together"))
	}

	if !c.HasAPIKey() && !c.HasLegacyCredentials() {
		errs = append(errs, fmt.Errorf("no credentials configured: set UNIFI_API_KEY or UNIFI_USERNAME/UNIFI_PASSWORD"))
	}

	return errs
}

// Warnings reports suspicious but non-fatal settings.
func (c Config) Warnings() []string {
	var warnings []string

	if c.APIKey == placeholderAPIKey {
		warnings = append(warnings, "UNIFI_API_KEY is still the placeholder value; stateless auth is disabled")
	}
	if c.GatewayHost == placeholderHost {
		warnings = append(warnings, "UNIFI_GATEWAY_HOST is still the placeholder value")
	}
	if c.Username == placeholderUsername && c.EffectivePassword() != "" {
		warnings = append(warnings, "UNIFI_PASSWORD is set but UNIFI_USERNAME is still the placeholder")
	}
	if c.Password == placeholderPassword && c.EffectiveUsername() != "" {
		warnings = append(warnings, "UNIFI_USERNAME is set but UNIFI_PASSWORD is still the placeholder")
	}
	if c.RateLimitPerMinute > 600 {
		warnings = append(warnings, fmt.Sprintf("UNIFI_RATE_LIMIT_PER_MINUTE=%d is very high; the console may throttle you first", c.RateLimitPerMinute))
	}
	if c.RateLimitPerHour > 10000 {
		warnings = append(warnings, fmt.Sprintf("UNIFI_RATE_LIMIT_PER_HOUR=%d is very high; the console may throttle you first", c.RateLimitPerHour))
	}
	if !c.VerifyTLS && c.Fingerprint == "" {
		warnings = append(warnings, "TLS verification is disabled; set UNIFI_VERIFY_TLS=true or pin UNIFI_TLS_FINGERPRINT")
	}

	return warnings
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	log.Warn().Str("key", key).Str("value", v).Msg("invalid boolean in environment, using default")
	return fallback
}
