package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("UNIFI_API_KEY", "real-key")
	t.Setenv("UNIFI_GATEWAY_HOST", "192.168.1.1")
	t.Setenv("UNIFI_GATEWAY_PORT", "443")
	t.Setenv("UNIFI_USERNAME", "admin")
	t.Setenv("UNIFI_PASSWORD", "pass")
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load("")

	assert.Equal(t, 443, cfg.GatewayPort)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, time.Hour, cfg.SessionTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 1000, cfg.RateLimitPerHour)
	assert.False(t, cfg.VerifyTLS)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestPlaceholdersAreNotCredentials(t *testing.T) {
	cfg := Load("")

	assert.False(t, cfg.HasAPIKey())
	assert.False(t, cfg.HasLegacyCredentials())
	assert.Empty(t, cfg.EffectiveAPIKey())
	assert.Empty(t, cfg.EffectiveHost())
	assert.Empty(t, cfg.EffectiveUsername())
	assert.Empty(t, cfg.EffectivePassword())
}

func TestLoadFromEnvironment(t *testing.T) {
	setValidEnv(t)
	t.Setenv("UNIFI_TIMEOUT_S", "30")
	t.Setenv("UNIFI_RATE_LIMIT_PER_MINUTE", "120")

	cfg := Load("")
	assert.Equal(t, "real-key", cfg.EffectiveAPIKey())
	assert.Equal(t, "192.168.1.1", cfg.EffectiveHost())
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.True(t, cfg.HasAPIKey())
	assert.True(t, cfg.HasLegacyCredentials())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.env")
	content := "UNIFI_API_KEY=file-key\nUNIFI_GATEWAY_HOST=10.0.0.1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv writes into the process environment; undo it afterwards.
	t.Cleanup(func() {
		os.Unsetenv("UNIFI_API_KEY")
		os.Unsetenv("UNIFI_GATEWAY_HOST")
	})

	cfg := Load(path)
	assert.Equal(t, "file-key", cfg.EffectiveAPIKey())
	assert.Equal(t, "10.0.0.1", cfg.EffectiveHost())
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.env")
	require.NoError(t, os.WriteFile(path, []byte("UNIFI_API_KEY=file-key\n"), 0o600))

	t.Setenv("UNIFI_API_KEY", "env-key")
	cfg := Load(path)
	assert.Equal(t, "env-key", cfg.EffectiveAPIKey())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Config{
		GatewayPort:        0,
		Timeout:            0,
		SessionTimeout:     time.Second,
		RateLimitPerMinute: 0,
		RateLimitPerHour:   0,
	}

	errs := cfg.Validate()
	require.NotEmpty(t, errs)

	joined := make([]string, 0, len(errs))
	for _, err := range errs {
		joined = append(joined, err.Error())
	}
	all := strings.Join(joined, "\n")

	assert.Contains(t, all, "UNIFI_GATEWAY_HOST")
	assert.Contains(t, all, "UNIFI_GATEWAY_PORT")
	assert.Contains(t, all, "UNIFI_TIMEOUT_S")
	assert.Contains(t, all, "UNIFI_SESSION_TIMEOUT_S")
	assert.Contains(t, all, "UNIFI_RATE_LIMIT_PER_MINUTE")
	assert.Contains(t, all, "UNIFI_RATE_LIMIT_PER_HOUR")
	assert.Contains(t, all, "no credentials configured")
}

func TestValidatePassesWithGoodConfig(t *testing.T) {
	setValidEnv(t)
	cfg := Load("")
	assert.Empty(t, cfg.Validate())
}

func TestValidateRequiresCredentialPair(t *testing.T) {
	setValidEnv(t)
	t.Setenv("UNIFI_PASSWORD", "PASSWORD")

	cfg := Load("")
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "must be set together")
}

func TestWarningsFlagPlaceholders(t *testing.T) {
	cfg := Load("")
	warnings := strings.Join(cfg.Warnings(), "\n")
	assert.Contains(t, warnings, "UNIFI_API_KEY is still the placeholder")
	assert.Contains(t, warnings, "UNIFI_GATEWAY_HOST is still the placeholder")
}

func TestWarningsFlagHighLimits(t *testing.T) {
	setValidEnv(t)
	t.Setenv("UNIFI_RATE_LIMIT_PER_MINUTE", "5000")
	t.Setenv("UNIFI_RATE_LIMIT_PER_HOUR", "50000")

	cfg := Load("")
	warnings := strings.Join(cfg.Warnings(), "\n")
	assert.Contains(t, warnings, "UNIFI_RATE_LIMIT_PER_MINUTE=5000")
	assert.Contains(t, warnings, "UNIFI_RATE_LIMIT_PER_HOUR=50000")
}

func TestInvalidIntegerFallsBack(t *testing.T) {
	t.Setenv("UNIFI_GATEWAY_PORT", "not-a-port")
	cfg := Load("")
	assert.Equal(t, 443, cfg.GatewayPort)
}
