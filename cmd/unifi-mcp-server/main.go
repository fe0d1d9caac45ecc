package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ry-ops/unifi-mcp-server/internal/audit"
	"github.com/ry-ops/unifi-mcp-server/internal/config"
	"github.com/ry-ops/unifi-mcp-server/internal/logging"
	"github.com/ry-ops/unifi-mcp-server/internal/mcpserver"
	"github.com/ry-ops/unifi-mcp-server/internal/metrics"
	"github.com/ry-ops/unifi-mcp-server/internal/ratelimit"
	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

var (
	envFile     string
	logLevel    string
	logFormat   string
	metricsAddr string
)

func main() {
	root := &cobra.Command{
		Use:     "unifi-mcp-server",
		Short:   "MCP gateway for UniFi Network, Access, Protect, and Site Manager APIs",
		Version: mcpserver.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	root.Flags().StringVar(&envFile, "env-file", "secrets.env", "path to an env file with UNIFI_* settings")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	root.Flags().StringVar(&logFormat, "log-format", "", "log format: json or console (overrides LOG_FORMAT)")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics listener (overrides METRICS_ADDR)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context) error {
	cfg := config.Load(envFile)
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "unifi-mcp",
	})

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "configuration error:", err)
		}
		return fmt.Errorf("configuration invalid: %d error(s)", len(errs))
	}
	for _, warning := range cfg.Warnings() {
		log.Warn().Msg(warning)
	}

	limiter := ratelimit.New(cfg.RateLimitPerMinute, cfg.RateLimitPerHour)
	sink := audit.NewLogger(log.Logger)

	client, err := unifi.NewClient(unifi.ClientConfig{
		Host:           cfg.EffectiveHost(),
		Port:           cfg.GatewayPort,
		APIKey:         cfg.EffectiveAPIKey(),
		Username:       cfg.EffectiveUsername(),
		Password:       cfg.EffectivePassword(),
		VerifyTLS:      cfg.VerifyTLS,
		Fingerprint:    cfg.Fingerprint,
		Timeout:        cfg.Timeout,
		SessionTimeout: cfg.SessionTimeout,
	}, limiter, sink)
	if err != nil {
		return err
	}

	siteManager := unifi.NewSiteManagerClient(cfg.SiteManagerBase, cfg.SiteManagerToken, cfg.Timeout, limiter, sink)

	if cfg.MetricsAddr != "" {
		go metrics.Serve(cfg.MetricsAddr)
	}

	log.Info().
		Str("host", cfg.EffectiveHost()).
		Int("port", cfg.GatewayPort).
		Bool("api_key", client.HasAPIKey()).
		Bool("legacy_auth", client.HasLegacyCredentials()).
		Bool("cloud", siteManager.Configured()).
		Msg("starting MCP server on stdio")

	srv := mcpserver.New(client, siteManager, sink)
	return srv.Serve(ctx)
}
