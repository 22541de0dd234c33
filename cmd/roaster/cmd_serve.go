package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/external-adapters/httpapi"
	"github.com/ochairo/roaster/internal/external-adapters/ratelimit"
	"github.com/ochairo/roaster/internal/external-adapters/sysinfo"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Example: `  roaster serve
  roaster serve --host 0.0.0.0 --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a := newApp(cfg, logger)
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, a)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen address (overrides HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}

func runServer(ctx context.Context, a *app) error {
	cfg := a.config

	if err := os.MkdirAll(cfg.TempDir, 0o700); err != nil {
		return fmt.Errorf("failed to create temp dir %s: %w", cfg.TempDir, err)
	}

	serverConfig := httpapi.DefaultConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	serverConfig.AllowedOrigins = cfg.AllowedOrigins
	serverConfig.AnalysisTimeout = cfg.AnalysisTimeout()
	serverConfig.WriteTimeout = cfg.AnalysisTimeout() + 30*time.Second
	serverConfig.ScansPerMinute = cfg.RateLimitScansPerMinute
	serverConfig.Debug = cfg.Debug
	serverConfig.Version = version
	serverConfig.NarrationEnabled = cfg.HasNarrationKey()

	opts := []httpapi.Option{httpapi.WithStats(sysinfo.NewCollector(cfg.TempDir))}
	if limiter := a.rateLimiter(ctx); limiter != nil {
		opts = append(opts, httpapi.WithRateLimiter(limiter))
	}

	srv := httpapi.New(serverConfig, a.roaster, a.logger, opts...)
	if err := srv.Start(); err != nil {
		return err
	}

	a.logger.Info("roaster started",
		interfaces.F("addr", srv.Addr()),
		interfaces.F("environment", cfg.Environment),
		interfaces.F("temp_dir", cfg.TempDir),
		interfaces.F("ai_configured", cfg.HasNarrationKey()))

	<-ctx.Done()
	return srv.Stop()
}

// rateLimiter prefers the shared Redis window and falls back to an in-process bucket
func (a *app) rateLimiter(ctx context.Context) ratelimit.Limiter {
	cfg := a.config
	if !cfg.RateLimitEnabled {
		return nil
	}

	if cfg.RedisURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client, err := ratelimit.Connect(connectCtx, cfg.RedisURL)
		if err == nil {
			a.closers = append(a.closers, func() { _ = client.Close() })
			a.logger.Info("rate limiting through redis")
			return ratelimit.NewRedisLimiter(client, cfg.RateLimitScansPerMinute)
		}
		a.logger.Warn("redis unavailable, rate limiting in memory", interfaces.Err(err))
	}

	return ratelimit.NewMemoryLimiter(cfg.RateLimitScansPerMinute)
}
