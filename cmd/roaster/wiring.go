package main

import (
	"context"
	"fmt"

	"github.com/ochairo/roaster/internal/config"
	"github.com/ochairo/roaster/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/roaster/internal/domain-orchestrators"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	gatewayifaces "github.com/ochairo/roaster/internal/domain/interfaces/gateways"
	"github.com/ochairo/roaster/internal/domain/services"
	"github.com/ochairo/roaster/internal/external-adapters/gpg"
	"github.com/ochairo/roaster/internal/external-adapters/nats"
	"github.com/ochairo/roaster/internal/external-adapters/zaplog"
)

// app holds the wired pipeline and everything that must be closed on exit
type app struct {
	config  *config.Config
	logger  *zaplog.Logger
	roaster *orchestrators.RoastOrchestrator
	closers []func()
}

// bootstrap loads configuration and builds the logger
func bootstrap() (*config.Config, *zaplog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := zaplog.New(cfg.Debug, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	if len(cfg.Sources) > 0 {
		logger.Debug("configuration loaded", interfaces.F("sources", cfg.Sources))
	}
	return cfg, logger, nil
}

// newApp wires the roast pipeline following Clean Architecture:
// gateways (infrastructure) -> services (business rules) -> orchestrators (use cases)
func newApp(cfg *config.Config, logger *zaplog.Logger) *app {
	a := &app{config: cfg, logger: logger}

	// Layer 1: gateways
	runner := gateways.NewCommandRunner(logger)
	repositories := gateways.NewGitRepositoryGateway(runner, gateways.GitRepositoryConfig{
		TempDir:      cfg.TempDir,
		MaxRepoBytes: cfg.MaxRepoBytes(),
		CloneTimeout: cfg.CloneTimeout(),
		GitBinary:    cfg.Tool("git").Binary,
	}, logger)

	// Layer 2: services
	securityService := services.NewSecurityService(cfg.FixAdvice)
	fallback := services.NewFallbackNarrator(securityService, nil)
	narrator := gateways.NewNarratorChain(fallback, securityService, logger,
		gateways.RemoteNarratorConfig{
			Provider: "grok",
			APIKey:   cfg.Grok.APIKey,
			BaseURL:  cfg.Grok.BaseURL,
			Model:    cfg.Grok.Model,
		},
		gateways.RemoteNarratorConfig{
			Provider: "openai",
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			Model:    cfg.OpenAI.Model,
		},
	)

	// Layer 3: orchestrators
	scanner := orchestrators.NewScanOrchestrator(buildScanners(cfg, runner, logger), cfg.ScanParallel, logger)

	var opts []orchestrators.RoastOption
	if publisher := a.eventPublisher(); publisher != nil {
		opts = append(opts, orchestrators.WithEventPublisher(publisher))
	}

	a.roaster = orchestrators.NewRoastOrchestrator(repositories, scanner, securityService, narrator, logger, opts...)
	return a
}

// buildScanners returns the adapters in merge order: secrets, SAST, dependencies, Python lint
func buildScanners(cfg *config.Config, runner gatewayifaces.CommandRunner, logger interfaces.Logger) []gatewayifaces.ScannerGateway {
	opts := func(name string) gateways.ScannerOptions {
		tool := cfg.Tool(name)
		return gateways.ScannerOptions{Binary: tool.Binary, Timeout: tool.Timeout, Logger: logger}
	}

	return []gatewayifaces.ScannerGateway{
		gateways.NewTrufflehogScanner(runner, gpg.NewKeyInspector(), opts(gateways.TrufflehogScannerName)),
		gateways.NewSemgrepScanner(runner, opts(gateways.SemgrepScannerName)),
		gateways.NewDependencyScanner(runner, opts(gateways.PipAuditScannerName), opts(gateways.NpmAuditScannerName)),
		gateways.NewBanditScanner(runner, opts(gateways.BanditScannerName)),
	}
}

// eventPublisher connects to NATS when configured. Events are optional, so a
// connection failure is logged and the service runs without them.
func (a *app) eventPublisher() gatewayifaces.EventPublisher {
	if a.config.NatsURL == "" {
		return nil
	}

	publisher, err := nats.NewPublisher(a.config.NatsURL, a.config.NatsSubject, a.logger)
	if err != nil {
		a.logger.Warn("scan events disabled", interfaces.Err(err))
		return nil
	}
	a.closers = append(a.closers, publisher.Close)
	return publisher
}

// roastTimeout bounds a CLI roast the same way the HTTP layer does
func (a *app) roastTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.AnalysisTimeout())
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}
