// Package orchestrators coordinates domain services and gateways into use cases.
package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
	"github.com/ochairo/roaster/internal/domain/interfaces/services"
)

// RoastOrchestrator runs the clone, scan, score, narrate and cleanup pipeline
type RoastOrchestrator struct {
	repositories    gateways.RepositoryGateway
	scanner         *ScanOrchestrator
	securityService services.SecurityService
	narrator        gateways.Narrator
	publisher       gateways.EventPublisher
	logger          interfaces.Logger
	now             func() time.Time
	newID           func() string
}

// RoastOption customizes a RoastOrchestrator
type RoastOption func(*RoastOrchestrator)

// WithEventPublisher announces finished scans through publisher
func WithEventPublisher(publisher gateways.EventPublisher) RoastOption {
	return func(o *RoastOrchestrator) {
		o.publisher = publisher
	}
}

// WithClock replaces the timestamp source
func WithClock(now func() time.Time) RoastOption {
	return func(o *RoastOrchestrator) {
		o.now = now
	}
}

// WithIDGenerator replaces the scan id source
func WithIDGenerator(newID func() string) RoastOption {
	return func(o *RoastOrchestrator) {
		o.newID = newID
	}
}

// NewRoastOrchestrator creates a new roast orchestrator
func NewRoastOrchestrator(
	repositories gateways.RepositoryGateway,
	scanner *ScanOrchestrator,
	securityService services.SecurityService,
	narrator gateways.Narrator,
	logger interfaces.Logger,
	opts ...RoastOption,
) *RoastOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	o := &RoastOrchestrator{
		repositories:    repositories,
		scanner:         scanner,
		securityService: securityService,
		narrator:        narrator,
		logger:          logger,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PerformRoast clones url, analyzes it and always deletes the clone afterwards.
// Client errors (bad URL, clone failure, oversized repository) are returned unwrapped.
func (o *RoastOrchestrator) PerformRoast(ctx context.Context, url string) (result *entities.ScanResult, err error) {
	scanID := o.newID()
	logger := o.logger.With(interfaces.F("scan_id", scanID), interfaces.F("repo_url", url))

	logger.Info("cloning repository")
	tree, err := o.repositories.Acquire(ctx, url)
	if tree != nil {
		defer func() {
			if releaseErr := o.repositories.Release(tree); releaseErr != nil {
				logger.Warn("cleanup failed", interfaces.Err(releaseErr))
				return
			}
			logger.Debug("working tree removed", interfaces.F("path", tree.Path))
		}()
	}
	if err != nil {
		return nil, err
	}

	return o.roast(ctx, scanID, url, tree.Path, logger)
}

// RoastDirectory analyzes an existing local directory without cloning or deleting it
func (o *RoastOrchestrator) RoastDirectory(ctx context.Context, path string) (*entities.ScanResult, error) {
	if path == "" {
		return nil, &entities.ValidationError{Field: "path", Message: "directory path must not be empty"}
	}

	scanID := o.newID()
	logger := o.logger.With(interfaces.F("scan_id", scanID), interfaces.F("path", path))

	return o.roast(ctx, scanID, path, path, logger)
}

// roast returns the context error instead of a result when ctx ended during the scan
func (o *RoastOrchestrator) roast(ctx context.Context, scanID, source, root string, logger interfaces.Logger) (*entities.ScanResult, error) {
	logger.Info("scanning repository")
	outcome := o.scanner.ScanWithReports(ctx, root)
	if err := ctx.Err(); err != nil {
		logger.Warn("scan aborted", interfaces.Err(err), interfaces.F("duration", outcome.Duration.String()))
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}
	logger.Info("scan finished",
		interfaces.F("findings", len(outcome.Findings)),
		interfaces.F("duration", outcome.Duration.String()))

	score := o.securityService.CalculateSecurityScore(outcome.Findings)
	roast, fixes := o.narrator.Narrate(ctx, outcome.Findings)
	if fixes == nil {
		fixes = []entities.SuggestedFix{}
	}

	result := &entities.ScanResult{
		ScanID:         scanID,
		Score:          score,
		Roast:          roast,
		Findings:       outcome.Findings,
		SuggestedFixes: fixes,
		RepoURL:        source,
		ScanTimestamp:  o.now().UTC().Format(time.RFC3339),
	}

	o.publish(ctx, result, outcome, logger)
	logger.Info(fmt.Sprintf("scan complete, score %d/10", score))

	return result, nil
}

// publish is best effort; a broker outage never fails a roast
func (o *RoastOrchestrator) publish(ctx context.Context, result *entities.ScanResult, outcome *ScanOutcome, logger interfaces.Logger) {
	if o.publisher == nil {
		return
	}

	event := &entities.ScanCompletedEvent{
		ScanID:    result.ScanID,
		RepoURL:   result.RepoURL,
		Score:     result.Score,
		Counts:    o.securityService.CountBySeverity(result.Findings),
		Scanners:  outcome.Reports,
		Timestamp: result.ScanTimestamp,
	}
	if err := o.publisher.PublishScanCompleted(ctx, event); err != nil {
		logger.Warn("failed to publish scan event", interfaces.Err(err))
	}
}
