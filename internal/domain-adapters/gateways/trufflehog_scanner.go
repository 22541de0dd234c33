package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

const (
	// TrufflehogScannerName identifies the secret scanner
	TrufflehogScannerName = "trufflehog"
	trufflehogTimeout     = 60 * time.Second
	exposedSecretKind     = "Exposed Secret"
)

// trufflehogRecord is one line of `trufflehog --json` output
type trufflehogRecord struct {
	DetectorName   string `json:"DetectorName"`
	Raw            string `json:"Raw"`
	SourceMetadata struct {
		Data struct {
			Filesystem struct {
				File string `json:"file"`
			} `json:"Filesystem"`
		} `json:"Data"`
	} `json:"SourceMetadata"`
}

// TrufflehogScanner detects committed secrets
type TrufflehogScanner struct {
	runner    gateways.CommandRunner
	inspector gateways.SecretInspector
	binary    string
	timeout   time.Duration
	logger    interfaces.Logger
}

// NewTrufflehogScanner creates the secret scanner.
// inspector may be nil; when set it labels recognised key material in descriptions.
func NewTrufflehogScanner(runner gateways.CommandRunner, inspector gateways.SecretInspector, opts ScannerOptions) *TrufflehogScanner {
	return &TrufflehogScanner{
		runner:    runner,
		inspector: inspector,
		binary:    opts.binary("trufflehog"),
		timeout:   opts.timeout(trufflehogTimeout),
		logger:    opts.logger(),
	}
}

// Name returns the scanner name
func (s *TrufflehogScanner) Name() string {
	return TrufflehogScannerName
}

// Scan runs trufflehog over the working tree filesystem
func (s *TrufflehogScanner) Scan(ctx context.Context, root string) ([]entities.Finding, error) {
	result := s.runner.Run(ctx, gateways.CommandConfig{
		Name:    s.binary,
		Args:    []string{"filesystem", root, "--json", "--no-update"},
		Timeout: s.timeout,
	})
	if scanErr := classifyRunFailure(s.Name(), result); scanErr != nil {
		return []entities.Finding{}, scanErr
	}

	return s.parse(root, result.Stdout)
}

func (s *TrufflehogScanner) parse(root string, stdout []byte) ([]entities.Finding, error) {
	findings := make([]entities.Finding, 0)
	malformed := 0
	var lastErr error

	for _, line := range bytes.Split(stdout, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var rec trufflehogRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			malformed++
			lastErr = err
			continue
		}

		detector := rec.DetectorName
		if detector == "" {
			detector = "secret"
		}
		description := fmt.Sprintf("Detected %s exposed in code", detector)
		if s.inspector != nil {
			if label, ok := s.inspector.Describe(rec.Raw); ok {
				description += " (" + label + ")"
			}
		}

		path := sanitizePath(s.logger, s.Name(), root, rec.SourceMetadata.Data.Filesystem.File)
		if f, ok := buildFinding(s.logger, s.Name(), exposedSecretKind, entities.SeverityCritical,
			path, 0, description, rec.Raw); ok {
			findings = append(findings, f)
		}
	}

	if len(findings) == 0 && malformed > 0 {
		return []entities.Finding{}, parseError(s.Name(), lastErr)
	}
	if malformed > 0 {
		s.logger.Debug("skipped malformed trufflehog lines", interfaces.F("count", malformed))
	}

	return findings, nil
}
