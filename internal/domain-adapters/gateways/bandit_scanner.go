package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

const (
	// BanditScannerName identifies the Python linter
	BanditScannerName = "bandit"
	banditTimeout     = 60 * time.Second
)

type banditOutput struct {
	Results []struct {
		TestID        string `json:"test_id"`
		Filename      string `json:"filename"`
		LineNumber    int    `json:"line_number"`
		IssueText     string `json:"issue_text"`
		IssueSeverity string `json:"issue_severity"`
		Code          string `json:"code"`
	} `json:"results"`
}

// BanditScanner runs the Python security linter
type BanditScanner struct {
	runner  gateways.CommandRunner
	binary  string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewBanditScanner creates the Python linter adapter
func NewBanditScanner(runner gateways.CommandRunner, opts ScannerOptions) *BanditScanner {
	return &BanditScanner{
		runner:  runner,
		binary:  opts.binary("bandit"),
		timeout: opts.timeout(banditTimeout),
		logger:  opts.logger(),
	}
}

// Name returns the scanner name
func (s *BanditScanner) Name() string {
	return BanditScannerName
}

// Scan runs bandit recursively, asking only for medium and higher severities
func (s *BanditScanner) Scan(ctx context.Context, root string) ([]entities.Finding, error) {
	result := s.runner.Run(ctx, gateways.CommandConfig{
		Name:    s.binary,
		Args:    []string{"-r", root, "-f", "json", "-ll"},
		Timeout: s.timeout,
	})
	if scanErr := classifyRunFailure(s.Name(), result); scanErr != nil {
		return []entities.Finding{}, scanErr
	}

	stdout := bytes.TrimSpace(result.Stdout)
	if len(stdout) == 0 {
		return []entities.Finding{}, nil
	}

	var out banditOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return []entities.Finding{}, parseError(s.Name(), err)
	}

	findings := make([]entities.Finding, 0, len(out.Results))
	for _, r := range out.Results {
		kind := r.TestID
		if strings.TrimSpace(kind) == "" {
			kind = "Python Security Issue"
		}
		description := r.IssueText
		if strings.TrimSpace(description) == "" {
			description = "Python security issue detected"
		}

		path := sanitizePath(s.logger, s.Name(), root, r.Filename)
		if f, ok := buildFinding(s.logger, s.Name(), kind, banditSeverity(r.IssueSeverity),
			path, r.LineNumber, description, r.Code); ok {
			findings = append(findings, f)
		}
	}

	return findings, nil
}

func banditSeverity(native string) entities.Severity {
	switch native {
	case "HIGH":
		return entities.SeverityHigh
	case "MEDIUM":
		return entities.SeverityMedium
	case "LOW":
		return entities.SeverityLow
	default:
		return entities.SeverityMedium
	}
}
