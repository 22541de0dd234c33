package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

const (
	// SemgrepScannerName identifies the SAST scanner
	SemgrepScannerName = "semgrep"
	semgrepTimeout     = 120 * time.Second
)

type semgrepOutput struct {
	Results []semgrepResult `json:"results"`
}

type semgrepResult struct {
	CheckID string `json:"check_id"`
	Path    string `json:"path"`
	Start   struct {
		Line int `json:"line"`
	} `json:"start"`
	Extra struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Lines    string `json:"lines"`
	} `json:"extra"`
}

// SemgrepScanner runs rule-based static analysis
type SemgrepScanner struct {
	runner  gateways.CommandRunner
	binary  string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewSemgrepScanner creates the SAST scanner
func NewSemgrepScanner(runner gateways.CommandRunner, opts ScannerOptions) *SemgrepScanner {
	return &SemgrepScanner{
		runner:  runner,
		binary:  opts.binary("semgrep"),
		timeout: opts.timeout(semgrepTimeout),
		logger:  opts.logger(),
	}
}

// Name returns the scanner name
func (s *SemgrepScanner) Name() string {
	return SemgrepScannerName
}

// Scan runs semgrep with the auto rule set
func (s *SemgrepScanner) Scan(ctx context.Context, root string) ([]entities.Finding, error) {
	result := s.runner.Run(ctx, gateways.CommandConfig{
		Name:    s.binary,
		Args:    []string{"scan", "--config=auto", "--json", "--quiet", root},
		Timeout: s.timeout,
	})
	if scanErr := classifyRunFailure(s.Name(), result); scanErr != nil {
		return []entities.Finding{}, scanErr
	}

	stdout := bytes.TrimSpace(result.Stdout)
	if len(stdout) == 0 {
		return []entities.Finding{}, nil
	}

	var out semgrepOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return []entities.Finding{}, parseError(s.Name(), err)
	}

	findings := make([]entities.Finding, 0, len(out.Results))
	for _, r := range out.Results {
		description := r.Extra.Message
		if strings.TrimSpace(description) == "" {
			description = "Security vulnerability detected"
		}

		path := sanitizePath(s.logger, s.Name(), root, r.Path)
		if f, ok := buildFinding(s.logger, s.Name(), semgrepKind(r.CheckID), semgrepSeverity(r.Extra.Severity),
			path, r.Start.Line, description, strings.TrimSpace(r.Extra.Lines)); ok {
			findings = append(findings, f)
		}
	}

	return findings, nil
}

func semgrepSeverity(native string) entities.Severity {
	switch native {
	case "ERROR":
		return entities.SeverityHigh
	case "WARNING":
		return entities.SeverityMedium
	case "INFO":
		return entities.SeverityLow
	default:
		return entities.SeverityMedium
	}
}

// semgrepKind derives a readable type from a rule id such as
// "python.lang.security.audit.formatted-sql-query" -> "Formatted Sql Query"
func semgrepKind(checkID string) string {
	last := checkID
	if i := strings.LastIndex(checkID, "."); i >= 0 {
		last = checkID[i+1:]
	}
	kind := titleWords(strings.ReplaceAll(last, "-", " "))
	if strings.TrimSpace(kind) == "" {
		return "Security Issue"
	}
	return kind
}

// titleWords upper-cases the first letter of every run of letters and lower-cases the rest
func titleWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
