package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

const (
	// DependencyScannerName identifies the composite dependency scanner
	DependencyScannerName = "dependencies"
	// PipAuditScannerName identifies the Python dependency audit
	PipAuditScannerName = "pip-audit"
	// NpmAuditScannerName identifies the Node dependency audit
	NpmAuditScannerName = "npm-audit"

	dependencyTimeout      = 60 * time.Second
	vulnerableDependency   = "Vulnerable Dependency"
	nodeManifest           = "package.json"
	unknownPackageName     = "Unknown"
	defaultNpmSeverityText = "medium"
)

// pythonManifests are audited in this order when present
var pythonManifests = []string{"requirements.txt", "requirements-dev.txt", "Pipfile", "poetry.lock"}

// DependencyScanner composes the per-ecosystem dependency audits
type DependencyScanner struct {
	ecosystems []gateways.ScannerGateway
	logger     interfaces.Logger
}

// NewDependencyScanner creates the composite dependency scanner from pip-audit and npm audit
func NewDependencyScanner(runner gateways.CommandRunner, pipOpts, npmOpts ScannerOptions) *DependencyScanner {
	return NewDependencyScannerWithEcosystems(pipOpts.logger(),
		NewPipAuditScanner(runner, pipOpts),
		NewNpmAuditScanner(runner, npmOpts),
	)
}

// NewDependencyScannerWithEcosystems creates a composite scanner with custom ecosystems
// This is useful for testing or when you want to inject specific implementations
func NewDependencyScannerWithEcosystems(logger interfaces.Logger, ecosystems ...gateways.ScannerGateway) *DependencyScanner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &DependencyScanner{ecosystems: ecosystems, logger: logger}
}

// Name returns the scanner name
func (d *DependencyScanner) Name() string {
	return DependencyScannerName
}

// Scan audits each ecosystem independently.
// A failing ecosystem only degrades coverage; an error is returned only when no findings survive.
func (d *DependencyScanner) Scan(ctx context.Context, root string) ([]entities.Finding, error) {
	findings := make([]entities.Finding, 0)
	var errs []error

	for _, eco := range d.ecosystems {
		ecoFindings, err := eco.Scan(ctx, root)
		if err != nil {
			d.logger.Warn("dependency audit failed",
				interfaces.F("ecosystem", eco.Name()),
				interfaces.Err(err))
			errs = append(errs, err)
			continue
		}
		findings = append(findings, ecoFindings...)
	}

	if len(findings) == 0 && len(errs) > 0 {
		return []entities.Finding{}, &entities.ScanError{
			Scanner: d.Name(),
			Reason:  "dependency audit failed",
			Err:     errors.Join(errs...),
		}
	}

	return findings, nil
}

// PipAuditScanner audits Python manifests with pip-audit
type PipAuditScanner struct {
	runner  gateways.CommandRunner
	binary  string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewPipAuditScanner creates the Python dependency audit
func NewPipAuditScanner(runner gateways.CommandRunner, opts ScannerOptions) *PipAuditScanner {
	return &PipAuditScanner{
		runner:  runner,
		binary:  opts.binary("pip-audit"),
		timeout: opts.timeout(dependencyTimeout),
		logger:  opts.logger(),
	}
}

// Name returns the scanner name
func (p *PipAuditScanner) Name() string {
	return PipAuditScannerName
}

// pipAuditVuln is shared by the nested and the flat report layouts
type pipAuditVuln struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	ID          string   `json:"id"`
	FixVersions []string `json:"fix_versions"`
}

type pipAuditOutput struct {
	Dependencies []struct {
		Name    string         `json:"name"`
		Version string         `json:"version"`
		Vulns   []pipAuditVuln `json:"vulns"`
	} `json:"dependencies"`
	Vulnerabilities []pipAuditVuln `json:"vulnerabilities"`
}

// Scan runs pip-audit once per manifest present at the tree root
func (p *PipAuditScanner) Scan(ctx context.Context, root string) ([]entities.Finding, error) {
	findings := make([]entities.Finding, 0)
	audited := 0
	var errs []error

	for _, manifest := range pythonManifests {
		manifestPath := filepath.Join(root, manifest)
		if !regularFileExists(manifestPath) {
			continue
		}
		audited++

		manifestFindings, err := p.audit(ctx, manifestPath, manifest)
		if err != nil {
			p.logger.Warn("pip-audit failed for manifest",
				interfaces.F("manifest", manifest),
				interfaces.Err(err))
			errs = append(errs, err)
			continue
		}
		findings = append(findings, manifestFindings...)
	}

	if audited > 0 && len(errs) == audited {
		return []entities.Finding{}, &entities.ScanError{
			Scanner: p.Name(),
			Reason:  "no manifest could be audited",
			Err:     errors.Join(errs...),
		}
	}

	return findings, nil
}

func (p *PipAuditScanner) audit(ctx context.Context, manifestPath, relPath string) ([]entities.Finding, error) {
	result := p.runner.Run(ctx, gateways.CommandConfig{
		Name:    p.binary,
		Args:    []string{"-r", manifestPath, "--format", "json"},
		Timeout: p.timeout,
	})
	if scanErr := classifyRunFailure(p.Name(), result); scanErr != nil {
		return nil, scanErr
	}

	stdout := bytes.TrimSpace(result.Stdout)
	if len(stdout) == 0 {
		return []entities.Finding{}, nil
	}

	var out pipAuditOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, parseError(p.Name(), err)
	}

	vulns := make([]pipAuditVuln, 0, len(out.Vulnerabilities))
	for _, dep := range out.Dependencies {
		for _, v := range dep.Vulns {
			v.Name, v.Version = dep.Name, dep.Version
			vulns = append(vulns, v)
		}
	}
	vulns = append(vulns, out.Vulnerabilities...)

	findings := make([]entities.Finding, 0, len(vulns))
	for _, v := range vulns {
		name := v.Name
		if name == "" {
			name = unknownPackageName
		}
		severity := entities.SeverityMedium
		if len(v.FixVersions) > 0 {
			severity = entities.SeverityHigh
		}
		description := fmt.Sprintf("%s %s has known vulnerability: %s", name, v.Version, v.ID)

		if f, ok := buildFinding(p.logger, p.Name(), vulnerableDependency, severity,
			filepath.ToSlash(relPath), 0, description, ""); ok {
			findings = append(findings, f)
		}
	}

	return findings, nil
}

// NpmAuditScanner audits package.json with npm audit
type NpmAuditScanner struct {
	runner  gateways.CommandRunner
	binary  string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewNpmAuditScanner creates the Node dependency audit
func NewNpmAuditScanner(runner gateways.CommandRunner, opts ScannerOptions) *NpmAuditScanner {
	return &NpmAuditScanner{
		runner:  runner,
		binary:  opts.binary("npm"),
		timeout: opts.timeout(dependencyTimeout),
		logger:  opts.logger(),
	}
}

// Name returns the scanner name
func (n *NpmAuditScanner) Name() string {
	return NpmAuditScannerName
}

type npmVulnerability struct {
	Severity string `json:"severity"`
}

type npmAuditError struct {
	Code    string `json:"code"`
	Summary string `json:"summary"`
}

type npmAdvisory struct {
	pkg      string
	severity string
}

// Scan runs npm audit in the tree root when package.json is present
func (n *NpmAuditScanner) Scan(ctx context.Context, root string) ([]entities.Finding, error) {
	if !regularFileExists(filepath.Join(root, nodeManifest)) {
		return []entities.Finding{}, nil
	}

	result := n.runner.Run(ctx, gateways.CommandConfig{
		Name:       n.binary,
		Args:       []string{"audit", "--json"},
		WorkingDir: root,
		Timeout:    n.timeout,
	})
	if scanErr := classifyRunFailure(n.Name(), result); scanErr != nil {
		return []entities.Finding{}, scanErr
	}

	stdout := bytes.TrimSpace(result.Stdout)
	if len(stdout) == 0 {
		return []entities.Finding{}, nil
	}

	advisories, auditErr, err := decodeNpmAudit(stdout)
	if err != nil {
		return []entities.Finding{}, parseError(n.Name(), err)
	}
	if auditErr != nil {
		return []entities.Finding{}, &entities.ScanError{
			Scanner: n.Name(),
			Reason:  fmt.Sprintf("npm reported %s: %s", auditErr.Code, auditErr.Summary),
		}
	}

	findings := make([]entities.Finding, 0, len(advisories))
	for _, adv := range advisories {
		native := adv.severity
		if native == "" {
			native = defaultNpmSeverityText
		}
		description := fmt.Sprintf("npm package %s has %s severity vulnerability", adv.pkg, native)

		if f, ok := buildFinding(n.logger, n.Name(), vulnerableDependency, npmSeverity(native),
			nodeManifest, 0, description, ""); ok {
			findings = append(findings, f)
		}
	}

	return findings, nil
}

// decodeNpmAudit walks the report with a token decoder so advisories keep document order
func decodeNpmAudit(data []byte) ([]npmAdvisory, *npmAuditError, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	var advisories []npmAdvisory
	var auditErr *npmAuditError

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, nil, err
		}

		switch key {
		case "vulnerabilities":
			advisories, err = decodeNpmVulnerabilities(dec)
			if err != nil {
				return nil, nil, err
			}
		case "error":
			var e npmAuditError
			if err := dec.Decode(&e); err != nil {
				return nil, nil, fmt.Errorf("decode error object: %w", err)
			}
			auditErr = &e
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, nil, fmt.Errorf("skip %q: %w", key, err)
			}
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}

	return advisories, auditErr, nil
}

func decodeNpmVulnerabilities(dec *json.Decoder) ([]npmAdvisory, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	advisories := make([]npmAdvisory, 0)
	for dec.More() {
		pkg, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var v npmVulnerability
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode vulnerability %q: %w", pkg, err)
		}
		advisories = append(advisories, npmAdvisory{pkg: pkg, severity: v.Severity})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return advisories, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("unexpected end of input, want %q", want)
		}
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("unexpected token %v, want %q", tok, want)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token %v, want object key", tok)
	}
	return key, nil
}

func npmSeverity(native string) entities.Severity {
	switch native {
	case "critical":
		return entities.SeverityCritical
	case "high":
		return entities.SeverityHigh
	case "low":
		return entities.SeverityLow
	default:
		return entities.SeverityMedium
	}
}

func regularFileExists(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
