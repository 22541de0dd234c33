// Package services implements domain business logic and use cases.
package services

import (
	"math"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces/services"
)

const (
	// MaxScore is returned only for an empty finding list
	MaxScore = 10
	// MinScore is the floor once the penalty saturates
	MinScore = 1

	penaltyFactor = 1.5
	maxPenalty    = 9.0
)

// GenericFix is the advice for finding types missing from the table
const GenericFix = "Review security best practices for this vulnerability type"

// defaultFixAdvice maps finding types to one-line remediation advice
var defaultFixAdvice = map[string]string{
	"Exposed Secret":           "Move secrets to environment variables and use a secrets manager",
	"SQL Injection":            "Use parameterized queries or an ORM with prepared statements",
	"XSS":                      "Sanitize user input and use context-aware output encoding",
	"CSRF":                     "Implement CSRF tokens for all state-changing operations",
	"Path Traversal":           "Validate and sanitize file paths, use allowlists",
	"Command Injection":        "Avoid shell execution; use parameterized APIs instead",
	"Insecure Deserialization": "Validate input and avoid deserializing untrusted data",
	"Weak Crypto":              "Use strong, modern cryptographic algorithms (e.g., AES-256, RSA-2048+)",
	"Vulnerable Dependency":    "Upgrade the affected package to a patched version and pin it in your lockfile",
}

// securityService implements SecurityService with pure business logic
type securityService struct {
	fixAdvice map[string]string
}

// NewSecurityService creates a security service.
// overrides extends or replaces entries of the built-in advice table.
func NewSecurityService(overrides map[string]string) services.SecurityService {
	advice := make(map[string]string, len(defaultFixAdvice)+len(overrides))
	for kind, fix := range defaultFixAdvice {
		advice[kind] = fix
	}
	for kind, fix := range overrides {
		if kind == "" || fix == "" {
			continue
		}
		advice[kind] = fix
	}
	return &securityService{fixAdvice: advice}
}

// CalculateSecurityScore calculates a security score based on findings
// Pure business logic - no I/O
func (s *securityService) CalculateSecurityScore(findings []entities.Finding) int {
	return CalculateSecurityScore(findings)
}

// CalculateSecurityScore sums severity weights and decays the score from 10 towards 1.
// Any finding at all keeps the score below 10.
func CalculateSecurityScore(findings []entities.Finding) int {
	totalWeight := 0.0
	for _, f := range findings {
		totalWeight += f.Severity.Weight()
	}

	if totalWeight == 0 {
		return MaxScore
	}

	score := int(math.Floor(MaxScore - math.Min(maxPenalty, totalWeight*penaltyFactor)))
	if score < MinScore {
		return MinScore
	}
	return score
}

// CountBySeverity tallies findings per severity bucket
func (s *securityService) CountBySeverity(findings []entities.Finding) entities.SeverityCounts {
	return CountBySeverity(findings)
}

// CountBySeverity tallies findings per severity bucket
func CountBySeverity(findings []entities.Finding) entities.SeverityCounts {
	var counts entities.SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case entities.SeverityCritical:
			counts.Critical++
		case entities.SeverityHigh:
			counts.High++
		case entities.SeverityMedium:
			counts.Medium++
		case entities.SeverityLow:
			counts.Low++
		}
		counts.Total++
	}
	return counts
}

// FixFor returns the advice for kind, or GenericFix
func (s *securityService) FixFor(kind string) string {
	if fix, ok := s.fixAdvice[kind]; ok {
		return fix
	}
	return GenericFix
}

// SuggestFixes returns exactly one fix per distinct finding type, in first-seen order
func (s *securityService) SuggestFixes(findings []entities.Finding) []entities.SuggestedFix {
	fixes := make([]entities.SuggestedFix, 0)
	seen := make(map[string]struct{}, len(findings))

	for _, f := range findings {
		if _, ok := seen[f.Kind]; ok {
			continue
		}
		seen[f.Kind] = struct{}{}
		fixes = append(fixes, entities.SuggestedFix{
			FindingType: f.Kind,
			Fix:         s.FixFor(f.Kind),
		})
	}

	return fixes
}
