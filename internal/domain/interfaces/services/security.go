// Package services defines interfaces for domain service contracts.
package services

import (
	"github.com/ochairo/roaster/internal/domain/entities"
)

// SecurityService defines the pure business rules applied to a finding list
type SecurityService interface {
	// CalculateSecurityScore maps findings to a score in [1,10]
	CalculateSecurityScore(findings []entities.Finding) int

	// CountBySeverity tallies findings per severity bucket
	CountBySeverity(findings []entities.Finding) entities.SeverityCounts

	// FixFor returns the remediation advice for a finding type
	FixFor(kind string) string

	// SuggestFixes returns one fix per distinct finding type, in first-seen order
	SuggestFixes(findings []entities.Finding) []entities.SuggestedFix
}
