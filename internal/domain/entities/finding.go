// Package entities defines core domain models and data structures.
package entities

import (
	"fmt"
	"strings"
)

// MaxSnippetLength caps code snippets so oversized secrets or code never reach a response
const MaxSnippetLength = 200

// Severity is the normalized severity bucket shared by every scanner
type Severity string

// Severity buckets, the only severity vocabulary surfaced to callers
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is one of the four buckets
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Weight returns the scoring weight of the bucket
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 3.0
	case SeverityHigh:
		return 2.0
	case SeverityMedium:
		return 1.0
	case SeverityLow:
		return 0.5
	default:
		return 1.0
	}
}

func (s Severity) String() string {
	return string(s)
}

// Finding is one normalized record of a detected security issue.
// Build it with NewFinding; adapters never mutate a finding after creation.
type Finding struct {
	Kind        string   `json:"type"`
	Severity    Severity `json:"severity"`
	FilePath    string   `json:"file_path"`
	LineNumber  *int     `json:"line_number"`
	Description string   `json:"description"`
	Snippet     *string  `json:"code_snippet"`
}

// NewFinding validates and builds a Finding.
// line <= 0 means "no line"; an empty snippet means "no snippet".
func NewFinding(kind string, severity Severity, filePath string, line int, description, snippet string) (Finding, error) {
	if !severity.Valid() {
		return Finding{}, &ValidationError{Field: "severity", Message: fmt.Sprintf("unknown severity %q", severity)}
	}
	if strings.TrimSpace(kind) == "" {
		return Finding{}, &ValidationError{Field: "type", Message: "finding type must not be empty"}
	}
	if strings.TrimSpace(description) == "" {
		return Finding{}, &ValidationError{Field: "description", Message: "finding description must not be empty"}
	}

	f := Finding{
		Kind:        kind,
		Severity:    severity,
		FilePath:    filePath,
		Description: description,
	}
	if line > 0 {
		l := line
		f.LineNumber = &l
	}
	if snippet != "" {
		s := TruncateSnippet(snippet)
		f.Snippet = &s
	}
	return f, nil
}

// Line returns the line number, or 0 when the finding has none
func (f Finding) Line() int {
	if f.LineNumber == nil {
		return 0
	}
	return *f.LineNumber
}

// CodeSnippet returns the snippet, or "" when the finding has none
func (f Finding) CodeSnippet() string {
	if f.Snippet == nil {
		return ""
	}
	return *f.Snippet
}

// TruncateSnippet cuts s to MaxSnippetLength characters
func TruncateSnippet(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxSnippetLength {
		return s
	}
	return string(runes[:MaxSnippetLength])
}

// SuggestedFix maps a finding type to one remediation sentence
type SuggestedFix struct {
	FindingType string  `json:"finding_type"`
	Fix         string  `json:"fix"`
	Example     *string `json:"example"`
}

// SeverityCounts tallies findings per bucket
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}
