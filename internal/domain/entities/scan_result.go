package entities

import "time"

// ScanResult is the response payload for one roast
type ScanResult struct {
	ScanID         string         `json:"-"`
	Score          int            `json:"score"`
	Roast          string         `json:"roast"`
	Findings       []Finding      `json:"findings"`
	SuggestedFixes []SuggestedFix `json:"suggested_fixes"`
	RepoURL        string         `json:"repo_url"`
	ScanTimestamp  string         `json:"scan_timestamp"`
}

// ScannerReport summarizes one adapter run inside a scan
type ScannerReport struct {
	Scanner  string        `json:"scanner"`
	Findings int           `json:"findings"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// ScanCompletedEvent is published after a roast finishes
type ScanCompletedEvent struct {
	ScanID    string          `json:"scan_id"`
	RepoURL   string          `json:"repo_url"`
	Score     int             `json:"score"`
	Counts    SeverityCounts  `json:"counts"`
	Scanners  []ScannerReport `json:"scanners"`
	Timestamp string          `json:"timestamp"`
}

// WorkingTree is the on-disk, read-only checkout of a repository for one scan
type WorkingTree struct {
	Path      string
	URL       string
	Owner     string
	Name      string
	SizeBytes int64
}
