package gateways

import (
	"bytes"
	"errors"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

// ScannerOptions configures a tool-backed scanner adapter
type ScannerOptions struct {
	// Binary overrides the executable name or path
	Binary string
	// Timeout overrides the per-invocation time budget
	Timeout time.Duration
	Logger  interfaces.Logger
}

func (o ScannerOptions) binary(def string) string {
	if o.Binary != "" {
		return o.Binary
	}
	return def
}

func (o ScannerOptions) timeout(def time.Duration) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return def
}

func (o ScannerOptions) logger() interfaces.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return &interfaces.NoOpLogger{}
}

// classifyRunFailure turns a failed tool run into a ScanError.
// Returns nil when stdout is present, since most tools exit non-zero when they find issues.
func classifyRunFailure(scanner string, result *gateways.CommandResult) *entities.ScanError {
	switch {
	case errors.Is(result.Err, entities.ErrToolNotFound):
		return &entities.ScanError{Scanner: scanner, Reason: "tool not installed", Err: result.Err}
	case errors.Is(result.Err, entities.ErrToolTimeout):
		return &entities.ScanError{Scanner: scanner, Reason: "timed out", Err: result.Err}
	case result.Err != nil && len(bytes.TrimSpace(result.Stdout)) == 0:
		return &entities.ScanError{
			Scanner: scanner,
			Reason:  "exited without output: " + firstLine(result.Stderr),
			Err:     result.Err,
		}
	}
	return nil
}

func parseError(scanner string, err error) *entities.ScanError {
	return &entities.ScanError{Scanner: scanner, Reason: "malformed output", Err: err}
}

func firstLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	if len(b) > 200 {
		b = b[:200]
	}
	return string(b)
}

// buildFinding constructs a finding and logs rather than fails on invalid tool data
func buildFinding(
	logger interfaces.Logger,
	scanner, kind string,
	severity entities.Severity,
	path string,
	line int,
	description, snippet string,
) (entities.Finding, bool) {
	f, err := entities.NewFinding(kind, severity, path, line, description, snippet)
	if err != nil {
		logger.Warn("dropping invalid finding",
			interfaces.F("scanner", scanner),
			interfaces.Err(err))
		return entities.Finding{}, false
	}
	return f, true
}
