package entities

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is wrapped by ScanError when a scanner binary is not installed
var ErrToolNotFound = errors.New("tool not installed")

// ErrToolTimeout is wrapped by ScanError when a scanner exceeds its time budget
var ErrToolTimeout = errors.New("tool timed out")

// ValidationError reports bad caller input (URL, request body, finding fields)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ResourceLimitError reports a repository that exceeds a configured limit
type ResourceLimitError struct {
	Resource string
	Actual   int64
	Limit    int64
}

func (e *ResourceLimitError) Error() string {
	const mb = 1024 * 1024
	return fmt.Sprintf("%s size (%.1fMB) exceeds maximum allowed size (%dMB)",
		e.Resource, float64(e.Actual)/mb, e.Limit/mb)
}

// ScanError is the soft failure of one scanner adapter.
// It degrades coverage only and is never surfaced to callers.
type ScanError struct {
	Scanner string
	Reason  string
	Err     error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Scanner, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Scanner, e.Reason)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// NarrationError reports a remote narration backend failure
type NarrationError struct {
	Provider string
	Err      error
}

func (e *NarrationError) Error() string {
	return fmt.Sprintf("narration via %s failed: %v", e.Provider, e.Err)
}

func (e *NarrationError) Unwrap() error {
	return e.Err
}

// CleanupError reports a working tree that could not be removed
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("failed to cleanup repository at %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err should be surfaced to the caller as a 4xx
func IsClientError(err error) bool {
	var validationErr *ValidationError
	var limitErr *ResourceLimitError
	return errors.As(err, &validationErr) || errors.As(err, &limitErr)
}
