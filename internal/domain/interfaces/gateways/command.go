package gateways

import (
	"context"
	"time"
)

// CommandConfig describes one external tool invocation
type CommandConfig struct {
	Name       string
	Args       []string
	WorkingDir string
	Env        map[string]string
	Timeout    time.Duration
}

// CommandResult contains the outcome of a tool invocation.
// Stdout is kept even when the tool exits non-zero.
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
	Err      error
}

// Success reports whether the command exited cleanly
func (r *CommandResult) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// CommandRunner runs external processes bounded by a timeout
type CommandRunner interface {
	Run(ctx context.Context, config CommandConfig) *CommandResult
}
