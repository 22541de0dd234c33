package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

const (
	defaultCommandTimeout = 60 * time.Second
	// waitDelay bounds how long Wait blocks on inherited pipes after the process is killed
	waitDelay = 2 * time.Second
)

// CommandRunner executes external analysis tools
type CommandRunner struct {
	defaultTimeout time.Duration
	logger         interfaces.Logger
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(logger interfaces.Logger) *CommandRunner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &CommandRunner{
		defaultTimeout: defaultCommandTimeout,
		logger:         logger,
	}
}

// Run executes the command with the given configuration.
// Err wraps entities.ErrToolNotFound or entities.ErrToolTimeout when applicable;
// a plain non-zero exit leaves Err set but Stdout intact.
func (r *CommandRunner) Run(ctx context.Context, config gateways.CommandConfig) *gateways.CommandResult {
	startTime := time.Now()
	result := &gateways.CommandResult{}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: tool names come from configuration, arguments are passed without a shell
	cmd := exec.CommandContext(execCtx, config.Name, config.Args...)
	cmd.WaitDelay = waitDelay

	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	if len(config.Env) > 0 {
		env := os.Environ()
		for key, value := range config.Env {
			env = append(env, fmt.Sprintf("%s=%s", key, value))
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running tool",
		interfaces.F("tool", config.Name),
		interfaces.F("args", config.Args),
		interfaces.F("timeout", timeout.String()))

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()

	if err == nil {
		return result
	}

	result.ExitCode = -1
	var exitErr *exec.ExitError
	switch {
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		result.Err = fmt.Errorf("%s after %v: %w", config.Name, timeout, entities.ErrToolTimeout)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		result.Err = fmt.Errorf("%s: %w", config.Name, entities.ErrToolNotFound)
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		result.Err = err
	default:
		result.Err = err
	}

	r.logger.Debug("tool finished with error",
		interfaces.F("tool", config.Name),
		interfaces.F("exit_code", result.ExitCode),
		interfaces.F("duration", result.Duration.String()),
		interfaces.Err(result.Err))

	return result
}
