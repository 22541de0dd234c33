package gateways

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

const (
	defaultCloneTimeout = 120 * time.Second
	defaultMaxRepoBytes = 500 * 1024 * 1024
	workingTreePrefix   = "repo_"
)

// GitRepositoryConfig configures the clone workspace
type GitRepositoryConfig struct {
	TempDir      string
	MaxRepoBytes int64
	CloneTimeout time.Duration
	GitBinary    string
}

// GitRepositoryGateway materializes GitHub repositories as shallow clones
type GitRepositoryGateway struct {
	runner gateways.CommandRunner
	config GitRepositoryConfig
	logger interfaces.Logger
}

// NewGitRepositoryGateway creates a new repository gateway
func NewGitRepositoryGateway(runner gateways.CommandRunner, config GitRepositoryConfig, logger interfaces.Logger) *GitRepositoryGateway {
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.MaxRepoBytes <= 0 {
		config.MaxRepoBytes = defaultMaxRepoBytes
	}
	if config.CloneTimeout <= 0 {
		config.CloneTimeout = defaultCloneTimeout
	}
	if config.GitBinary == "" {
		config.GitBinary = "git"
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &GitRepositoryGateway{runner: runner, config: config, logger: logger}
}

// Acquire clones url into a fresh private directory and enforces the size limit.
// Once the directory exists the returned tree is non-nil, even alongside an error.
func (g *GitRepositoryGateway) Acquire(ctx context.Context, url string) (*entities.WorkingTree, error) {
	owner, name, err := entities.ParseRepoURL(url)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(g.config.TempDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	dir, err := os.MkdirTemp(g.config.TempDir, workingTreePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working tree: %w", err)
	}
	tree := &entities.WorkingTree{
		Path:  dir,
		URL:   url,
		Owner: owner,
		Name:  name,
	}

	if err := os.Chmod(dir, 0o700); err != nil {
		return tree, fmt.Errorf("failed to restrict working tree: %w", err)
	}

	result := g.runner.Run(ctx, gateways.CommandConfig{
		Name:    g.config.GitBinary,
		Args:    []string{"clone", "--depth", "1", "--single-branch", "--no-tags", "--", url, dir},
		Env:     map[string]string{"GIT_TERMINAL_PROMPT": "0"},
		Timeout: g.config.CloneTimeout,
	})
	if !result.Success() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tree, fmt.Errorf("clone interrupted: %w", ctxErr)
		}
		if errors.Is(result.Err, entities.ErrToolNotFound) {
			return tree, fmt.Errorf("git is not available: %w", result.Err)
		}
		return tree, &entities.ValidationError{
			Message: "Failed to clone repository: " + cloneFailureReason(result),
		}
	}

	size, err := regularFileBytes(dir)
	if err != nil {
		return tree, fmt.Errorf("failed to measure repository: %w", err)
	}
	tree.SizeBytes = size

	if size > g.config.MaxRepoBytes {
		return tree, &entities.ResourceLimitError{
			Resource: "Repository",
			Actual:   size,
			Limit:    g.config.MaxRepoBytes,
		}
	}

	g.logger.Debug("repository cloned",
		interfaces.F("repo", owner+"/"+name),
		interfaces.F("size_bytes", size),
		interfaces.F("duration", result.Duration.String()))

	return tree, nil
}

// Release deletes the working tree; releasing a missing tree is a no-op
func (g *GitRepositoryGateway) Release(tree *entities.WorkingTree) error {
	if tree == nil || tree.Path == "" {
		return nil
	}

	if _, err := os.Lstat(tree.Path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	makeWritable(filepath.Join(tree.Path, ".git"))

	if err := os.RemoveAll(tree.Path); err != nil {
		return &entities.CleanupError{Path: tree.Path, Err: err}
	}
	return nil
}

// makeWritable relaxes permissions git may leave read-only (pack files) so removal succeeds
func makeWritable(root string) {
	//nolint:errcheck // best effort; RemoveAll reports what remains
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			//nolint:gosec // G302: directories inside a private working tree
			_ = os.Chmod(path, 0o755)
		} else {
			_ = os.Chmod(path, 0o644)
		}
		return nil
	})
}

// regularFileBytes sums the sizes of regular files, skipping symbolic links
func regularFileBytes(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// cloneFailureReason prefers git's final stderr line, which carries the fatal message
func cloneFailureReason(result *gateways.CommandResult) string {
	if errors.Is(result.Err, entities.ErrToolTimeout) {
		return result.Err.Error()
	}
	lines := strings.Split(strings.TrimSpace(string(result.Stderr)), "\n")
	if reason := strings.TrimSpace(lines[len(lines)-1]); reason != "" {
		return reason
	}
	if result.Err != nil {
		return result.Err.Error()
	}
	return fmt.Sprintf("git exited with status %d", result.ExitCode)
}
