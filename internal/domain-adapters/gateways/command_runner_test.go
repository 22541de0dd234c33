package gateways

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

func TestCommandRunner_Run_Success(t *testing.T) {
	r := NewCommandRunner(nil)

	result := r.Run(context.Background(), gateways.CommandConfig{
		Name: "echo",
		Args: []string{"Hello, World!"},
	})

	if !result.Success() {
		t.Errorf("Run() failed: %v", result.Err)
	}

	if result.ExitCode != 0 {
		t.Errorf("Run() exit code = %d, want 0", result.ExitCode)
	}

	if string(result.Stdout) != "Hello, World!\n" {
		t.Errorf("Run() stdout = %q, want %q", result.Stdout, "Hello, World!\n")
	}
}

func TestCommandRunner_Run_NonZeroExitKeepsStdout(t *testing.T) {
	r := NewCommandRunner(nil)

	result := r.Run(context.Background(), gateways.CommandConfig{
		Name: "sh",
		Args: []string{"-c", `echo '{"results":[]}'; exit 1`},
	})

	if result.Success() {
		t.Error("Run() should report failure")
	}

	if result.ExitCode != 1 {
		t.Errorf("Run() exit code = %d, want 1", result.ExitCode)
	}

	if strings.TrimSpace(string(result.Stdout)) != `{"results":[]}` {
		t.Errorf("stdout lost on non-zero exit: %q", result.Stdout)
	}

	if errors.Is(result.Err, entities.ErrToolNotFound) || errors.Is(result.Err, entities.ErrToolTimeout) {
		t.Errorf("plain exit misclassified: %v", result.Err)
	}
}

func TestCommandRunner_Run_WithEnvironmentAndDir(t *testing.T) {
	r := NewCommandRunner(nil)
	dir := t.TempDir()

	result := r.Run(context.Background(), gateways.CommandConfig{
		Name:       "sh",
		Args:       []string{"-c", "echo $TEST_VAR; pwd"},
		WorkingDir: dir,
		Env:        map[string]string{"TEST_VAR": "test_value"},
	})

	if !result.Success() {
		t.Fatalf("Run() failed: %v", result.Err)
	}

	lines := strings.Split(strings.TrimSpace(string(result.Stdout)), "\n")
	if len(lines) != 2 || lines[0] != "test_value" {
		t.Fatalf("unexpected stdout %q", result.Stdout)
	}
	if !strings.HasSuffix(lines[1], dir[strings.LastIndex(dir, "/"):]) {
		t.Errorf("working dir = %q, want %q", lines[1], dir)
	}
}

func TestCommandRunner_Run_Timeout(t *testing.T) {
	r := NewCommandRunner(nil)

	start := time.Now()
	result := r.Run(context.Background(), gateways.CommandConfig{
		Name:    "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	})

	if result.Success() {
		t.Error("Run() should have timed out")
	}

	if !errors.Is(result.Err, entities.ErrToolTimeout) {
		t.Errorf("Run() error = %v, want ErrToolTimeout", result.Err)
	}

	if time.Since(start) > 4*time.Second {
		t.Errorf("timeout not enforced, took %v", time.Since(start))
	}
}

func TestCommandRunner_Run_NotFound(t *testing.T) {
	r := NewCommandRunner(nil)

	result := r.Run(context.Background(), gateways.CommandConfig{
		Name: "roaster-definitely-not-installed",
	})

	if result.Success() {
		t.Error("Run() should fail for missing binary")
	}

	if !errors.Is(result.Err, entities.ErrToolNotFound) {
		t.Errorf("Run() error = %v, want ErrToolNotFound", result.Err)
	}
}
