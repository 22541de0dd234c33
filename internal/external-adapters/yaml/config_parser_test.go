package yaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigParser_Parse_Valid(t *testing.T) {
	parser := NewConfigParser()
	yamlData := []byte(`app:
  name: Roaster
  environment: production
  debug: false
  log_level: warn
server:
  host: 127.0.0.1
  port: 9000
  allowed_origins:
    - https://roast.example.com
narration:
  grok:
    api_key: xai-123
    model: grok-3
limits:
  max_repo_size_mb: 250
  analysis_timeout_seconds: 120
  scan_parallel: false
rate_limit:
  enabled: true
  scans_per_minute: 3
  redis_url: redis://localhost:6379/0
events:
  nats_url: nats://localhost:4222
tools:
  semgrep:
    binary: /opt/semgrep/bin/semgrep
    timeout_seconds: 300
fix_advice:
  Exposed Secret: Rotate it, then move it to a vault
`)

	settings, err := parser.Parse(yamlData)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if settings.App.Name != "Roaster" || settings.App.LogLevel != "warn" {
		t.Errorf("App = %+v", settings.App)
	}
	if settings.App.Debug == nil || *settings.App.Debug {
		t.Error("App.Debug should be an explicit false")
	}
	if settings.Server.Port == nil || *settings.Server.Port != 9000 {
		t.Errorf("Server.Port = %v, want 9000", settings.Server.Port)
	}
	if len(settings.Server.AllowedOrigins) != 1 {
		t.Errorf("AllowedOrigins = %v", settings.Server.AllowedOrigins)
	}
	if settings.Narration.Grok.APIKey != "xai-123" || settings.Narration.OpenAI.APIKey != "" {
		t.Errorf("Narration = %+v", settings.Narration)
	}
	if settings.Limits.CloneTimeoutSeconds != nil {
		t.Error("unset limits must stay nil")
	}
	if settings.Limits.ScanParallel == nil || *settings.Limits.ScanParallel {
		t.Error("ScanParallel should be an explicit false")
	}
	if settings.RateLimit.RedisURL == "" || *settings.RateLimit.ScansPerMinute != 3 {
		t.Errorf("RateLimit = %+v", settings.RateLimit)
	}
	if settings.Tools["semgrep"].Binary != "/opt/semgrep/bin/semgrep" || settings.Tools["semgrep"].TimeoutSeconds != 300 {
		t.Errorf("Tools = %+v", settings.Tools)
	}
	if settings.FixAdvice["Exposed Secret"] == "" {
		t.Error("fix advice override missing")
	}
}

func TestConfigParser_Parse_Empty(t *testing.T) {
	settings, err := NewConfigParser().Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if settings.Server.Port != nil || settings.Tools != nil {
		t.Errorf("empty file should leave everything unset: %+v", settings)
	}
}

func TestConfigParser_Parse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "broken yaml", data: "app:\n  name: [broken", wantErr: "failed to parse YAML"},
		{name: "unknown key", data: "server:\n  prot: 80\n", wantErr: "failed to parse YAML"},
		{name: "zero port", data: "server:\n  port: 0\n", wantErr: "server.port must be at least 1"},
		{name: "negative repo size", data: "limits:\n  max_repo_size_mb: -5\n", wantErr: "limits.max_repo_size_mb"},
		{name: "zero rate", data: "rate_limit:\n  scans_per_minute: 0\n", wantErr: "rate_limit.scans_per_minute"},
		{name: "negative tool timeout", data: "tools:\n  bandit:\n    timeout_seconds: -1\n", wantErr: "tools.bandit.timeout_seconds"},
		{name: "empty advice", data: "fix_advice:\n  XSS: \"  \"\n", wantErr: "fix_advice.XSS"},
		{name: "list at root", data: "[]", wantErr: "failed to parse YAML"},
	}

	parser := NewConfigParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roaster.yml")
	if err := os.WriteFile(path, []byte("app:\n  environment: staging\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	parser := NewConfigParser()
	settings, err := parser.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if settings.App.Environment != "staging" {
		t.Errorf("Environment = %q", settings.App.Environment)
	}

	if _, err := parser.ParseFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("missing file should fail")
	}
}
