// Package yaml provides YAML-based configuration file parsing.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the optional roaster.yml file. Nil pointers and empty strings mean
// "not set" so environment variables and defaults can fill them in.
type Settings struct {
	App       AppSettings             `yaml:"app"`
	Server    ServerSettings          `yaml:"server"`
	Narration NarrationSettings       `yaml:"narration"`
	Limits    LimitSettings           `yaml:"limits"`
	RateLimit RateLimitSettings       `yaml:"rate_limit"`
	Events    EventSettings           `yaml:"events"`
	Tools     map[string]ToolSettings `yaml:"tools"`
	FixAdvice map[string]string       `yaml:"fix_advice"`
}

// AppSettings holds process-wide options
type AppSettings struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Debug       *bool  `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
}

// ServerSettings holds the HTTP listener options
type ServerSettings struct {
	Host           string   `yaml:"host"`
	Port           *int     `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ProviderSettings configures one OpenAI-compatible narration backend
type ProviderSettings struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// NarrationSettings lists the remote narration backends
type NarrationSettings struct {
	Grok   ProviderSettings `yaml:"grok"`
	OpenAI ProviderSettings `yaml:"openai"`
}

// LimitSettings bounds repository size and analysis time
type LimitSettings struct {
	MaxRepoSizeMB          *int   `yaml:"max_repo_size_mb"`
	AnalysisTimeoutSeconds *int   `yaml:"analysis_timeout_seconds"`
	CloneTimeoutSeconds    *int   `yaml:"clone_timeout_seconds"`
	TempDir                string `yaml:"temp_dir"`
	ScanParallel           *bool  `yaml:"scan_parallel"`
}

// RateLimitSettings configures per-client throttling of scans
type RateLimitSettings struct {
	Enabled        *bool  `yaml:"enabled"`
	ScansPerMinute *int   `yaml:"scans_per_minute"`
	RedisURL       string `yaml:"redis_url"`
}

// EventSettings configures scan.completed publishing
type EventSettings struct {
	NatsURL     string `yaml:"nats_url"`
	NatsSubject string `yaml:"nats_subject"`
}

// ToolSettings overrides how one external tool is invoked
type ToolSettings struct {
	Binary         string `yaml:"binary"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ConfigParser parses YAML configuration files
type ConfigParser struct{}

// NewConfigParser creates a new YAML parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile parses a YAML configuration file
func (p *ConfigParser) ParseFile(filePath string) (*Settings, error) {
	//nolint:gosec // G304: filePath is the operator-supplied config path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	settings, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return settings, nil
}

// Parse parses YAML bytes. Unknown keys are rejected so typos do not pass silently.
func (p *ConfigParser) Parse(data []byte) (*Settings, error) {
	var settings Settings

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func validate(s *Settings) error {
	for name, value := range map[string]*int{
		"server.port":                     s.Server.Port,
		"limits.max_repo_size_mb":         s.Limits.MaxRepoSizeMB,
		"limits.analysis_timeout_seconds": s.Limits.AnalysisTimeoutSeconds,
		"limits.clone_timeout_seconds":    s.Limits.CloneTimeoutSeconds,
		"rate_limit.scans_per_minute":     s.RateLimit.ScansPerMinute,
	} {
		if value != nil && *value < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}

	for name, tool := range s.Tools {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("tools: empty tool name")
		}
		if tool.TimeoutSeconds < 0 {
			return fmt.Errorf("tools.%s.timeout_seconds must not be negative", name)
		}
	}

	for kind, advice := range s.FixAdvice {
		if strings.TrimSpace(advice) == "" {
			return fmt.Errorf("fix_advice.%s must not be empty", kind)
		}
	}

	return nil
}
